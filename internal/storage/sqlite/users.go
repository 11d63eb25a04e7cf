package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Storage) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	const op = "storage.sqlite.SaveUser"

	row := user{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		WalletKey:     key(u.WalletAddress),
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.loadUser(ctx, s.db, row)
}

func (s *Storage) GetUserByWallet(ctx context.Context, wallet string) (models.User, error) {
	const op = "storage.sqlite.GetUserByWallet"

	var row user
	err := s.db.WithContext(ctx).Where("wallet_key = ?", key(wallet)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.loadUser(ctx, s.db, row)
}

func (s *Storage) GetUserById(ctx context.Context, id string) (models.User, error) {
	const op = "storage.sqlite.GetUserById"

	u, err := s.userById(ctx, s.db, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Storage) userById(ctx context.Context, db *gorm.DB, id string) (models.User, error) {
	var row user
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, err
	}

	return s.loadUser(ctx, db, row)
}

func (s *Storage) loadUser(ctx context.Context, db *gorm.DB, row user) (models.User, error) {
	muted := make([]string, 0)
	err := db.WithContext(ctx).
		Model(&mutedChannel{}).
		Where("user_id = ?", row.ID).
		Order("rowid").
		Pluck("channel_id", &muted).Error
	if err != nil {
		return models.User{}, err
	}

	return models.User{
		ID:            row.ID,
		WalletAddress: row.WalletAddress,
		DisplayName:   row.DisplayName,
		MutedChannels: muted,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (s *Storage) GetUsersByIds(ctx context.Context, ids []string) ([]models.UserPreview, error) {
	const op = "storage.sqlite.GetUsersByIds"

	var rows []user
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byId := make(map[string]user, len(rows))
	for _, row := range rows {
		byId[row.ID] = row
	}

	users := make([]models.UserPreview, 0, len(rows))
	for _, id := range ids {
		if row, ok := byId[id]; ok {
			users = append(users, row.preview())
		}
	}

	return users, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.UserPreview, error) {
	const op = "storage.sqlite.ListUsers"

	var rows []user
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users := make([]models.UserPreview, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.preview())
	}

	return users, nil
}

func (s *Storage) UpdateUserName(ctx context.Context, id string, displayName string, updatedAt time.Time) (models.User, error) {
	const op = "storage.sqlite.UpdateUserName"

	res := s.db.WithContext(ctx).
		Model(&user{}).
		Where("id = ?", id).
		Updates(map[string]any{"display_name": displayName, "updated_at": updatedAt})
	if res.Error != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	u, err := s.userById(ctx, s.db, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	const op = "storage.sqlite.DeleteUser"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&user{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrUserNotFound
		}

		return tx.Where("user_id = ?", id).Delete(&mutedChannel{}).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MuteChannel adds channelId to the user's muted set. Muting twice is a no-op.
func (s *Storage) MuteChannel(ctx context.Context, userId string, channelId string) (models.User, error) {
	const op = "storage.sqlite.MuteChannel"

	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = s.userById(ctx, tx, userId); err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&mutedChannel{UserID: userId, ChannelID: channelId}).Error
		if err != nil {
			return err
		}

		u, err = s.userById(ctx, tx, userId)
		return err
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Storage) UnmuteChannel(ctx context.Context, userId string, channelId string) (models.User, error) {
	const op = "storage.sqlite.UnmuteChannel"

	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = s.userById(ctx, tx, userId); err != nil {
			return err
		}

		err = tx.Where("user_id = ? AND channel_id = ?", userId, channelId).Delete(&mutedChannel{}).Error
		if err != nil {
			return err
		}

		u, err = s.userById(ctx, tx, userId)
		return err
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}
