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

func (s *Storage) SaveChannel(ctx context.Context, c models.Channel) (models.Channel, error) {
	const op = "storage.sqlite.SaveChannel"

	row := channel{
		ID:              c.ID,
		Name:            c.Name,
		Kind:            string(c.Kind),
		VoiceEnabled:    c.VoiceEnabled,
		OwnerID:         c.OwnerId,
		ContractAddress: optional(c.ContractAddress),
		ContractKey:     optional(key(c.ContractAddress)),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}

	var saved models.Channel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		for _, userId := range c.Members {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&channelMember{ChannelID: c.ID, UserID: userId}).Error
			if err != nil {
				return err
			}
		}

		var err error
		saved, err = s.loadChannel(ctx, tx, row)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrContractAlreadyLinked)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (s *Storage) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	const op = "storage.sqlite.GetChannel"

	c, err := s.channelById(ctx, s.db, id)
	if err != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (s *Storage) GetChannelByContract(ctx context.Context, contract string) (models.Channel, error) {
	const op = "storage.sqlite.GetChannelByContract"

	var row channel
	err := s.db.WithContext(ctx).Where("contract_key = ?", key(contract)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.loadChannel(ctx, s.db, row)
	if err != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (s *Storage) channelById(ctx context.Context, db *gorm.DB, id string) (models.Channel, error) {
	var row channel
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Channel{}, storage.ErrChannelNotFound
		}
		return models.Channel{}, err
	}

	return s.loadChannel(ctx, db, row)
}

func (s *Storage) loadChannel(ctx context.Context, db *gorm.DB, row channel) (models.Channel, error) {
	members := make([]string, 0)
	err := db.WithContext(ctx).
		Model(&channelMember{}).
		Where("channel_id = ?", row.ID).
		Order("rowid").
		Pluck("user_id", &members).Error
	if err != nil {
		return models.Channel{}, err
	}

	return models.Channel{
		ID:              row.ID,
		Name:            row.Name,
		Kind:            models.ChannelKind(row.Kind),
		VoiceEnabled:    row.VoiceEnabled,
		OwnerId:         row.OwnerID,
		Members:         members,
		ContractAddress: value(row.ContractAddress),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func (s *Storage) ListChannels(ctx context.Context) ([]models.ChannelPreview, error) {
	const op = "storage.sqlite.ListChannels"

	var rows []channel
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return previews(rows), nil
}

func (s *Storage) ListUserChannels(ctx context.Context, userId string) ([]models.ChannelPreview, error) {
	const op = "storage.sqlite.ListUserChannels"

	var rows []channel
	err := s.db.WithContext(ctx).
		Joins("JOIN channel_members ON channel_members.channel_id = channels.id").
		Where("channel_members.user_id = ?", userId).
		Order("channels.created_at, channels.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return previews(rows), nil
}

func previews(rows []channel) []models.ChannelPreview {
	channels := make([]models.ChannelPreview, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, row.preview())
	}
	return channels
}

func (s *Storage) UpdateChannelName(ctx context.Context, id string, name string, updatedAt time.Time) (models.Channel, error) {
	const op = "storage.sqlite.UpdateChannelName"

	res := s.db.WithContext(ctx).
		Model(&channel{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": updatedAt})
	if res.Error != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
	}

	c, err := s.channelById(ctx, s.db, id)
	if err != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// DeleteChannel removes the channel together with its members and messages.
func (s *Storage) DeleteChannel(ctx context.Context, id string) error {
	const op = "storage.sqlite.DeleteChannel"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&channel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrChannelNotFound
		}

		if err := tx.Where("channel_id = ?", id).Delete(&channelMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("channel_id = ?", id).Delete(&mutedChannel{}).Error; err != nil {
			return err
		}
		return tx.Where("channel_id = ?", id).Delete(&message{}).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AddMember inserts the membership row unless it already exists. The
// composite primary key makes concurrent joins of the same user collapse
// into one row.
func (s *Storage) AddMember(ctx context.Context, channelId string, userId string) (models.Channel, error) {
	const op = "storage.sqlite.AddMember"

	var c models.Channel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row channel
		err := tx.Where("id = ?", channelId).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrChannelNotFound
			}
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&channelMember{ChannelID: channelId, UserID: userId})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrAlreadyMember
		}

		if err := tx.Model(&row).Update("updated_at", time.Now()).Error; err != nil {
			return err
		}

		c, err = s.loadChannel(ctx, tx, row)
		return err
	})
	if err != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}
