package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/jackc/pgx/v5"
)

const userColumns = "id, wallet_address, display_name, muted_channels, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.WalletAddress,
		&user.DisplayName,
		&user.MutedChannels,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Storage) SaveUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	if user.MutedChannels == nil {
		user.MutedChannels = []string{}
	}

	sql := `INSERT INTO chat.users
			(id, wallet_address, display_name, muted_channels, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + userColumns
	saved, err := scanUser(s.db.QueryRow(
		ctx,
		sql,
		user.ID,
		user.WalletAddress,
		user.DisplayName,
		user.MutedChannels,
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		if uniqueViolationOn(err, walletIndex) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (s *Storage) GetUserByWallet(ctx context.Context, wallet string) (models.User, error) {
	const op = "storage.postgres.GetUserByWallet"

	sql := `SELECT ` + userColumns + `
			FROM chat.users
			WHERE lower(wallet_address) = lower($1)`
	user, err := scanUser(s.db.QueryRow(ctx, sql, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) GetUserById(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgres.GetUserById"

	sql := `SELECT ` + userColumns + `
			FROM chat.users
			WHERE id = $1`
	user, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// GetUsersByIds returns the previews of the users found, in the order of ids.
func (s *Storage) GetUsersByIds(ctx context.Context, ids []string) ([]models.UserPreview, error) {
	const op = "storage.postgres.GetUsersByIds"

	sql := `SELECT u.id, u.wallet_address, u.display_name, u.created_at
			FROM unnest($1::uuid[]) WITH ORDINALITY AS ids(id, ord)
			JOIN chat.users u ON u.id = ids.id
			ORDER BY ids.ord`
	rows, err := s.db.Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users, err := collectUserPreviews(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.UserPreview, error) {
	const op = "storage.postgres.ListUsers"

	sql := `SELECT id, wallet_address, display_name, created_at
			FROM chat.users
			ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users, err := collectUserPreviews(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func collectUserPreviews(rows pgx.Rows) ([]models.UserPreview, error) {
	users := make([]models.UserPreview, 0)
	for rows.Next() {
		var user models.UserPreview

		err := rows.Scan(&user.ID, &user.WalletAddress, &user.DisplayName, &user.CreatedAt)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *Storage) UpdateUserName(ctx context.Context, id string, displayName string, updatedAt time.Time) (models.User, error) {
	const op = "storage.postgres.UpdateUserName"

	sql := `UPDATE chat.users
			SET display_name = $1, updated_at = $2
			WHERE id = $3
			RETURNING ` + userColumns
	user, err := scanUser(s.db.QueryRow(ctx, sql, displayName, updatedAt, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteUser"

	sql := "DELETE FROM chat.users WHERE id = $1"
	tag, err := s.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

// MuteChannel adds channelId to the user's muted set. Muting twice is a no-op.
func (s *Storage) MuteChannel(ctx context.Context, userId string, channelId string) (models.User, error) {
	const op = "storage.postgres.MuteChannel"

	sql := `UPDATE chat.users
			SET muted_channels = CASE
					WHEN $2 = ANY(muted_channels) THEN muted_channels
					ELSE array_append(muted_channels, $2)
				END,
				updated_at = now()
			WHERE id = $1
			RETURNING ` + userColumns
	user, err := scanUser(s.db.QueryRow(ctx, sql, userId, channelId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UnmuteChannel(ctx context.Context, userId string, channelId string) (models.User, error) {
	const op = "storage.postgres.UnmuteChannel"

	sql := `UPDATE chat.users
			SET muted_channels = array_remove(muted_channels, $2),
				updated_at = now()
			WHERE id = $1
			RETURNING ` + userColumns
	user, err := scanUser(s.db.QueryRow(ctx, sql, userId, channelId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
