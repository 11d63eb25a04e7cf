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

const channelColumns = `id, name, kind, voice_enabled, owner_id, members,
	COALESCE(contract_address, ''), created_at, updated_at`

func scanChannel(row pgx.Row) (models.Channel, error) {
	var channel models.Channel
	err := row.Scan(
		&channel.ID,
		&channel.Name,
		&channel.Kind,
		&channel.VoiceEnabled,
		&channel.OwnerId,
		&channel.Members,
		&channel.ContractAddress,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	return channel, err
}

func (s *Storage) SaveChannel(ctx context.Context, channel models.Channel) (models.Channel, error) {
	const op = "storage.postgres.SaveChannel"

	sql := `INSERT INTO chat.channels
			(id, name, kind, voice_enabled, owner_id, members, contract_address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + channelColumns
	saved, err := scanChannel(s.db.QueryRow(
		ctx,
		sql,
		channel.ID,
		channel.Name,
		string(channel.Kind),
		channel.VoiceEnabled,
		channel.OwnerId,
		channel.Members,
		nullIfEmpty(channel.ContractAddress),
		channel.CreatedAt,
		channel.UpdatedAt,
	))
	if err != nil {
		if uniqueViolationOn(err, contractIndex) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrContractAlreadyLinked)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (s *Storage) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	const op = "storage.postgres.GetChannel"

	sql := `SELECT ` + channelColumns + `
			FROM chat.channels
			WHERE id = $1`
	channel, err := scanChannel(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return channel, nil
}

func (s *Storage) GetChannelByContract(ctx context.Context, contract string) (models.Channel, error) {
	const op = "storage.postgres.GetChannelByContract"

	sql := `SELECT ` + channelColumns + `
			FROM chat.channels
			WHERE lower(contract_address) = lower($1)`
	channel, err := scanChannel(s.db.QueryRow(ctx, sql, contract))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return channel, nil
}

func (s *Storage) ListChannels(ctx context.Context) ([]models.ChannelPreview, error) {
	const op = "storage.postgres.ListChannels"

	sql := `SELECT id, name, kind, voice_enabled, COALESCE(contract_address, ''), created_at
			FROM chat.channels
			ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	channels, err := collectChannelPreviews(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return channels, nil
}

func (s *Storage) ListUserChannels(ctx context.Context, userId string) ([]models.ChannelPreview, error) {
	const op = "storage.postgres.ListUserChannels"

	sql := `SELECT id, name, kind, voice_enabled, COALESCE(contract_address, ''), created_at
			FROM chat.channels
			WHERE $1 = ANY(members)
			ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, sql, userId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	channels, err := collectChannelPreviews(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return channels, nil
}

func collectChannelPreviews(rows pgx.Rows) ([]models.ChannelPreview, error) {
	channels := make([]models.ChannelPreview, 0)
	for rows.Next() {
		var channel models.ChannelPreview

		err := rows.Scan(
			&channel.ID,
			&channel.Name,
			&channel.Kind,
			&channel.VoiceEnabled,
			&channel.ContractAddress,
			&channel.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

func (s *Storage) UpdateChannelName(ctx context.Context, id string, name string, updatedAt time.Time) (models.Channel, error) {
	const op = "storage.postgres.UpdateChannelName"

	sql := `UPDATE chat.channels
			SET name = $1, updated_at = $2
			WHERE id = $3
			RETURNING ` + channelColumns
	channel, err := scanChannel(s.db.QueryRow(ctx, sql, name, updatedAt, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return channel, nil
}

// DeleteChannel removes the channel and drops it from every muted set. Its
// messages go with it by cascade.
func (s *Storage) DeleteChannel(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteChannel"

	sql := `WITH deleted AS (
				DELETE FROM chat.channels WHERE id = $1 RETURNING id
			), unmuted AS (
				UPDATE chat.users
				SET muted_channels = array_remove(muted_channels, $1)
				WHERE $1 = ANY(muted_channels)
			)
			SELECT count(*) FROM deleted`
	var deleted int64
	if err := s.db.QueryRow(ctx, sql, id).Scan(&deleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrChannelNotFound)
	}

	return nil
}

// AddMember appends userId to the channel members unless it is already there.
// The check and the append are one statement, so concurrent joins cannot
// produce duplicates.
func (s *Storage) AddMember(ctx context.Context, channelId string, userId string) (models.Channel, error) {
	const op = "storage.postgres.AddMember"

	sql := `UPDATE chat.channels
			SET members = array_append(members, $1), updated_at = now()
			WHERE id = $2 AND NOT ($1 = ANY(members))
			RETURNING ` + channelColumns
	channel, err := scanChannel(s.db.QueryRow(ctx, sql, userId, channelId))
	if err == nil {
		return channel, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.GetChannel(ctx, channelId); err != nil {
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Channel{}, fmt.Errorf("%s: %w", op, storage.ErrAlreadyMember)
}
