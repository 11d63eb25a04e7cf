package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/jackc/pgx/v5"
)

const messageColumns = "id, sender_id, channel_id, COALESCE(content, ''), COALESCE(image, ''), created_at"

func scanMessage(row pgx.Row) (models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.SenderId,
		&msg.ChannelId,
		&msg.Content,
		&msg.Image,
		&msg.CreatedAt,
	)
	return msg, err
}

func (s *Storage) SaveMessage(ctx context.Context, msg models.Message) error {
	const op = "storage.postgres.SaveMessage"

	sql := `INSERT INTO chat.messages
			(id, sender_id, channel_id, content, image, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.Exec(
		ctx,
		sql,
		msg.ID,
		msg.SenderId,
		msg.ChannelId,
		nullIfEmpty(msg.Content),
		nullIfEmpty(msg.Image),
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) GetMessage(ctx context.Context, id string) (models.Message, error) {
	const op = "storage.postgres.GetMessage"

	sql := `SELECT ` + messageColumns + `
			FROM chat.messages
			WHERE id = $1`
	msg, err := scanMessage(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Message{}, fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
		}
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return msg, nil
}

// ListMessages returns a page of the channel history, newest first.
func (s *Storage) ListMessages(ctx context.Context, channelId string, offset int, limit int) ([]models.Message, error) {
	const op = "storage.postgres.ListMessages"

	sql := `SELECT ` + messageColumns + `
			FROM chat.messages
			WHERE channel_id = $1
			ORDER BY created_at DESC, id DESC
			OFFSET $2 LIMIT $3`
	rows, err := s.db.Query(ctx, sql, channelId, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return msgs, nil
}

func (s *Storage) DeleteMessage(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteMessage"

	sql := "DELETE FROM chat.messages WHERE id = $1"
	tag, err := s.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
	}

	return nil
}
