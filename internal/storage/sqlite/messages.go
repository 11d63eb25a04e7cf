package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"gorm.io/gorm"
)

func (s *Storage) SaveMessage(ctx context.Context, msg models.Message) error {
	const op = "storage.sqlite.SaveMessage"

	row := message{
		ID:        msg.ID,
		SenderID:  msg.SenderId,
		ChannelID: msg.ChannelId,
		Content:   optional(msg.Content),
		Image:     optional(msg.Image),
		CreatedAt: msg.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) GetMessage(ctx context.Context, id string) (models.Message, error) {
	const op = "storage.sqlite.GetMessage"

	var row message
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Message{}, fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
		}
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return row.model(), nil
}

func (s *Storage) ListMessages(ctx context.Context, channelId string, offset int, limit int) ([]models.Message, error) {
	const op = "storage.sqlite.ListMessages"

	var rows []message
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelId).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.model())
	}

	return msgs, nil
}

func (s *Storage) DeleteMessage(ctx context.Context, id string) error {
	const op = "storage.sqlite.DeleteMessage"

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&message{})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
	}

	return nil
}
