package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/AlexMickh/exoterra-chat/internal/metrics"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	imageKeyPrefix = "images/"
	MaxImageSize   = 5 << 20
)

// CreateMessage posts a message to a channel the requester belongs to.
// Exactly one of content and image must be set.
func (s *Service) CreateMessage(
	ctx context.Context,
	requester models.User,
	channelId string,
	content string,
	image string,
) (models.Message, error) {
	const op = "service.CreateMessage"

	channel, err := s.channel(ctx, channelId)
	if err != nil {
		return models.Message{}, err
	}
	if !channel.HasMember(requester.ID) {
		return models.Message{}, forbidden("not a member of the channel")
	}

	if (content == "") == (image == "") {
		return models.Message{}, invalid("exactly one of content or image is required")
	}

	now := s.now()
	msg := models.Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		SenderId:  requester.ID,
		ChannelId: channel.ID,
		Content:   content,
		Image:     image,
		CreatedAt: now,
	}
	if err := s.storage.SaveMessage(ctx, msg); err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.MessagesCreated.WithLabelValues(string(channel.Kind)).Inc()

	if err := s.events.MessageCreated(ctx, msg); err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to publish message created", zap.Error(err))
	}

	return s.withImageUrl(ctx, msg), nil
}

// ListMessages returns one page of the channel history, newest first. Pages
// start at 1 and pageSize may not exceed the configured maximum.
func (s *Service) ListMessages(
	ctx context.Context,
	requester models.User,
	channelId string,
	page int,
	pageSize int,
) ([]models.Message, error) {
	const op = "service.ListMessages"

	if page < 1 {
		return nil, invalid("page must be a positive number")
	}
	if pageSize < 1 {
		return nil, invalid("pageSize must be a positive number")
	}
	if pageSize > s.maxPageSize {
		return nil, invalid(fmt.Sprintf("pageSize must not exceed %d", s.maxPageSize))
	}

	if err := s.requireMember(ctx, requester, channelId); err != nil {
		return nil, err
	}

	if page-1 > math.MaxInt32/pageSize {
		return []models.Message{}, nil
	}

	msgs, err := s.storage.ListMessages(ctx, channelId, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range msgs {
		msgs[i] = s.withImageUrl(ctx, msgs[i])
	}

	return msgs, nil
}

func (s *Service) GetMessage(ctx context.Context, requester models.User, id string) (models.Message, error) {
	msg, err := s.message(ctx, id)
	if err != nil {
		return models.Message{}, err
	}

	if err := s.requireMember(ctx, requester, msg.ChannelId); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Message{}, notFound("message not found")
		}
		return models.Message{}, err
	}

	return s.withImageUrl(ctx, msg), nil
}

// RecallMessage deletes a message. Only its sender may do it, while still a
// member of the channel and within the recall window (inclusive).
func (s *Service) RecallMessage(ctx context.Context, requester models.User, id string) error {
	const op = "service.RecallMessage"

	msg, err := s.message(ctx, id)
	if err != nil {
		return err
	}
	if msg.SenderId != requester.ID {
		return forbidden("only the sender can recall a message")
	}

	if err := s.requireMember(ctx, requester, msg.ChannelId); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("message not found")
		}
		return err
	}

	if s.now().Sub(msg.CreatedAt) > s.recallWindow {
		return forbidden("recall window has expired")
	}

	if err := s.storage.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return notFound("message not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.MessagesRecalled.Inc()

	if s.s3 != nil && isImageKey(msg.Image) {
		if err := s.s3.DeleteImage(ctx, msg.Image); err != nil {
			logger.GetFromCtx(ctx).Warn(ctx, "failed to delete message image",
				zap.String("key", msg.Image),
				zap.Error(err),
			)
		}
	}

	if err := s.events.MessageRecalled(ctx, msg); err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to publish message recalled", zap.Error(err))
	}

	return nil
}

// UploadImage stores an image that a later message can reference by the
// returned key.
func (s *Service) UploadImage(
	ctx context.Context,
	requester models.User,
	data []byte,
	contentType string,
) (string, string, error) {
	const op = "service.UploadImage"

	if s.s3 == nil {
		return "", "", unavailable("image storage is not configured", nil)
	}
	if len(data) == 0 {
		return "", "", invalid("image is empty")
	}
	if len(data) > MaxImageSize {
		return "", "", invalid("image is too large")
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", invalid("unsupported image type")
	}

	key := imageKeyPrefix + ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()).String()
	url, err := s.s3.SaveImage(ctx, models.Image{
		ID:          key,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	logger.GetFromCtx(ctx).Info(ctx, "image uploaded",
		zap.String("key", key),
		zap.String("user_id", requester.ID),
	)

	return key, url, nil
}

func (s *Service) message(ctx context.Context, id string) (models.Message, error) {
	const op = "service.message"

	if _, err := ulid.ParseStrict(id); err != nil {
		return models.Message{}, notFound("message not found")
	}

	msg, err := s.storage.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return models.Message{}, notFound("message not found")
		}
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return msg, nil
}

func (s *Service) withImageUrl(ctx context.Context, msg models.Message) models.Message {
	if s.s3 == nil || !isImageKey(msg.Image) {
		return msg
	}

	url, err := s.s3.ImageUrl(ctx, msg.Image)
	if err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to sign image url", zap.Error(err))
		return msg
	}
	msg.ImageUrl = url

	return msg
}

func isImageKey(image string) bool {
	return strings.HasPrefix(image, imageKeyPrefix)
}
