package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"github.com/AlexMickh/exoterra-chat/pkg/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Login checks that signature is the wallet's signature of its login
// message and returns a bearer token. Unknown wallets get an account.
func (s *Service) Login(ctx context.Context, walletAddress string, signature string) (string, models.User, error) {
	const op = "service.Login"

	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" || signature == "" {
		return "", models.User{}, invalid("wallet address and signature are required")
	}

	if err := wallet.VerifyLogin(walletAddress, signature); err != nil {
		if errors.Is(err, wallet.ErrInvalidAddress) {
			return "", models.User{}, invalid("invalid wallet address")
		}
		return "", models.User{}, invalid("invalid signature")
	}

	user, err := s.storage.GetUserByWallet(ctx, walletAddress)
	if errors.Is(err, storage.ErrUserNotFound) {
		user, err = s.provisionUser(ctx, walletAddress)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.WalletAddress)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, user, nil
}

// provisionUser creates the account of a first login. When a concurrent
// login wins the race the existing account is returned.
func (s *Service) provisionUser(ctx context.Context, walletAddress string) (models.User, error) {
	now := s.now()
	user, err := s.storage.SaveUser(ctx, models.User{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		DisplayName:   walletAddress,
		MutedChannels: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if errors.Is(err, storage.ErrUserAlreadyExists) {
		return s.storage.GetUserByWallet(ctx, walletAddress)
	}
	if err != nil {
		return models.User{}, err
	}

	logger.GetFromCtx(ctx).Info(ctx, "user provisioned", zap.String("user_id", user.ID))

	return user, nil
}

// Authenticate resolves a bearer token to the user it was issued to.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	const op = "service.Authenticate"

	if token == "" {
		return models.User{}, unauthenticated("missing token")
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return models.User{}, unauthenticated("invalid token")
	}

	user, err := s.storage.GetUserByWallet(ctx, claims.WalletAddress)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, unauthenticated("user no longer exists")
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, walletAddress string, displayName string) (models.User, error) {
	const op = "service.CreateUser"

	walletAddress = strings.TrimSpace(walletAddress)
	if !wallet.IsAddress(walletAddress) {
		return models.User{}, invalid("invalid wallet address")
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = walletAddress
	}

	now := s.now()
	user, err := s.storage.SaveUser(ctx, models.User{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
		DisplayName:   displayName,
		MutedChannels: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return models.User{}, invalid("wallet address already exists")
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.UserPreview, error) {
	const op = "service.ListUsers"

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Service) GetUser(ctx context.Context, walletAddress string) (models.User, error) {
	const op = "service.GetUser"

	user, err := s.storage.GetUserByWallet(ctx, strings.TrimSpace(walletAddress))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, notFound("user not found")
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUser renames the user owning walletAddress. Users may only rename
// themselves.
func (s *Service) UpdateUser(
	ctx context.Context,
	requester models.User,
	walletAddress string,
	displayName string,
) (models.User, error) {
	const op = "service.UpdateUser"

	target, err := s.GetUser(ctx, walletAddress)
	if err != nil {
		return models.User{}, err
	}
	if target.ID != requester.ID {
		return models.User{}, forbidden("you can only update your own profile")
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return models.User{}, invalid("display name is required")
	}

	user, err := s.storage.UpdateUserName(ctx, target.ID, displayName, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, notFound("user not found")
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.forgetUserChannels(ctx, user.ID)

	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, requester models.User, walletAddress string) error {
	const op = "service.DeleteUser"

	target, err := s.GetUser(ctx, walletAddress)
	if err != nil {
		return err
	}
	if target.ID != requester.ID {
		return forbidden("you can only delete your own profile")
	}

	if err := s.storage.DeleteUser(ctx, target.ID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFound("user not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.forgetUserChannels(ctx, target.ID)

	return nil
}

// ListUserChannels returns the channels requester is a member of.
func (s *Service) ListUserChannels(ctx context.Context, requester models.User) ([]models.ChannelPreview, error) {
	const op = "service.ListUserChannels"

	channels, err := s.storage.ListUserChannels(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return channels, nil
}

// forgetUserChannels drops cached details that embed the user's preview.
func (s *Service) forgetUserChannels(ctx context.Context, userId string) {
	channels, err := s.storage.ListUserChannels(ctx, userId)
	if err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to list user channels", zap.Error(err))
		return
	}

	for _, channel := range channels {
		s.forgetChannel(ctx, channel.ID)
	}
}
