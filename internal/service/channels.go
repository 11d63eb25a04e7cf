package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/AlexMickh/exoterra-chat/internal/chain"
	"github.com/AlexMickh/exoterra-chat/internal/metrics"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"github.com/AlexMickh/exoterra-chat/pkg/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CreateChannelRequest struct {
	Name         string
	Kind         models.ChannelKind
	VoiceEnabled bool
	// Owner defaults to the requester's wallet.
	Owner string
	// Members must be non-nil, an empty list is fine.
	Members         []string
	ContractAddress string
}

// CreateChannel validates and stores a new channel owned by requester.
// Nothing is written unless every check passes.
func (s *Service) CreateChannel(ctx context.Context, requester models.User, req CreateChannelRequest) (models.Channel, error) {
	const op = "service.CreateChannel"

	if req.Members == nil {
		return models.Channel{}, invalid("members must be a list")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Channel{}, invalid("name is required")
	}
	if !req.Kind.Valid() {
		return models.Channel{}, invalid("invalid channel kind")
	}

	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		owner = requester.WalletAddress
	}
	if !strings.EqualFold(owner, requester.WalletAddress) {
		return models.Channel{}, forbidden("only the owner can create the channel")
	}

	memberIds, err := s.resolveMembers(ctx, owner, req.Members)
	if err != nil {
		return models.Channel{}, err
	}

	if req.Kind == models.ChannelPrivate && len(memberIds) != 2 {
		return models.Channel{}, invalid("private channel requires exactly 2 members")
	}

	contract := strings.TrimSpace(req.ContractAddress)
	if req.Kind == models.ChannelGroup {
		if err := s.checkContract(ctx, contract); err != nil {
			return models.Channel{}, err
		}
	} else if contract != "" {
		return models.Channel{}, invalid("contract address is only allowed for group channels")
	}

	now := s.now()
	channel, err := s.storage.SaveChannel(ctx, models.Channel{
		ID:              uuid.NewString(),
		Name:            name,
		Kind:            req.Kind,
		VoiceEnabled:    req.VoiceEnabled,
		OwnerId:         requester.ID,
		Members:         memberIds,
		ContractAddress: contract,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrContractAlreadyLinked) {
			return models.Channel{}, invalid("contract already registered")
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	logger.GetFromCtx(ctx).Info(ctx, "channel created",
		zap.String("channel_id", channel.ID),
		zap.String("kind", string(channel.Kind)),
	)

	return channel, nil
}

// resolveMembers lower-cases and dedupes owner followed by addresses and
// maps each to a user id. The owner is always first.
func (s *Service) resolveMembers(ctx context.Context, owner string, addresses []string) ([]string, error) {
	const op = "service.resolveMembers"

	normalized := make([]string, 0, len(addresses)+1)
	seen := make(map[string]struct{}, len(addresses)+1)
	for _, address := range append([]string{owner}, addresses...) {
		address = wallet.Normalize(address)
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		normalized = append(normalized, address)
	}

	ids := make([]string, 0, len(normalized))
	for _, address := range normalized {
		user, err := s.storage.GetUserByWallet(ctx, address)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil, invalid("user not found: " + address)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, user.ID)
	}

	return ids, nil
}

func (s *Service) checkContract(ctx context.Context, contract string) error {
	const op = "service.checkContract"

	if contract == "" {
		return invalid("missing contract address")
	}
	if !wallet.IsAddress(contract) {
		return invalid("invalid contract address")
	}

	ok, err := s.chain.IsChatRoom(ctx, contract)
	if err != nil {
		return chainError(err)
	}
	if !ok {
		return invalid("not a chat-room contract")
	}

	_, err = s.storage.GetChannelByContract(ctx, contract)
	if err == nil {
		return invalid("contract already registered")
	}
	if !errors.Is(err, storage.ErrChannelNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func chainError(err error) error {
	switch {
	case errors.Is(err, chain.ErrInvalidAddress):
		return invalid("invalid contract address")
	case errors.Is(err, chain.ErrNotChatRoom):
		return invalid("not a chat-room contract")
	default:
		return unavailable("chain is unavailable, try again later", err)
	}
}

func (s *Service) ListChannels(ctx context.Context) ([]models.ChannelPreview, error) {
	const op = "service.ListChannels"

	channels, err := s.storage.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return channels, nil
}

// GetChannel returns the channel with owner and members resolved, served from
// the cache when possible.
func (s *Service) GetChannel(ctx context.Context, id string) (models.ChannelDetail, error) {
	const op = "service.GetChannel"

	detail, err := s.cash.GetChannel(ctx, id)
	if err == nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return detail, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	if !errors.Is(err, storage.ErrCacheMiss) {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to read channel cache", zap.Error(err))
	}

	channel, err := s.channel(ctx, id)
	if err != nil {
		return models.ChannelDetail{}, err
	}

	members, err := s.storage.GetUsersByIds(ctx, channel.Members)
	if err != nil {
		return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, err)
	}

	detail = models.ChannelDetail{
		Channel:    channel,
		MemberList: members,
	}
	for _, member := range members {
		if member.ID == channel.OwnerId {
			detail.Owner = member
			break
		}
	}

	s.cacheChannel(ctx, detail)

	return detail, nil
}

// cacheChannel stores detail, then rereads the channel and drops the entry if
// a write landed after detail was loaded. Writers invalidate after their
// store write, so either they see the saved entry or the reread sees them.
func (s *Service) cacheChannel(ctx context.Context, detail models.ChannelDetail) {
	log := logger.GetFromCtx(ctx)

	if err := s.cash.SaveChannel(ctx, detail); err != nil {
		log.Warn(ctx, "failed to cache channel", zap.Error(err))
		return
	}

	fresh, err := s.storage.GetChannel(ctx, detail.ID)
	if err == nil && sameChannel(fresh, detail.Channel) {
		return
	}
	if err != nil && !errors.Is(err, storage.ErrChannelNotFound) {
		log.Warn(ctx, "failed to recheck cached channel", zap.Error(err))
	}

	s.forgetChannel(ctx, detail.ID)
}

func sameChannel(a, b models.Channel) bool {
	return a.Name == b.Name &&
		a.Kind == b.Kind &&
		a.VoiceEnabled == b.VoiceEnabled &&
		a.OwnerId == b.OwnerId &&
		a.ContractAddress == b.ContractAddress &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		slices.Equal(a.Members, b.Members)
}

// UpdateChannel renames a channel. Only its owner may do it.
func (s *Service) UpdateChannel(ctx context.Context, requester models.User, id string, name string) (models.Channel, error) {
	const op = "service.UpdateChannel"

	channel, err := s.channel(ctx, id)
	if err != nil {
		return models.Channel{}, err
	}
	if channel.OwnerId != requester.ID {
		return models.Channel{}, forbidden("only the channel owner can update it")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Channel{}, invalid("name is required")
	}

	channel, err = s.storage.UpdateChannelName(ctx, id, name, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrChannelNotFound) {
			return models.Channel{}, notFound("channel not found")
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	s.forgetChannel(ctx, id)

	return channel, nil
}

// DeleteChannel removes a channel and its messages. Only its owner may do it.
func (s *Service) DeleteChannel(ctx context.Context, requester models.User, id string) error {
	const op = "service.DeleteChannel"

	channel, err := s.channel(ctx, id)
	if err != nil {
		return err
	}
	if channel.OwnerId != requester.ID {
		return forbidden("only the channel owner can delete it")
	}

	if err := s.storage.DeleteChannel(ctx, id); err != nil {
		if errors.Is(err, storage.ErrChannelNotFound) {
			return notFound("channel not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.forgetChannel(ctx, id)

	if err := s.events.ChannelDeleted(ctx, id); err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to publish channel deleted", zap.Error(err))
	}

	return nil
}

// JoinChannel adds requester to the channel members. Group channels linked
// to a contract admit only wallets that joined the contract on chain.
func (s *Service) JoinChannel(ctx context.Context, requester models.User, id string) (models.Channel, error) {
	const op = "service.JoinChannel"

	channel, err := s.channel(ctx, id)
	if err != nil {
		return models.Channel{}, err
	}

	kind, result := channel.Kind, "joined"
	defer func() {
		metrics.ChannelJoins.WithLabelValues(string(kind), result).Inc()
	}()

	if channel.Kind == models.ChannelPrivate {
		result = "closed"
		return models.Channel{}, forbidden("private channel is closed")
	}
	if channel.HasMember(requester.ID) {
		result = "already_member"
		return models.Channel{}, invalid("already a member")
	}

	if channel.Kind == models.ChannelGroup && channel.ContractAddress != "" {
		joined, err := s.chain.HasJoined(ctx, channel.ContractAddress, requester.WalletAddress)
		if err != nil {
			result = "chain_error"
			return models.Channel{}, unavailable("chain is unavailable, try again later", err)
		}
		if !joined {
			result = "not_joined_on_chain"
			return models.Channel{}, forbidden("forbidden")
		}
	}

	channel, err = s.storage.AddMember(ctx, id, requester.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyMember):
			result = "already_member"
			return models.Channel{}, invalid("already a member")
		case errors.Is(err, storage.ErrChannelNotFound):
			result = "not_found"
			return models.Channel{}, notFound("channel not found")
		}
		result = "error"
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	s.forgetChannel(ctx, id)

	if err := s.events.MemberJoined(ctx, id, requester.ID); err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to publish member joined", zap.Error(err))
	}

	return channel, nil
}

// MuteChannel adds the channel to requester's muted set.
func (s *Service) MuteChannel(ctx context.Context, requester models.User, id string) (models.User, error) {
	const op = "service.MuteChannel"

	if err := s.requireMember(ctx, requester, id); err != nil {
		return models.User{}, err
	}

	user, err := s.storage.MuteChannel(ctx, requester.ID, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) UnmuteChannel(ctx context.Context, requester models.User, id string) (models.User, error) {
	const op = "service.UnmuteChannel"

	if err := s.requireMember(ctx, requester, id); err != nil {
		return models.User{}, err
	}

	user, err := s.storage.UnmuteChannel(ctx, requester.ID, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// GetChatRoomInfo reads the contract's name, join fee and creator live.
func (s *Service) GetChatRoomInfo(ctx context.Context, contract string) (models.ChatRoomInfo, error) {
	contract = strings.TrimSpace(contract)
	if !wallet.IsAddress(contract) {
		return models.ChatRoomInfo{}, invalid("invalid contract address")
	}

	var (
		name    string
		fee     *big.Int
		creator string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		name, err = s.chain.RoomName(gCtx, contract)
		return err
	})
	g.Go(func() error {
		var err error
		fee, err = s.chain.JoinFee(gCtx, contract)
		return err
	})
	g.Go(func() error {
		var err error
		creator, err = s.chain.RoomCreator(gCtx, contract)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ChatRoomInfo{}, chainError(err)
	}

	return models.ChatRoomInfo{
		Address: contract,
		Name:    name,
		JoinFee: fee.String(),
		Creator: creator,
	}, nil
}

// GetMembership reports whether walletAddress joined the contract on chain.
func (s *Service) GetMembership(ctx context.Context, contract string, walletAddress string) (bool, error) {
	contract = strings.TrimSpace(contract)
	if !wallet.IsAddress(contract) {
		return false, invalid("invalid contract address")
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if !wallet.IsAddress(walletAddress) {
		return false, invalid("invalid wallet address")
	}

	joined, err := s.chain.HasJoined(ctx, contract, walletAddress)
	if err != nil {
		return false, chainError(err)
	}

	return joined, nil
}

// channel loads a channel from the store, unknown and malformed ids are
// reported as not found.
func (s *Service) channel(ctx context.Context, id string) (models.Channel, error) {
	const op = "service.channel"

	if _, err := uuid.Parse(id); err != nil {
		return models.Channel{}, notFound("channel not found")
	}

	channel, err := s.storage.GetChannel(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrChannelNotFound) {
			return models.Channel{}, notFound("channel not found")
		}
		return models.Channel{}, fmt.Errorf("%s: %w", op, err)
	}

	return channel, nil
}

func (s *Service) requireMember(ctx context.Context, requester models.User, channelId string) error {
	channel, err := s.channel(ctx, channelId)
	if err != nil {
		return err
	}
	if !channel.HasMember(requester.ID) {
		return forbidden("not a member of the channel")
	}
	return nil
}

func (s *Service) forgetChannel(ctx context.Context, id string) {
	if err := s.cash.DeleteChannel(ctx, id); err != nil {
		logger.GetFromCtx(ctx).Warn(ctx, "failed to drop cached channel",
			zap.String("channel_id", id),
			zap.Error(err),
		)
	}
}
