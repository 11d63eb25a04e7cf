package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/redis/go-redis/v9"
)

type Client interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	LRange(ctx context.Context, key string, start int64, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TxPipeline() redis.Pipeliner
}

// Redis caches channel details, the channel hash lives at channel:{id} and
// its resolved member list at channel:{id}:members.
type Redis struct {
	rdb        Client
	expiration time.Duration
}

type cachedChannel struct {
	ID               string `redis:"id"`
	Name             string `redis:"name"`
	Kind             string `redis:"kind"`
	VoiceEnabled     bool   `redis:"voice_enabled"`
	OwnerId          string `redis:"owner_id"`
	OwnerWallet      string `redis:"owner_wallet"`
	OwnerDisplayName string `redis:"owner_display_name"`
	OwnerCreatedAt   int64  `redis:"owner_created_at"`
	ContractAddress  string `redis:"contract_address"`
	CreatedAt        int64  `redis:"created_at"`
	UpdatedAt        int64  `redis:"updated_at"`
}

type cachedMember struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
}

func New(rdb Client, expiration time.Duration) *Redis {
	return &Redis{
		rdb:        rdb,
		expiration: expiration,
	}
}

func channelKey(id string) string {
	return "channel:" + id
}

func membersKey(id string) string {
	return "channel:" + id + ":members"
}

func (r *Redis) SaveChannel(ctx context.Context, detail models.ChannelDetail) error {
	const op = "storage.redis.SaveChannel"

	cached := cachedChannel{
		ID:               detail.ID,
		Name:             detail.Name,
		Kind:             string(detail.Kind),
		VoiceEnabled:     detail.VoiceEnabled,
		OwnerId:          detail.Owner.ID,
		OwnerWallet:      detail.Owner.WalletAddress,
		OwnerDisplayName: detail.Owner.DisplayName,
		OwnerCreatedAt:   detail.Owner.CreatedAt.UnixNano(),
		ContractAddress:  detail.ContractAddress,
		CreatedAt:        detail.CreatedAt.UnixNano(),
		UpdatedAt:        detail.UpdatedAt.UnixNano(),
	}

	members := make([]any, 0, len(detail.MemberList))
	for _, m := range detail.MemberList {
		data, err := json.Marshal(cachedMember(m))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		members = append(members, string(data))
	}

	pipeline := r.rdb.TxPipeline()

	pipeline.Del(ctx, channelKey(detail.ID), membersKey(detail.ID))
	pipeline.HSet(ctx, channelKey(detail.ID), &cached)
	pipeline.Expire(ctx, channelKey(detail.ID), r.expiration)
	if len(members) > 0 {
		pipeline.RPush(ctx, membersKey(detail.ID), members...)
		pipeline.Expire(ctx, membersKey(detail.ID), r.expiration)
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Redis) GetChannel(ctx context.Context, id string) (models.ChannelDetail, error) {
	const op = "storage.redis.GetChannel"

	res := r.rdb.HGetAll(ctx, channelKey(id))
	values, err := res.Result()
	if err != nil {
		return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(values) == 0 {
		return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, storage.ErrCacheMiss)
	}

	var cached cachedChannel
	if err := res.Scan(&cached); err != nil {
		return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := r.rdb.LRange(ctx, membersKey(id), 0, -1).Result()
	if err != nil {
		return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, err)
	}

	members := make([]models.UserPreview, 0, len(raw))
	memberIds := make([]string, 0, len(raw))
	for _, item := range raw {
		var m cachedMember
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return models.ChannelDetail{}, fmt.Errorf("%s: %w", op, err)
		}
		members = append(members, models.UserPreview(m))
		memberIds = append(memberIds, m.ID)
	}

	return models.ChannelDetail{
		Channel: models.Channel{
			ID:              cached.ID,
			Name:            cached.Name,
			Kind:            models.ChannelKind(cached.Kind),
			VoiceEnabled:    cached.VoiceEnabled,
			OwnerId:         cached.OwnerId,
			Members:         memberIds,
			ContractAddress: cached.ContractAddress,
			CreatedAt:       time.Unix(0, cached.CreatedAt).UTC(),
			UpdatedAt:       time.Unix(0, cached.UpdatedAt).UTC(),
		},
		Owner: models.UserPreview{
			ID:            cached.OwnerId,
			WalletAddress: cached.OwnerWallet,
			DisplayName:   cached.OwnerDisplayName,
			CreatedAt:     time.Unix(0, cached.OwnerCreatedAt).UTC(),
		},
		MemberList: members,
	}, nil
}

func (r *Redis) DeleteChannel(ctx context.Context, id string) error {
	const op = "storage.redis.DeleteChannel"

	err := r.rdb.Del(ctx, channelKey(id), membersKey(id)).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
