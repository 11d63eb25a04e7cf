package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb
}

func TestRedis_Channel(t *testing.T) {
	r := New(initRedis(t), time.Minute)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := models.UserPreview{ID: uuid.NewString(), WalletAddress: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", DisplayName: "alice", CreatedAt: now}
	member := models.UserPreview{ID: uuid.NewString(), WalletAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", DisplayName: "bob", CreatedAt: now}
	detail := models.ChannelDetail{
		Channel: models.Channel{
			ID:              uuid.NewString(),
			Name:            "room",
			Kind:            models.ChannelGroup,
			VoiceEnabled:    true,
			OwnerId:         owner.ID,
			Members:         []string{owner.ID, member.ID},
			ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Owner:      owner,
		MemberList: []models.UserPreview{owner, member},
	}

	_, err := r.GetChannel(ctx, detail.ID)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, r.SaveChannel(ctx, detail))

	got, err := r.GetChannel(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, detail, got)

	require.NoError(t, r.DeleteChannel(ctx, detail.ID))
	_, err = r.GetChannel(ctx, detail.ID)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}
