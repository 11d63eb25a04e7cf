package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	postgresclient "github.com/AlexMickh/exoterra-chat/pkg/postgres-client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initStorage connects to TEST_POSTGRES_DSN and migrates it. Tests are
// skipped when the variable is unset.
func initStorage(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	require.NoError(t, postgresclient.Migrate("../../../migrations", dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func randomWallet() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")[:32] + "AbCdEf01"
}

func newUser(wallet string) models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.User{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		DisplayName:   wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newChannel(kind models.ChannelKind, owner string, contract string) models.Channel {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Channel{
		ID:              uuid.NewString(),
		Name:            "room",
		Kind:            kind,
		OwnerId:         owner,
		Members:         []string{owner},
		ContractAddress: contract,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestStorage_SaveUser(t *testing.T) {
	s := New(initStorage(t))
	ctx := context.Background()
	wallet := randomWallet()

	tests := []struct {
		name    string
		user    models.User
		wantErr error
	}{
		{
			name: "good case",
			user: newUser(wallet),
		},
		{
			name:    "same wallet in another case",
			user:    newUser(strings.ToLower(wallet)),
			wantErr: storage.ErrUserAlreadyExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveUser(ctx, tt.user)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SaveUser() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	got, err := s.GetUserByWallet(ctx, strings.ToUpper(wallet[2:]))
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	got, err = s.GetUserByWallet(ctx, strings.ToLower(wallet))
	require.NoError(t, err)
	assert.Equal(t, wallet, got.WalletAddress)
}

func TestStorage_MuteChannel(t *testing.T) {
	s := New(initStorage(t))
	ctx := context.Background()

	user, err := s.SaveUser(ctx, newUser(randomWallet()))
	require.NoError(t, err)
	channelId := uuid.NewString()

	user, err = s.MuteChannel(ctx, user.ID, channelId)
	require.NoError(t, err)
	user, err = s.MuteChannel(ctx, user.ID, channelId)
	require.NoError(t, err)
	assert.Equal(t, []string{channelId}, user.MutedChannels)

	user, err = s.UnmuteChannel(ctx, user.ID, channelId)
	require.NoError(t, err)
	assert.Empty(t, user.MutedChannels)
}

func TestStorage_SaveChannel_DuplicateContract(t *testing.T) {
	s := New(initStorage(t))
	ctx := context.Background()

	owner, err := s.SaveUser(ctx, newUser(randomWallet()))
	require.NoError(t, err)

	contract := randomWallet()
	_, err = s.SaveChannel(ctx, newChannel(models.ChannelGroup, owner.ID, contract))
	require.NoError(t, err)

	_, err = s.SaveChannel(ctx, newChannel(models.ChannelGroup, owner.ID, strings.ToLower(contract)))
	assert.ErrorIs(t, err, storage.ErrContractAlreadyLinked)

	found, err := s.GetChannelByContract(ctx, strings.ToLower(contract))
	require.NoError(t, err)
	assert.Equal(t, contract, found.ContractAddress)
}

func TestStorage_AddMember_Concurrent(t *testing.T) {
	s := New(initStorage(t))
	ctx := context.Background()

	owner, err := s.SaveUser(ctx, newUser(randomWallet()))
	require.NoError(t, err)
	joiner, err := s.SaveUser(ctx, newUser(randomWallet()))
	require.NoError(t, err)

	channel, err := s.SaveChannel(ctx, newChannel(models.ChannelWorld, owner.ID, ""))
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddMember(ctx, channel.ID, joiner.ID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, storage.ErrAlreadyMember)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	got, err := s.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID, joiner.ID}, got.Members)

	_, err = s.AddMember(ctx, uuid.NewString(), joiner.ID)
	assert.ErrorIs(t, err, storage.ErrChannelNotFound)
}

func TestStorage_Messages(t *testing.T) {
	s := New(initStorage(t))
	ctx := context.Background()

	owner, err := s.SaveUser(ctx, newUser(randomWallet()))
	require.NoError(t, err)
	channel, err := s.SaveChannel(ctx, newChannel(models.ChannelWorld, owner.ID, ""))
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		msg := models.Message{
			ID:        ulid.Make().String(),
			SenderId:  owner.ID,
			ChannelId: channel.ID,
			Content:   "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.SaveMessage(ctx, msg))
		ids = append(ids, msg.ID)
	}

	page, err := s.ListMessages(ctx, channel.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	require.NoError(t, s.DeleteMessage(ctx, ids[0]))
	_, err = s.GetMessage(ctx, ids[0])
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	_, err = s.MuteChannel(ctx, owner.ID, channel.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteChannel(ctx, channel.ID))
	_, err = s.GetMessage(ctx, ids[1])
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	got, err := s.GetUserById(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, got.MutedChannels)

	assert.ErrorIs(t, s.DeleteChannel(ctx, channel.ID), storage.ErrChannelNotFound)
}
