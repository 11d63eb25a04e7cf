package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func TestService_CreateMessage(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		content  string
		image    string
		wantKind error
		wantMsg  string
	}{
		{name: "text", sender: walletA, content: "gm"},
		{name: "image", sender: walletA, image: "images/01J00000000000000000000000"},
		{name: "external image", sender: walletA, image: "https://example.com/cat.png"},
		{
			name:     "both set",
			sender:   walletA,
			content:  "gm",
			image:    "images/x",
			wantKind: ErrInvalidArgument,
			wantMsg:  "exactly one of content or image is required",
		},
		{
			name:     "neither set",
			sender:   walletA,
			wantKind: ErrInvalidArgument,
			wantMsg:  "exactly one of content or image is required",
		},
		{
			name:     "not a member",
			sender:   walletC,
			content:  "gm",
			wantKind: ErrForbidden,
			wantMsg:  "not a member of the channel",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()

			alice := e.user(t, walletA)
			e.user(t, walletB)
			e.user(t, walletC)
			channel := e.channel(t, alice, models.ChannelPrivate, walletB)
			sender, err := e.store.GetUserByWallet(ctx, tt.sender)
			require.NoError(t, err)

			msg, err := e.svc.CreateMessage(ctx, sender, channel.ID, tt.content, tt.image)
			if tt.wantKind != nil {
				requireKind(t, err, tt.wantKind, tt.wantMsg)
				assert.Empty(t, e.store.messages)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sender.ID, msg.SenderId)
			assert.Equal(t, channel.ID, msg.ChannelId)
			assert.Equal(t, tt.content, msg.Content)
			assert.Equal(t, tt.image, msg.Image)
			assert.Equal(t, e.clock.Now(), msg.CreatedAt)
			assert.Contains(t, e.events.events, "message.created:"+msg.ID)

			if isImageKey(tt.image) {
				assert.Equal(t, "https://files.test/"+tt.image, msg.ImageUrl)
			} else {
				assert.Empty(t, msg.ImageUrl)
			}
		})
	}
}

func TestService_CreateMessage_UnknownChannel(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, walletA)

	_, err := e.svc.CreateMessage(context.Background(), alice, "00000000-0000-0000-0000-00000000beef", "gm", "")
	requireKind(t, err, ErrNotFound, "channel not found")
}

func TestService_ListMessages(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.user(t, walletA)
	bob := e.user(t, walletB)
	channel := e.channel(t, alice, models.ChannelWorld)
	e.svc.maxPageSize = 4

	var ids []string
	for i := 0; i < 7; i++ {
		msg, err := e.svc.CreateMessage(ctx, alice, channel.ID, fmt.Sprintf("msg %d", i), "")
		require.NoError(t, err)
		ids = append(ids, msg.ID)
		e.clock.Advance(time.Second)
	}

	tests := []struct {
		name     string
		who      models.User
		page     int
		pageSize int
		want     []string
		wantKind error
		wantMsg  string
	}{
		{name: "first page newest first", who: alice, page: 1, pageSize: 3, want: []string{ids[6], ids[5], ids[4]}},
		{name: "second page", who: alice, page: 2, pageSize: 3, want: []string{ids[3], ids[2], ids[1]}},
		{name: "last page", who: alice, page: 3, pageSize: 3, want: []string{ids[0]}},
		{name: "past the end", who: alice, page: 9, pageSize: 3, want: []string{}},
		{name: "page size at the limit", who: alice, page: 2, pageSize: 4, want: []string{ids[2], ids[1], ids[0]}},
		{name: "page size over the limit", who: alice, page: 2, pageSize: 5, wantKind: ErrInvalidArgument, wantMsg: "pageSize must not exceed 4"},
		{name: "huge page", who: alice, page: 1 << 40, pageSize: 4, want: []string{}},
		{name: "page zero", who: alice, page: 0, pageSize: 3, wantKind: ErrInvalidArgument},
		{name: "page size zero", who: alice, page: 1, pageSize: 0, wantKind: ErrInvalidArgument},
		{name: "not a member", who: bob, page: 1, pageSize: 3, wantKind: ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := e.svc.ListMessages(ctx, tt.who, channel.ID, tt.page, tt.pageSize)
			if tt.wantKind != nil {
				requireKind(t, err, tt.wantKind, tt.wantMsg)
				return
			}
			require.NoError(t, err)

			got := make([]string, 0, len(msgs))
			for _, msg := range msgs {
				got = append(got, msg.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_GetMessage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.user(t, walletA)
	bob := e.user(t, walletB)
	channel := e.channel(t, alice, models.ChannelWorld)
	msg, err := e.svc.CreateMessage(ctx, alice, channel.ID, "gm", "")
	require.NoError(t, err)

	got, err := e.svc.GetMessage(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	_, err = e.svc.GetMessage(ctx, bob, msg.ID)
	requireKind(t, err, ErrForbidden, "")

	_, err = e.svc.GetMessage(ctx, alice, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	requireKind(t, err, ErrNotFound, "message not found")

	_, err = e.svc.GetMessage(ctx, alice, "nope")
	requireKind(t, err, ErrNotFound, "message not found")
}

func TestService_RecallMessage(t *testing.T) {
	tests := []struct {
		name     string
		after    time.Duration
		byOther  bool
		leave    bool
		wantKind error
		wantMsg  string
	}{
		{name: "right away", after: 0},
		{name: "at 119s", after: 119 * time.Second},
		{name: "at exactly 120s", after: 120 * time.Second},
		{
			name:     "at 121s",
			after:    121 * time.Second,
			wantKind: ErrForbidden,
			wantMsg:  "recall window has expired",
		},
		{
			name:     "by another member",
			after:    time.Second,
			byOther:  true,
			wantKind: ErrForbidden,
			wantMsg:  "only the sender can recall a message",
		},
		{
			name:     "after leaving the channel",
			after:    time.Second,
			leave:    true,
			wantKind: ErrForbidden,
			wantMsg:  "not a member of the channel",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()

			alice := e.user(t, walletA)
			bob := e.user(t, walletB)
			channel := e.channel(t, alice, models.ChannelPrivate, walletB)

			msg, err := e.svc.CreateMessage(ctx, bob, channel.ID, "oops", "")
			require.NoError(t, err)
			e.clock.Advance(tt.after)

			if tt.leave {
				e.store.mu.Lock()
				c := e.store.channels[channel.ID]
				c.Members = []string{alice.ID}
				e.store.channels[channel.ID] = c
				e.store.mu.Unlock()
			}

			requester := bob
			if tt.byOther {
				requester = alice
			}

			err = e.svc.RecallMessage(ctx, requester, msg.ID)
			if tt.wantKind != nil {
				requireKind(t, err, tt.wantKind, tt.wantMsg)
				_, err := e.store.GetMessage(ctx, msg.ID)
				assert.NoError(t, err, "message must survive")
				return
			}
			require.NoError(t, err)

			_, err = e.svc.GetMessage(ctx, bob, msg.ID)
			requireKind(t, err, ErrNotFound, "")
			assert.Contains(t, e.events.events, "message.recalled:"+msg.ID)
		})
	}
}

func TestService_RecallMessage_RemovesImage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.user(t, walletA)
	channel := e.channel(t, alice, models.ChannelWorld)

	key, url, err := e.svc.UploadImage(ctx, alice, pngHeader, "")
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/"+key, url)

	msg, err := e.svc.CreateMessage(ctx, alice, channel.ID, "", key)
	require.NoError(t, err)
	require.Contains(t, e.s3.objects, key)

	require.NoError(t, e.svc.RecallMessage(ctx, alice, msg.ID))
	assert.NotContains(t, e.s3.objects, key)
}

func TestService_UploadImage(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		wantType    string
		wantMsg     string
	}{
		{name: "sniffed png", data: pngHeader, wantType: "image/png"},
		{name: "declared type", data: []byte("GIF89a..."), contentType: "image/gif", wantType: "image/gif"},
		{name: "empty", data: nil, wantMsg: "image is empty"},
		{name: "too large", data: bytes.Repeat([]byte{1}, MaxImageSize+1), contentType: "image/png", wantMsg: "image is too large"},
		{name: "not an image", data: []byte("hello world"), wantMsg: "unsupported image type"},
		{name: "declared non-image", data: pngHeader, contentType: "text/plain", wantMsg: "unsupported image type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			alice := e.user(t, walletA)

			key, _, err := e.svc.UploadImage(context.Background(), alice, tt.data, tt.contentType)
			if tt.wantMsg != "" {
				requireKind(t, err, ErrInvalidArgument, tt.wantMsg)
				assert.Empty(t, e.s3.objects)
				return
			}
			require.NoError(t, err)
			assert.True(t, isImageKey(key))
			assert.Equal(t, tt.wantType, e.s3.objects[key].ContentType)
		})
	}
}

func TestService_UploadImage_NoStorage(t *testing.T) {
	svc := New(newMemStorage(), nil, nil, newFakeChain(), nil, nil)

	_, _, err := svc.UploadImage(context.Background(), models.User{ID: "u"}, pngHeader, "image/png")
	requireKind(t, err, ErrUnavailable, "image storage is not configured")
}
