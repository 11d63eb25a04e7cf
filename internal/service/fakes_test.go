package service

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/chain"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
)

type memStorage struct {
	mu       sync.Mutex
	users    map[string]models.User
	channels map[string]models.Channel
	messages map[string]models.Message
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:    map[string]models.User{},
		channels: map[string]models.Channel{},
		messages: map[string]models.Message{},
	}
}

func cloneUser(u models.User) models.User {
	u.MutedChannels = append([]string{}, u.MutedChannels...)
	return u
}

func cloneChannel(c models.Channel) models.Channel {
	c.Members = append([]string{}, c.Members...)
	return c
}

func (m *memStorage) SaveUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.WalletAddress, user.WalletAddress) {
			return models.User{}, storage.ErrUserAlreadyExists
		}
	}
	if user.MutedChannels == nil {
		user.MutedChannels = []string{}
	}
	m.users[user.ID] = cloneUser(user)

	return cloneUser(user), nil
}

func (m *memStorage) GetUserByWallet(_ context.Context, wallet string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.WalletAddress, wallet) {
			return cloneUser(u), nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func (m *memStorage) GetUserById(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *memStorage) GetUsersByIds(_ context.Context, ids []string) ([]models.UserPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.UserPreview, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, preview(u))
		}
	}
	return out, nil
}

func preview(u models.User) models.UserPreview {
	return models.UserPreview{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
	}
}

func (m *memStorage) ListUsers(_ context.Context) ([]models.UserPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.UserPreview, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, preview(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStorage) UpdateUserName(_ context.Context, id string, displayName string, updatedAt time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	u.DisplayName = displayName
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return cloneUser(u), nil
}

func (m *memStorage) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return storage.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStorage) MuteChannel(_ context.Context, userId string, channelId string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userId]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	for _, id := range u.MutedChannels {
		if id == channelId {
			return cloneUser(u), nil
		}
	}
	u.MutedChannels = append(u.MutedChannels, channelId)
	m.users[userId] = u
	return cloneUser(u), nil
}

func (m *memStorage) UnmuteChannel(_ context.Context, userId string, channelId string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userId]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	kept := make([]string, 0, len(u.MutedChannels))
	for _, id := range u.MutedChannels {
		if id != channelId {
			kept = append(kept, id)
		}
	}
	u.MutedChannels = kept
	m.users[userId] = u
	return cloneUser(u), nil
}

func (m *memStorage) SaveChannel(_ context.Context, channel models.Channel) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel.ContractAddress != "" {
		for _, c := range m.channels {
			if strings.EqualFold(c.ContractAddress, channel.ContractAddress) {
				return models.Channel{}, storage.ErrContractAlreadyLinked
			}
		}
	}
	m.channels[channel.ID] = cloneChannel(channel)
	return cloneChannel(channel), nil
}

func (m *memStorage) GetChannel(_ context.Context, id string) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[id]
	if !ok {
		return models.Channel{}, storage.ErrChannelNotFound
	}
	return cloneChannel(c), nil
}

func (m *memStorage) GetChannelByContract(_ context.Context, contract string) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.channels {
		if c.ContractAddress != "" && strings.EqualFold(c.ContractAddress, contract) {
			return cloneChannel(c), nil
		}
	}
	return models.Channel{}, storage.ErrChannelNotFound
}

func (m *memStorage) ListChannels(_ context.Context) ([]models.ChannelPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ChannelPreview, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, channelPreview(c))
	}
	return out, nil
}

func (m *memStorage) ListUserChannels(_ context.Context, userId string) ([]models.ChannelPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ChannelPreview, 0)
	for _, c := range m.channels {
		if c.HasMember(userId) {
			out = append(out, channelPreview(c))
		}
	}
	return out, nil
}

func channelPreview(c models.Channel) models.ChannelPreview {
	return models.ChannelPreview{
		ID:              c.ID,
		Name:            c.Name,
		Kind:            c.Kind,
		VoiceEnabled:    c.VoiceEnabled,
		ContractAddress: c.ContractAddress,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *memStorage) UpdateChannelName(_ context.Context, id string, name string, updatedAt time.Time) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[id]
	if !ok {
		return models.Channel{}, storage.ErrChannelNotFound
	}
	c.Name = name
	c.UpdatedAt = updatedAt
	m.channels[id] = c
	return cloneChannel(c), nil
}

func (m *memStorage) DeleteChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[id]; !ok {
		return storage.ErrChannelNotFound
	}
	delete(m.channels, id)
	for msgId, msg := range m.messages {
		if msg.ChannelId == id {
			delete(m.messages, msgId)
		}
	}
	return nil
}

func (m *memStorage) AddMember(_ context.Context, channelId string, userId string) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelId]
	if !ok {
		return models.Channel{}, storage.ErrChannelNotFound
	}
	if c.HasMember(userId) {
		return models.Channel{}, storage.ErrAlreadyMember
	}
	c.Members = append(c.Members, userId)
	m.channels[channelId] = c
	return cloneChannel(c), nil
}

func (m *memStorage) SaveMessage(_ context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[msg.ID] = msg
	return nil
}

func (m *memStorage) GetMessage(_ context.Context, id string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return models.Message{}, storage.ErrMessageNotFound
	}
	return msg, nil
}

func (m *memStorage) ListMessages(_ context.Context, channelId string, offset int, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Message
	for _, msg := range m.messages {
		if msg.ChannelId == channelId {
			all = append(all, msg)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []models.Message{}, nil
	}
	end := min(offset+limit, len(all))
	return append([]models.Message{}, all[offset:end]...), nil
}

func (m *memStorage) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[id]; !ok {
		return storage.ErrMessageNotFound
	}
	delete(m.messages, id)
	return nil
}

// fakeChain answers from in-memory tables. err, when set, is returned by
// every call.
type fakeChain struct {
	mu      sync.Mutex
	rooms   map[string]bool
	joined  map[string]map[string]bool
	err     error
	name    string
	fee     *big.Int
	creator string
	calls   int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		rooms:  map[string]bool{},
		joined: map[string]map[string]bool{},
		name:   "Lobby",
		fee:    big.NewInt(1000),
	}
}

func (f *fakeChain) addRoom(contract string, joined ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	contract = strings.ToLower(contract)
	f.rooms[contract] = true
	f.joined[contract] = map[string]bool{}
	for _, w := range joined {
		f.joined[contract][strings.ToLower(w)] = true
	}
}

func (f *fakeChain) read(contract string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return f.err
	}
	if !f.rooms[strings.ToLower(contract)] {
		return chain.ErrNotChatRoom
	}
	return nil
}

func (f *fakeChain) RoomName(_ context.Context, contract string) (string, error) {
	if err := f.read(contract); err != nil {
		return "", err
	}
	return f.name, nil
}

func (f *fakeChain) JoinFee(_ context.Context, contract string) (*big.Int, error) {
	if err := f.read(contract); err != nil {
		return nil, err
	}
	return f.fee, nil
}

func (f *fakeChain) RoomCreator(_ context.Context, contract string) (string, error) {
	if err := f.read(contract); err != nil {
		return "", err
	}
	return f.creator, nil
}

func (f *fakeChain) HasJoined(_ context.Context, contract string, wallet string) (bool, error) {
	err := f.read(contract)
	if errors.Is(err, chain.ErrNotChatRoom) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined[strings.ToLower(contract)][strings.ToLower(wallet)], nil
}

func (f *fakeChain) IsChatRoom(_ context.Context, contract string) (bool, error) {
	err := f.read(contract)
	if errors.Is(err, chain.ErrNotChatRoom) {
		return false, nil
	}
	return err == nil, err
}

type memCash struct {
	mu      sync.Mutex
	details map[string]models.ChannelDetail
	hits    int
}

func newMemCash() *memCash {
	return &memCash{details: map[string]models.ChannelDetail{}}
}

func (c *memCash) SaveChannel(_ context.Context, detail models.ChannelDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.details[detail.ID] = detail
	return nil
}

func (c *memCash) GetChannel(_ context.Context, id string) (models.ChannelDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	detail, ok := c.details[id]
	if !ok {
		return models.ChannelDetail{}, storage.ErrCacheMiss
	}
	c.hits++
	return detail, nil
}

func (c *memCash) DeleteChannel(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.details, id)
	return nil
}

type memS3 struct {
	mu      sync.Mutex
	objects map[string]models.Image
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string]models.Image{}}
}

func (s *memS3) SaveImage(_ context.Context, image models.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[image.ID] = image
	return "https://files.test/" + image.ID, nil
}

func (s *memS3) ImageUrl(_ context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (s *memS3) DeleteImage(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordedEvents) add(e string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) MessageCreated(_ context.Context, msg models.Message) error {
	return r.add("message.created:" + msg.ID)
}

func (r *recordedEvents) MessageRecalled(_ context.Context, msg models.Message) error {
	return r.add("message.recalled:" + msg.ID)
}

func (r *recordedEvents) MemberJoined(_ context.Context, channelId string, userId string) error {
	return r.add("member.joined:" + channelId + ":" + userId)
}

func (r *recordedEvents) ChannelDeleted(_ context.Context, channelId string) error {
	return r.add("deleted:" + channelId)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
