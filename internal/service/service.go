package service

import (
	"context"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/chain"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/storage"
	"github.com/AlexMickh/exoterra-chat/pkg/jwt"
)

const (
	DefaultRecallWindow = 120 * time.Second
	DefaultMaxPageSize  = 100
)

type Storage interface {
	SaveUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByWallet(ctx context.Context, wallet string) (models.User, error)
	GetUserById(ctx context.Context, id string) (models.User, error)
	GetUsersByIds(ctx context.Context, ids []string) ([]models.UserPreview, error)
	ListUsers(ctx context.Context) ([]models.UserPreview, error)
	UpdateUserName(ctx context.Context, id string, displayName string, updatedAt time.Time) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
	MuteChannel(ctx context.Context, userId string, channelId string) (models.User, error)
	UnmuteChannel(ctx context.Context, userId string, channelId string) (models.User, error)

	SaveChannel(ctx context.Context, channel models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	GetChannelByContract(ctx context.Context, contract string) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.ChannelPreview, error)
	ListUserChannels(ctx context.Context, userId string) ([]models.ChannelPreview, error)
	UpdateChannelName(ctx context.Context, id string, name string, updatedAt time.Time) (models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
	AddMember(ctx context.Context, channelId string, userId string) (models.Channel, error)

	SaveMessage(ctx context.Context, msg models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	ListMessages(ctx context.Context, channelId string, offset int, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

type Cash interface {
	SaveChannel(ctx context.Context, detail models.ChannelDetail) error
	GetChannel(ctx context.Context, id string) (models.ChannelDetail, error)
	DeleteChannel(ctx context.Context, id string) error
}

type S3 interface {
	SaveImage(ctx context.Context, image models.Image) (string, error)
	ImageUrl(ctx context.Context, key string) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

type Events interface {
	MessageCreated(ctx context.Context, msg models.Message) error
	MessageRecalled(ctx context.Context, msg models.Message) error
	MemberJoined(ctx context.Context, channelId string, userId string) error
	ChannelDeleted(ctx context.Context, channelId string) error
}

type Tokens interface {
	GenerateToken(userID string, walletAddress string) (string, error)
	ValidateToken(token string) (*jwt.Claims, error)
}

type Service struct {
	storage Storage
	cash    Cash
	s3      S3
	chain   chain.Reader
	events  Events
	tokens  Tokens

	now          func() time.Time
	recallWindow time.Duration
	maxPageSize  int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecallWindow sets how long after sending a message its sender may
// still recall it.
func WithRecallWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.recallWindow = window
		}
	}
}

func WithMaxPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxPageSize = size
		}
	}
}

// New builds the service. cash, s3 and events may be nil: the cache is then
// skipped, image uploads fail as unavailable and no events are published.
func New(
	storage Storage,
	cash Cash,
	s3 S3,
	chain chain.Reader,
	events Events,
	tokens Tokens,
	opts ...Option,
) *Service {
	if cash == nil {
		cash = noCash{}
	}
	if events == nil {
		events = noEvents{}
	}

	s := &Service{
		storage:      storage,
		cash:         cash,
		s3:           s3,
		chain:        chain,
		events:       events,
		tokens:       tokens,
		now:          func() time.Time { return time.Now().UTC() },
		recallWindow: DefaultRecallWindow,
		maxPageSize:  DefaultMaxPageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type noCash struct{}

func (noCash) SaveChannel(context.Context, models.ChannelDetail) error { return nil }

func (noCash) GetChannel(context.Context, string) (models.ChannelDetail, error) {
	return models.ChannelDetail{}, storage.ErrCacheMiss
}

func (noCash) DeleteChannel(context.Context, string) error { return nil }

type noEvents struct{}

func (noEvents) MessageCreated(context.Context, models.Message) error  { return nil }
func (noEvents) MessageRecalled(context.Context, models.Message) error { return nil }
func (noEvents) MemberJoined(context.Context, string, string) error    { return nil }
func (noEvents) ChannelDeleted(context.Context, string) error          { return nil }
