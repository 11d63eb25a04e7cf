package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type user struct {
	ID            string    `gorm:"primaryKey;column:id"`
	WalletAddress string    `gorm:"column:wallet_address;not null"`
	WalletKey     string    `gorm:"column:wallet_key;uniqueIndex;not null"`
	DisplayName   string    `gorm:"column:display_name;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

type mutedChannel struct {
	UserID    string `gorm:"primaryKey;column:user_id"`
	ChannelID string `gorm:"primaryKey;column:channel_id"`
}

type channel struct {
	ID              string    `gorm:"primaryKey;column:id"`
	Name            string    `gorm:"column:name;not null"`
	Kind            string    `gorm:"column:kind;not null"`
	VoiceEnabled    bool      `gorm:"column:voice_enabled"`
	OwnerID         string    `gorm:"column:owner_id;not null"`
	ContractAddress *string   `gorm:"column:contract_address"`
	ContractKey     *string   `gorm:"column:contract_key;uniqueIndex"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

// channelMember rows keep insertion order through sqlite's rowid.
type channelMember struct {
	ChannelID string `gorm:"primaryKey;column:channel_id"`
	UserID    string `gorm:"primaryKey;column:user_id;index"`
}

type message struct {
	ID        string    `gorm:"primaryKey;column:id"`
	SenderID  string    `gorm:"column:sender_id;not null"`
	ChannelID string    `gorm:"column:channel_id;not null;index:idx_messages_channel_created,priority:1"`
	Content   *string   `gorm:"column:content;check:content_xor_image,(content IS NULL) <> (image IS NULL)"`
	Image     *string   `gorm:"column:image"`
	CreatedAt time.Time `gorm:"column:created_at;index:idx_messages_channel_created,priority:2"`
}

type Storage struct {
	db *gorm.DB
}

// New opens (creating when needed) the database file at path and migrates it.
func New(path string) (*Storage, error) {
	const op = "storage.sqlite.New"

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// one writer at a time, sqlite serializes them anyway
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&user{}, &mutedChannel{}, &channel{}, &channelMember{}, &message{}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func key(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (u user) preview() models.UserPreview {
	return models.UserPreview{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
	}
}

func (c channel) preview() models.ChannelPreview {
	return models.ChannelPreview{
		ID:              c.ID,
		Name:            c.Name,
		Kind:            models.ChannelKind(c.Kind),
		VoiceEnabled:    c.VoiceEnabled,
		ContractAddress: value(c.ContractAddress),
		CreatedAt:       c.CreatedAt,
	}
}

func (m message) model() models.Message {
	return models.Message{
		ID:        m.ID,
		SenderId:  m.SenderID,
		ChannelId: m.ChannelID,
		Content:   value(m.Content),
		Image:     value(m.Image),
		CreatedAt: m.CreatedAt,
	}
}
