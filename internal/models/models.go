package models

import "time"

type ChannelKind string

const (
	ChannelWorld   ChannelKind = "world"
	ChannelGroup   ChannelKind = "group"
	ChannelPrivate ChannelKind = "private"
)

func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelWorld, ChannelGroup, ChannelPrivate:
		return true
	}
	return false
}

type User struct {
	ID            string
	WalletAddress string
	DisplayName   string
	MutedChannels []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserPreview is the public projection of a user.
type UserPreview struct {
	ID            string
	WalletAddress string
	DisplayName   string
	CreatedAt     time.Time
}

type Channel struct {
	ID              string
	Name            string
	Kind            ChannelKind
	VoiceEnabled    bool
	OwnerId         string
	Members         []string
	ContractAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasMember reports whether userId is in the member list.
func (c Channel) HasMember(userId string) bool {
	for _, id := range c.Members {
		if id == userId {
			return true
		}
	}
	return false
}

type ChannelPreview struct {
	ID              string
	Name            string
	Kind            ChannelKind
	VoiceEnabled    bool
	ContractAddress string
	CreatedAt       time.Time
}

type ChannelDetail struct {
	Channel
	Owner      UserPreview
	MemberList []UserPreview
}

type Message struct {
	ID        string
	SenderId  string
	ChannelId string
	Content   string
	Image     string
	ImageUrl  string
	CreatedAt time.Time
}

type Image struct {
	ID          string
	ContentType string
	Data        []byte
}

type ChatRoomInfo struct {
	Address string
	Name    string
	JoinFee string
	Creator string
}
