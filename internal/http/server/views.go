package server

import (
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
)

type userView struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	DisplayName   string    `json:"displayName"`
	MutedChannels []string  `json:"mutedChannels"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newUserView(u models.User) userView {
	muted := u.MutedChannels
	if muted == nil {
		muted = []string{}
	}
	return userView{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		DisplayName:   u.DisplayName,
		MutedChannels: muted,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type userPreviewView struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	DisplayName   string    `json:"displayName"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

func newUserPreviewViews(users []models.UserPreview) []userPreviewView {
	out := make([]userPreviewView, 0, len(users))
	for _, u := range users {
		out = append(out, userPreviewView(u))
	}
	return out
}

type channelView struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Kind            models.ChannelKind `json:"kind"`
	VoiceEnabled    bool               `json:"voiceEnabled"`
	OwnerId         string             `json:"ownerId"`
	Members         []string           `json:"members"`
	ContractAddress string             `json:"contractAddress,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func newChannelView(c models.Channel) channelView {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	return channelView{
		ID:              c.ID,
		Name:            c.Name,
		Kind:            c.Kind,
		VoiceEnabled:    c.VoiceEnabled,
		OwnerId:         c.OwnerId,
		Members:         members,
		ContractAddress: c.ContractAddress,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type channelPreviewView struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Kind            models.ChannelKind `json:"kind"`
	VoiceEnabled    bool               `json:"voiceEnabled"`
	ContractAddress string             `json:"contractAddress,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func newChannelPreviewViews(channels []models.ChannelPreview) []channelPreviewView {
	out := make([]channelPreviewView, 0, len(channels))
	for _, c := range channels {
		out = append(out, channelPreviewView(c))
	}
	return out
}

type channelDetailView struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Kind            models.ChannelKind `json:"kind"`
	VoiceEnabled    bool               `json:"voiceEnabled"`
	Owner           userPreviewView    `json:"owner"`
	Members         []userPreviewView  `json:"members"`
	ContractAddress string             `json:"contractAddress,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Owner and members are reduced to id, wallet and display name.
func newChannelDetailView(d models.ChannelDetail) channelDetailView {
	members := make([]userPreviewView, 0, len(d.MemberList))
	for _, m := range d.MemberList {
		members = append(members, userPreviewView{ID: m.ID, WalletAddress: m.WalletAddress, DisplayName: m.DisplayName})
	}
	return channelDetailView{
		ID:           d.ID,
		Name:         d.Name,
		Kind:         d.Kind,
		VoiceEnabled: d.VoiceEnabled,
		Owner: userPreviewView{
			ID:            d.Owner.ID,
			WalletAddress: d.Owner.WalletAddress,
			DisplayName:   d.Owner.DisplayName,
		},
		Members:         members,
		ContractAddress: d.ContractAddress,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type messageView struct {
	ID        string    `json:"id"`
	SenderId  string    `json:"senderId"`
	ChannelId string    `json:"channelId"`
	Content   string    `json:"content,omitempty"`
	Image     string    `json:"image,omitempty"`
	ImageUrl  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newMessageView(m models.Message) messageView {
	return messageView(m)
}

func newMessageViews(msgs []models.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, newMessageView(m))
	}
	return out
}

type chatRoomView struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	JoinFee string `json:"joinFee"`
	Creator string `json:"creator"`
}
