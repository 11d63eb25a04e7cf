// Package nats publishes chat domain events after they are committed.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
)

const (
	EventMessageCreated  = "message.created"
	EventMessageRecalled = "message.recalled"
	EventMemberJoined    = "member.joined"
	EventChannelDeleted  = "deleted"
)

// Conn is satisfied by *nats.Conn.
type Conn interface {
	Publish(subj string, data []byte) error
}

type Publisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

type Event struct {
	Type       string    `json:"type"`
	ChannelId  string    `json:"channel_id"`
	MessageId  string    `json:"message_id,omitempty"`
	UserId     string    `json:"user_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Image      string    `json:"image,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(conn Conn, prefix string) *Publisher {
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		now:    time.Now,
	}
}

// Subject returns the subject an event of type typ in channelId goes to.
func (p *Publisher) Subject(channelId string, typ string) string {
	return fmt.Sprintf("%s.channel.%s.%s", p.prefix, channelId, typ)
}

func (p *Publisher) MessageCreated(ctx context.Context, msg models.Message) error {
	return p.publish(ctx, Event{
		Type:      EventMessageCreated,
		ChannelId: msg.ChannelId,
		MessageId: msg.ID,
		UserId:    msg.SenderId,
		Content:   msg.Content,
		Image:     msg.Image,
	})
}

func (p *Publisher) MessageRecalled(ctx context.Context, msg models.Message) error {
	return p.publish(ctx, Event{
		Type:      EventMessageRecalled,
		ChannelId: msg.ChannelId,
		MessageId: msg.ID,
		UserId:    msg.SenderId,
	})
}

func (p *Publisher) MemberJoined(ctx context.Context, channelId string, userId string) error {
	return p.publish(ctx, Event{
		Type:      EventMemberJoined,
		ChannelId: channelId,
		UserId:    userId,
	})
}

func (p *Publisher) ChannelDeleted(ctx context.Context, channelId string) error {
	return p.publish(ctx, Event{
		Type:      EventChannelDeleted,
		ChannelId: channelId,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	const op = "broker.nats.publish"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event.OccurredAt = p.now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.conn.Publish(p.Subject(event.ChannelId, event.Type), data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
