package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/marketgate/api/internal/services"
)

// PubSubPublisher fans domain events out over Cloud Pub/Sub topics. Chat
// events feed the real-time delivery pipeline; seller request and store
// events feed back-office consumers.
type PubSubPublisher struct {
	chatTopic      *pubsub.Topic
	lifecycleTopic *pubsub.Topic
	marshal        func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a publisher over the given topics. The
// lifecycle topic may be nil when only chat fan-out is configured.
func NewPubSubPublisher(chatTopic, lifecycleTopic *pubsub.Topic) (*PubSubPublisher, error) {
	if chatTopic == nil {
		return nil, errors.New("pubsub publisher: chat topic is required")
	}
	return &PubSubPublisher{
		chatTopic:      chatTopic,
		lifecycleTopic: lifecycleTopic,
		marshal:        json.Marshal,
	}, nil
}

type chatEventPayload struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId,omitempty"`
	SenderID       string    `json:"senderId"`
	Participants   []string  `json:"participants"`
	Body           string    `json:"body,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// PublishChatEvent enqueues a chat event on the chat topic.
func (p *PubSubPublisher) PublishChatEvent(ctx context.Context, event services.ChatEvent) error {
	if p == nil || p.chatTopic == nil {
		return errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(chatEventPayload{
		Type:           event.Type,
		ConversationID: event.ConversationID,
		MessageID:      event.MessageID,
		SenderID:       event.SenderID,
		Participants:   event.Participants,
		Body:           event.Body,
		OccurredAt:     event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "conversationId", event.ConversationID)
	setAttr(attrs, "senderId", event.SenderID)

	result := p.chatTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

type sellerRequestEventPayload struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PublishSellerRequestEvent enqueues a seller request lifecycle event.
func (p *PubSubPublisher) PublishSellerRequestEvent(ctx context.Context, event services.SellerRequestEvent) error {
	if p == nil {
		return errors.New("pubsub publisher: not initialised")
	}
	if p.lifecycleTopic == nil {
		return nil
	}

	data, err := p.marshal(sellerRequestEventPayload{
		Type:       event.Type,
		RequestID:  event.RequestID,
		UserID:     event.UserID,
		Status:     string(event.Status),
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal seller request event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "requestId", event.RequestID)
	setAttr(attrs, "userId", event.UserID)

	result := p.lifecycleTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish seller request event: %w", err)
	}
	return nil
}

type storeEventPayload struct {
	Type       string    `json:"type"`
	StoreID    string    `json:"storeId"`
	OwnerID    string    `json:"ownerId"`
	Status     string    `json:"status"`
	Reason     *string   `json:"reason,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PublishStoreEvent enqueues a store moderation event.
func (p *PubSubPublisher) PublishStoreEvent(ctx context.Context, event services.StoreEvent) error {
	if p == nil {
		return errors.New("pubsub publisher: not initialised")
	}
	if p.lifecycleTopic == nil {
		return nil
	}

	data, err := p.marshal(storeEventPayload{
		Type:       event.Type,
		StoreID:    event.StoreID,
		OwnerID:    event.OwnerID,
		Status:     string(event.Status),
		Reason:     event.Reason,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal store event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "storeId", event.StoreID)

	result := p.lifecycleTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish store event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var (
	_ services.ChatEventPublisher          = (*PubSubPublisher)(nil)
	_ services.SellerRequestEventPublisher = (*PubSubPublisher)(nil)
	_ services.StoreEventPublisher         = (*PubSubPublisher)(nil)
)
