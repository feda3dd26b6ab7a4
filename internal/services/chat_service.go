package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

const (
	conversationIDPrefix = "conv_"
	messageIDPrefix      = "msg_"

	chatEventMessageSent         = "chat.message.sent"
	chatEventConversationStarted = "chat.conversation.started"

	maxMessageBodyLength = 4000
)

var (
	// ErrChatInvalidInput indicates validation failures for chat operations.
	ErrChatInvalidInput = errors.New("chat: invalid input")
	// ErrChatNotFound indicates a conversation could not be located.
	ErrChatNotFound = errors.New("chat: not found")
	// ErrChatUnauthorized indicates the actor is not part of the conversation.
	ErrChatUnauthorized = errors.New("chat: unauthorized")
)

// ChatEventPublisher fans chat events out to real-time subscribers.
type ChatEventPublisher interface {
	PublishChatEvent(ctx context.Context, event ChatEvent) error
}

// ChatEvent captures metadata for conversation and message events.
type ChatEvent struct {
	Type           string
	ConversationID string
	MessageID      string
	SenderID       string
	Participants   []string
	Body           string
	OccurredAt     time.Time
}

// ChatServiceDeps bundles collaborators required to construct a ChatService.
type ChatServiceDeps struct {
	Conversations   repositories.ConversationRepository
	Messages        repositories.MessageRepository
	Clock           func() time.Time
	ConversationIDs func() string
	MessageIDs      func() string
	Sanitizer       func(string) string
	Events          ChatEventPublisher
}

type chatService struct {
	conversations  repositories.ConversationRepository
	messages       repositories.MessageRepository
	clock          func() time.Time
	conversationID func() string
	messageID      func() string
	sanitize       func(string) string
	events         ChatEventPublisher
}

// NewChatService wires dependencies into a concrete ChatService implementation.
func NewChatService(deps ChatServiceDeps) (ChatService, error) {
	if deps.Conversations == nil {
		return nil, errors.New("chat service: conversation repository is required")
	}
	if deps.Messages == nil {
		return nil, errors.New("chat service: message repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	conversationID := deps.ConversationIDs
	if conversationID == nil {
		conversationID = func() string { return conversationIDPrefix + ulid.Make().String() }
	}
	messageID := deps.MessageIDs
	if messageID == nil {
		messageID = func() string { return messageIDPrefix + ulid.Make().String() }
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		policy := bluemonday.StrictPolicy()
		sanitize = func(input string) string {
			return html.UnescapeString(policy.Sanitize(strings.TrimSpace(input)))
		}
	}
	return &chatService{
		conversations:  deps.Conversations,
		messages:       deps.Messages,
		clock:          func() time.Time { return clock().UTC() },
		conversationID: conversationID,
		messageID:      messageID,
		sanitize:       sanitize,
		events:         deps.Events,
	}, nil
}

// StartConversation opens a thread between the actor and the other
// participants, reusing an existing thread with the same member set.
func (s *chatService) StartConversation(ctx context.Context, cmd StartConversationCommand) (Conversation, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return Conversation{}, fmt.Errorf("%w: actor id is required", ErrChatInvalidInput)
	}

	participants := append([]string{actorID}, cmd.Participants...)

	existing, err := s.conversations.FindByParticipants(ctx, participants)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return Conversation{}, err
	}

	conversation, err := domain.NewConversation(s.conversationID(), participants, s.clock())
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %v", ErrChatInvalidInput, err)
	}
	if err := s.conversations.Insert(ctx, conversation); err != nil {
		return Conversation{}, s.mapChatError(err)
	}

	s.emitEvent(ctx, ChatEvent{
		Type:           chatEventConversationStarted,
		ConversationID: conversation.ID,
		SenderID:       actorID,
		Participants:   conversation.Participants,
		OccurredAt:     s.clock(),
	})
	return conversation, nil
}

func (s *chatService) GetConversation(ctx context.Context, cmd GetConversationCommand) (Conversation, error) {
	conversation, err := s.loadConversation(ctx, cmd.ConversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !cmd.AllowStaff && !conversation.HasParticipant(cmd.ActorID) {
		return Conversation{}, ErrChatUnauthorized
	}
	return conversation, nil
}

func (s *chatService) ListConversations(ctx context.Context, cmd ListConversationsCommand) (domain.CursorPage[Conversation], error) {
	if strings.TrimSpace(cmd.ActorID) == "" {
		return domain.CursorPage[Conversation]{}, fmt.Errorf("%w: actor id is required", ErrChatInvalidInput)
	}
	page, err := s.conversations.ListByParticipant(ctx, cmd.ActorID, cmd.Pagination)
	if err != nil {
		return domain.CursorPage[Conversation]{}, s.mapChatError(err)
	}
	return page, nil
}

// SendMessage sanitises the body, persists it, bumps the thread's activity
// timestamp, and fans the message out to subscribers. The fan-out is best
// effort: a publish failure never fails the send.
func (s *chatService) SendMessage(ctx context.Context, cmd SendMessageCommand) (Message, error) {
	senderID := strings.TrimSpace(cmd.SenderID)
	if senderID == "" {
		return Message{}, fmt.Errorf("%w: sender id is required", ErrChatInvalidInput)
	}

	conversation, err := s.loadConversation(ctx, cmd.ConversationID)
	if err != nil {
		return Message{}, err
	}
	if !conversation.HasParticipant(senderID) {
		return Message{}, ErrChatUnauthorized
	}

	body := s.sanitize(cmd.Body)
	if body == "" {
		return Message{}, fmt.Errorf("%w: message body is required", ErrChatInvalidInput)
	}
	if len(body) > maxMessageBodyLength {
		return Message{}, fmt.Errorf("%w: message body exceeds %d characters", ErrChatInvalidInput, maxMessageBodyLength)
	}

	now := s.clock()
	message, err := domain.NewMessage(s.messageID(), conversation.ID, senderID, body, now)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrChatInvalidInput, err)
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return Message{}, s.mapChatError(err)
	}
	if err := s.conversations.Touch(ctx, conversation.ID, now); err != nil {
		return Message{}, s.mapChatError(err)
	}

	s.emitEvent(ctx, ChatEvent{
		Type:           chatEventMessageSent,
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		SenderID:       senderID,
		Participants:   conversation.Participants,
		Body:           body,
		OccurredAt:     now,
	})
	return message, nil
}

func (s *chatService) ListMessages(ctx context.Context, cmd ListMessagesCommand) (domain.CursorPage[Message], error) {
	conversation, err := s.loadConversation(ctx, cmd.ConversationID)
	if err != nil {
		return domain.CursorPage[Message]{}, err
	}
	if !cmd.AllowStaff && !conversation.HasParticipant(cmd.ActorID) {
		return domain.CursorPage[Message]{}, ErrChatUnauthorized
	}

	page, err := s.messages.ListByConversation(ctx, conversation.ID, cmd.Pagination)
	if err != nil {
		return domain.CursorPage[Message]{}, s.mapChatError(err)
	}
	return page, nil
}

func (s *chatService) loadConversation(ctx context.Context, conversationID string) (Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return Conversation{}, fmt.Errorf("%w: conversation id is required", ErrChatInvalidInput)
	}
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return Conversation{}, s.mapChatError(err)
	}
	return conversation, nil
}

func (s *chatService) emitEvent(ctx context.Context, event ChatEvent) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishChatEvent(ctx, event)
}

func (s *chatService) mapChatError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return ErrChatNotFound
	}
	return err
}
