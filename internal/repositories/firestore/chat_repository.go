package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/marketgate/api/internal/domain"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
)

const (
	conversationCollection = "conversations"
	messageCollection      = "messages"
)

// ConversationRepository persists chat threads in Firestore.
type ConversationRepository struct {
	base *pfirestore.BaseRepository[conversationDocument]
}

// NewConversationRepository constructs a Firestore-backed conversation repository.
func NewConversationRepository(provider *pfirestore.Provider) (*ConversationRepository, error) {
	if provider == nil {
		return nil, errors.New("conversation repository requires firestore provider")
	}
	return &ConversationRepository{
		base: pfirestore.NewBaseRepository[conversationDocument](provider, conversationCollection),
	}, nil
}

// Insert writes a new conversation; an existing ID yields a conflict.
func (r *ConversationRepository) Insert(ctx context.Context, conversation domain.Conversation) error {
	if r == nil || r.base == nil {
		return errors.New("conversation repository not initialised")
	}
	if strings.TrimSpace(conversation.ID) == "" {
		return errors.New("conversation id is required")
	}
	_, err := r.base.Create(ctx, conversation.ID, fromDomainConversation(conversation))
	return err
}

// FindByID loads the conversation by ID.
func (r *ConversationRepository) FindByID(ctx context.Context, conversationID string) (domain.Conversation, error) {
	if r == nil || r.base == nil {
		return domain.Conversation{}, errors.New("conversation repository not initialised")
	}
	if strings.TrimSpace(conversationID) == "" {
		return domain.Conversation{}, errors.New("conversation id is required")
	}

	doc, err := r.base.Get(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return toDomainConversation(doc.ID, doc.Data), nil
}

// FindByParticipants resolves an existing thread with exactly the given members.
// The member key is order-insensitive.
func (r *ConversationRepository) FindByParticipants(ctx context.Context, participants []string) (domain.Conversation, error) {
	if r == nil || r.base == nil {
		return domain.Conversation{}, errors.New("conversation repository not initialised")
	}
	key := participantKey(participants)
	if key == "" {
		return domain.Conversation{}, errors.New("participants are required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("participantKey", "==", key).Limit(1)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	if len(docs) == 0 {
		return domain.Conversation{}, pfirestore.NotFoundError("conversations.find_by_participants",
			errors.New("no conversation for participants"))
	}
	return toDomainConversation(docs[0].ID, docs[0].Data), nil
}

// ListByParticipant pages through a user's threads, most recent activity first.
func (r *ConversationRepository) ListByParticipant(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Conversation], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Conversation]{}, errors.New("conversation repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Conversation]{}, errors.New("user id is required")
	}

	limit, fetch := fetchLimits(pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Conversation]{}, pfirestore.ConflictError("conversations.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("participants", "array-contains", userID)
		q = q.OrderBy("lastMessageAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetch > 0 {
			q = q.Limit(fetch)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Conversation]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.LastMessageAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Conversation, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainConversation(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Conversation]{Items: items, NextPageToken: nextToken}, nil
}

// Touch bumps the last-activity timestamp after a message lands.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID string, lastMessageAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("conversation repository not initialised")
	}
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("conversation id is required")
	}
	_, err := r.base.Update(ctx, conversationID, []firestore.Update{
		{Path: "lastMessageAt", Value: lastMessageAt.UTC()},
	}, firestore.Exists)
	return err
}

// MessageRepository persists chat messages in Firestore.
type MessageRepository struct {
	base *pfirestore.BaseRepository[messageDocument]
}

// NewMessageRepository constructs a Firestore-backed message repository.
func NewMessageRepository(provider *pfirestore.Provider) (*MessageRepository, error) {
	if provider == nil {
		return nil, errors.New("message repository requires firestore provider")
	}
	return &MessageRepository{
		base: pfirestore.NewBaseRepository[messageDocument](provider, messageCollection),
	}, nil
}

// Append writes a new message; an existing ID yields a conflict.
func (r *MessageRepository) Append(ctx context.Context, message domain.Message) error {
	if r == nil || r.base == nil {
		return errors.New("message repository not initialised")
	}
	if strings.TrimSpace(message.ID) == "" {
		return errors.New("message id is required")
	}
	_, err := r.base.Create(ctx, message.ID, fromDomainMessage(message))
	return err
}

// ListByConversation pages through a thread's messages, newest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, pager domain.Pagination) (domain.CursorPage[domain.Message], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Message]{}, errors.New("message repository not initialised")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return domain.CursorPage[domain.Message]{}, errors.New("conversation id is required")
	}

	limit, fetch := fetchLimits(pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Message]{}, pfirestore.ConflictError("messages.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("conversationId", "==", conversationID)
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetch > 0 {
			q = q.Limit(fetch)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Message]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainMessage(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Message]{Items: items, NextPageToken: nextToken}, nil
}

type conversationDocument struct {
	Participants   []string  `firestore:"participants"`
	ParticipantKey string    `firestore:"participantKey"`
	CreatedAt      time.Time `firestore:"createdAt"`
	LastMessageAt  time.Time `firestore:"lastMessageAt"`
}

type messageDocument struct {
	ConversationID string    `firestore:"conversationId"`
	SenderID       string    `firestore:"senderId"`
	Body           string    `firestore:"body"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func toDomainConversation(id string, doc conversationDocument) domain.Conversation {
	return domain.Conversation{
		ID:            id,
		Participants:  append([]string(nil), doc.Participants...),
		CreatedAt:     doc.CreatedAt,
		LastMessageAt: doc.LastMessageAt,
	}
}

func fromDomainConversation(conversation domain.Conversation) conversationDocument {
	return conversationDocument{
		Participants:   append([]string(nil), conversation.Participants...),
		ParticipantKey: participantKey(conversation.Participants),
		CreatedAt:      conversation.CreatedAt.UTC(),
		LastMessageAt:  conversation.LastMessageAt.UTC(),
	}
}

func toDomainMessage(id string, doc messageDocument) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: doc.ConversationID,
		SenderID:       doc.SenderID,
		Body:           doc.Body,
		CreatedAt:      doc.CreatedAt,
	}
}

func fromDomainMessage(message domain.Message) messageDocument {
	return messageDocument{
		ConversationID: strings.TrimSpace(message.ConversationID),
		SenderID:       strings.TrimSpace(message.SenderID),
		Body:           message.Body,
		CreatedAt:      message.CreatedAt.UTC(),
	}
}

func participantKey(participants []string) string {
	uniq := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		uniq[p] = struct{}{}
	}
	if len(uniq) == 0 {
		return ""
	}
	keys := make([]string, 0, len(uniq))
	for p := range uniq {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
