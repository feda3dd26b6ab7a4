package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/httpx"
	"github.com/marketgate/api/internal/services"
)

const maxChatBodySize = 16 * 1024

// ChatHandlers serves conversation and message endpoints.
type ChatHandlers struct {
	authn *auth.Authenticator
	chat  services.ChatService
}

// NewChatHandlers constructs a new ChatHandlers instance.
func NewChatHandlers(authn *auth.Authenticator, chat services.ChatService) *ChatHandlers {
	return &ChatHandlers{authn: authn, chat: chat}
}

// Routes registers the /chat endpoints. Every route requires authentication.
func (h *ChatHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/conversations", h.startConversation)
	r.Get("/conversations", h.listConversations)
	r.Get("/conversations/{conversationID}", h.getConversation)
	r.Post("/conversations/{conversationID}/messages", h.sendMessage)
	r.Get("/conversations/{conversationID}/messages", h.listMessages)
}

type conversationResponse struct {
	ID            string   `json:"id"`
	Participants  []string `json:"participants"`
	CreatedAt     string   `json:"createdAt"`
	LastMessageAt string   `json:"lastMessageAt"`
}

func newConversationResponse(conversation services.Conversation) conversationResponse {
	participants := make([]string, len(conversation.Participants))
	copy(participants, conversation.Participants)
	return conversationResponse{
		ID:            conversation.ID,
		Participants:  participants,
		CreatedAt:     formatTime(conversation.CreatedAt),
		LastMessageAt: formatTime(conversation.LastMessageAt),
	}
}

type messageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
}

func newMessageResponse(message services.Message) messageResponse {
	return messageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Body:           message.Body,
		CreatedAt:      formatTime(message.CreatedAt),
	}
}

type startConversationRequest struct {
	Participants []string `json:"participants"`
}

func (h *ChatHandlers) startConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxChatBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload startConversationRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	conversation, err := h.chat.StartConversation(ctx, services.StartConversationCommand{
		ActorID:      identity.UID,
		Participants: payload.Participants,
	})
	if err != nil {
		writeChatError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newConversationResponse(conversation))
}

func (h *ChatHandlers) listConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	page, err := h.chat.ListConversations(ctx, services.ListConversationsCommand{
		ActorID:    identity.UID,
		Pagination: pager,
	})
	if err != nil {
		writeChatError(ctx, w, err)
		return
	}

	items := make([]conversationResponse, 0, len(page.Items))
	for _, conversation := range page.Items {
		items = append(items, newConversationResponse(conversation))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *ChatHandlers) getConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	conversation, err := h.chat.GetConversation(ctx, services.GetConversationCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		ActorID:        identity.UID,
		AllowStaff:     identity.IsAdmin(),
	})
	if err != nil {
		writeChatError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newConversationResponse(conversation))
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h *ChatHandlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxChatBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload sendMessageRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	message, err := h.chat.SendMessage(ctx, services.SendMessageCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		SenderID:       identity.UID,
		Body:           payload.Body,
	})
	if err != nil {
		writeChatError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newMessageResponse(message))
}

func (h *ChatHandlers) listMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	page, err := h.chat.ListMessages(ctx, services.ListMessagesCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		ActorID:        identity.UID,
		AllowStaff:     identity.IsAdmin(),
		Pagination:     pager,
	})
	if err != nil {
		writeChatError(ctx, w, err)
		return
	}

	items := make([]messageResponse, 0, len(page.Items))
	for _, message := range page.Items {
		items = append(items, newMessageResponse(message))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

func writeChatError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrChatInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrChatInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrChatNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "conversation not found", http.StatusNotFound))
	case errors.Is(err, services.ErrChatUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not a participant of this conversation", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process chat request", http.StatusInternalServerError))
	}
}
