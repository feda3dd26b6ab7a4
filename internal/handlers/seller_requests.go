package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/httpx"
	"github.com/marketgate/api/internal/services"
)

const maxSellerRequestBodySize = 16 * 1024

// SellerRequestHandlers serves the seller petition endpoints for both
// applicants and back-office reviewers.
type SellerRequestHandlers struct {
	authn    *auth.Authenticator
	requests services.SellerRequestService
}

// NewSellerRequestHandlers constructs a new SellerRequestHandlers instance.
func NewSellerRequestHandlers(authn *auth.Authenticator, requests services.SellerRequestService) *SellerRequestHandlers {
	return &SellerRequestHandlers{authn: authn, requests: requests}
}

// Routes registers the applicant-facing endpoints.
func (h *SellerRequestHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.create)
	r.Get("/{requestID}", h.get)
}

// AdminRoutes registers the reviewer endpoints under the admin group.
func (h *SellerRequestHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Patch("/{requestID}/status", h.updateStatus)
	r.Delete("/{requestID}", h.delete)
}

type sellerRequestResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	AdminComment string `json:"adminComment,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func newSellerRequestResponse(request services.SellerRequest) sellerRequestResponse {
	return sellerRequestResponse{
		ID:           request.ID,
		UserID:       request.UserID,
		Status:       string(request.Status),
		Message:      request.Message,
		AdminComment: request.AdminComment,
		CreatedAt:    formatTime(request.CreatedAt),
		UpdatedAt:    formatTime(request.UpdatedAt),
	}
}

type createSellerRequestRequest struct {
	Message string `json:"message"`
}

func (h *SellerRequestHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requests == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seller_request_service_unavailable", "seller request service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var payload createSellerRequestRequest
	body, err := readLimitedBody(r, maxSellerRequestBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
		// The petition message is optional, an empty body submits without one.
	case err != nil:
		writeBodyError(ctx, w, err)
		return
	default:
		if err := json.Unmarshal(body, &payload); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return
		}
	}

	request, err := h.requests.Create(ctx, services.CreateSellerRequestCommand{
		UserID:  identity.UID,
		Message: payload.Message,
	})
	if err != nil {
		writeSellerRequestError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newSellerRequestResponse(request))
}

func (h *SellerRequestHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requests == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seller_request_service_unavailable", "seller request service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	request, err := h.requests.GetByID(ctx, services.GetSellerRequestCommand{
		RequestID:  chi.URLParam(r, "requestID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	})
	if err != nil {
		writeSellerRequestError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newSellerRequestResponse(request))
}

func (h *SellerRequestHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requests == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seller_request_service_unavailable", "seller request service unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.ListSellerRequestsCommand{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.SellerRequestStatus(raw)
		switch status {
		case domain.SellerRequestStatusPending, domain.SellerRequestStatusApproved, domain.SellerRequestStatusRejected:
			cmd.Status = &status
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown status filter", http.StatusBadRequest))
			return
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
		cmd.UserID = &raw
	}

	page, err := h.requests.List(ctx, cmd)
	if err != nil {
		writeSellerRequestError(ctx, w, err)
		return
	}

	items := make([]sellerRequestResponse, 0, len(page.Items))
	for _, request := range page.Items {
		items = append(items, newSellerRequestResponse(request))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

type updateSellerRequestStatusRequest struct {
	Status       string `json:"status"`
	AdminComment string `json:"adminComment"`
}

func (h *SellerRequestHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requests == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seller_request_service_unavailable", "seller request service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxSellerRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateSellerRequestStatusRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	request, err := h.requests.UpdateStatus(ctx, services.UpdateSellerRequestStatusCommand{
		RequestID:    chi.URLParam(r, "requestID"),
		Status:       domain.SellerRequestStatus(strings.TrimSpace(payload.Status)),
		AdminComment: payload.AdminComment,
		ActorID:      identity.UID,
	})
	if err != nil {
		writeSellerRequestError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newSellerRequestResponse(request))
}

func (h *SellerRequestHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requests == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seller_request_service_unavailable", "seller request service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := h.requests.Delete(ctx, services.DeleteSellerRequestCommand{
		RequestID: chi.URLParam(r, "requestID"),
		ActorID:   identity.UID,
	}); err != nil {
		writeSellerRequestError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSellerRequestError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSellerRequestInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrSellerRequestInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrSellerRequestConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", messageAfterSentinel(err, services.ErrSellerRequestConflict), http.StatusBadRequest))
	case errors.Is(err, services.ErrSellerRequestNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "seller request not found", http.StatusNotFound))
	case errors.Is(err, services.ErrSellerRequestUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to access this seller request", http.StatusForbidden))
	case errors.Is(err, services.ErrSellerRequestRoleUpdate):
		httpx.WriteError(ctx, w, httpx.NewError("role_update_failed", "failed to update user role", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process seller request", http.StatusInternalServerError))
	}
}
