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
	"github.com/marketgate/api/internal/platform/jsonx"
	"github.com/marketgate/api/internal/services"
)

const maxStoreBodySize = 32 * 1024

// StoreHandlers serves public storefront reads and seller-scoped writes.
type StoreHandlers struct {
	authn  *auth.Authenticator
	stores services.StoreService
}

// NewStoreHandlers constructs a new StoreHandlers instance.
func NewStoreHandlers(authn *auth.Authenticator, stores services.StoreService) *StoreHandlers {
	return &StoreHandlers{authn: authn, stores: stores}
}

// Routes registers the storefront endpoints. Reads are public, writes require
// an authenticated seller.
func (h *StoreHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/{storeID}", h.get)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireFirebaseAuth())
		}
		pr.Post("/", h.create)
		pr.Patch("/{storeID}", h.update)
		pr.Delete("/{storeID}", h.delete)
	})
}

// AdminRoutes registers the moderation endpoints under the admin group.
func (h *StoreHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Patch("/{storeID}/status", h.updateStatus)
}

type storeResponse struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"ownerId"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Logo         *string `json:"logo"`
	Status       string  `json:"status"`
	StatusReason *string `json:"statusReason,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func newStoreResponse(store services.Store) storeResponse {
	return storeResponse{
		ID:           store.ID,
		OwnerID:      store.OwnerID,
		Name:         store.Name,
		Description:  store.Description,
		Logo:         cloneStringPointer(store.Logo),
		Status:       string(store.Status),
		StatusReason: cloneStringPointer(store.StatusReason),
		CreatedAt:    formatTime(store.CreatedAt),
		UpdatedAt:    formatTime(store.UpdatedAt),
	}
}

func (h *StoreHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.ListStoresCommand{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.StoreStatus(raw)
		switch status {
		case domain.StoreStatusActive, domain.StoreStatusSuspended:
			cmd.Status = &status
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown status filter", http.StatusBadRequest))
			return
		}
	}

	page, err := h.stores.List(ctx, cmd)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}

	items := make([]storeResponse, 0, len(page.Items))
	for _, store := range page.Items {
		items = append(items, newStoreResponse(store))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *StoreHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.stores.GetByID(ctx, chi.URLParam(r, "storeID"))
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newStoreResponse(store))
}

type createStoreRequest struct {
	Name        string                 `json:"name"`
	Description jsonx.Optional[string] `json:"description"`
	Logo        jsonx.Optional[string] `json:"logo"`
}

func (h *StoreHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxStoreBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload createStoreRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateStoreCommand{
		OwnerID:     identity.UID,
		Name:        payload.Name,
		Description: payload.Description.Or(""),
	}
	if logo, ok := payload.Logo.Value(); ok {
		cmd.Logo = &logo
	}

	store, err := h.stores.Create(ctx, cmd)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newStoreResponse(store))
}

type updateStoreRequest struct {
	Name        jsonx.Optional[string] `json:"name"`
	Description jsonx.Optional[string] `json:"description"`
	Logo        jsonx.Optional[string] `json:"logo"`
}

func (h *StoreHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxStoreBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateStoreRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if payload.Name.IsNull() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "name cannot be null", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateStoreCommand{
		StoreID:    chi.URLParam(r, "storeID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}
	if name, ok := payload.Name.Value(); ok {
		cmd.Name = &name
	}
	if payload.Description.IsSet() {
		description := payload.Description.Or("")
		cmd.Description = &description
	}
	if payload.Logo.IsSet() {
		var logo *string
		if value, ok := payload.Logo.Value(); ok {
			logo = &value
		}
		cmd.Logo = &logo
	}

	store, err := h.stores.Update(ctx, cmd)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newStoreResponse(store))
}

func (h *StoreHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := h.stores.Delete(ctx, services.DeleteStoreCommand{
		StoreID:    chi.URLParam(r, "storeID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateStoreStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *StoreHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxStoreBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateStoreStatusRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	store, err := h.stores.UpdateStatus(ctx, services.UpdateStoreStatusCommand{
		StoreID: chi.URLParam(r, "storeID"),
		Status:  domain.StoreStatus(strings.TrimSpace(payload.Status)),
		Reason:  payload.Reason,
		ActorID: identity.UID,
	})
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newStoreResponse(store))
}

func writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrStoreInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrStoreInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrStoreSellerRequired):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "seller approval is required to manage a store", http.StatusForbidden))
	case errors.Is(err, services.ErrStoreConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", messageAfterSentinel(err, services.ErrStoreConflict), http.StatusConflict))
	case errors.Is(err, services.ErrStoreNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "store not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStoreUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to modify this store", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process store", http.StatusInternalServerError))
	}
}
