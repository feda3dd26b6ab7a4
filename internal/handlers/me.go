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

const maxProfileBodySize = 16 * 1024

// MeHandlers serves the authenticated caller's own profile and storefront.
type MeHandlers struct {
	authn  *auth.Authenticator
	users  services.UserService
	stores services.StoreService
}

// NewMeHandlers constructs a new MeHandlers instance.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService, stores services.StoreService) *MeHandlers {
	return &MeHandlers{authn: authn, users: users, stores: stores}
}

// Routes registers the /me endpoints.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
	r.Get("/store", h.getOwnStore)
}

type userResponse struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	DisplayName      string  `json:"displayName"`
	Role             string  `json:"role"`
	IsApprovedSeller bool    `json:"isApprovedSeller"`
	PhotoURL         *string `json:"photoUrl"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

func newUserResponse(user services.User) userResponse {
	return userResponse{
		ID:               user.ID,
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		Role:             string(user.Role),
		IsApprovedSeller: user.IsApprovedSeller,
		PhotoURL:         optionalString(user.PhotoURL),
		CreatedAt:        formatTime(user.CreatedAt),
		UpdatedAt:        formatTime(user.UpdatedAt),
	}
}

// getProfile returns the caller's profile, creating the document on first sign-in.
func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	cmd := services.EnsureProfileCommand{
		UserID: identity.UID,
		Email:  identity.Email,
	}
	if record, err := identity.User(ctx); err == nil && record != nil {
		cmd.DisplayName = record.DisplayName
		cmd.PhotoURL = record.PhotoURL
	}

	user, err := h.users.EnsureProfile(ctx, cmd)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newUserResponse(user))
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoUrl"`
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxProfileBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateProfileRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	user, err := h.users.UpdateProfile(ctx, services.UpdateProfileCommand{
		UserID:      identity.UID,
		DisplayName: payload.DisplayName,
		PhotoURL:    payload.PhotoURL,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newUserResponse(user))
}

// getOwnStore returns the caller's storefront when one exists.
func (h *MeHandlers) getOwnStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if h.stores == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_implemented", "store lookup not configured", http.StatusNotImplemented))
		return
	}

	store, err := h.stores.GetByOwner(ctx, identity.UID)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newStoreResponse(store))
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrUserInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "user not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process profile", http.StatusInternalServerError))
	}
}
