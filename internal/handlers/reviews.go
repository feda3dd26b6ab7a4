package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/httpx"
	"github.com/marketgate/api/internal/platform/jsonx"
	"github.com/marketgate/api/internal/services"
)

const maxReviewBodySize = 16 * 1024

// ReviewHandlers serves product review endpoints.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{authn: authn, reviews: reviews}
}

// Routes registers the /reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{reviewID}", h.get)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireFirebaseAuth())
		}
		pr.Post("/", h.create)
		pr.Patch("/{reviewID}", h.update)
		pr.Delete("/{reviewID}", h.delete)
	})
}

// ProductReviewRoutes registers the nested listing under /products.
func (h *ReviewHandlers) ProductReviewRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{productID}/reviews", h.listByProduct)
}

type reviewResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func newReviewResponse(review services.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: formatTime(review.CreatedAt),
		UpdatedAt: formatTime(review.UpdatedAt),
	}
}

func (h *ReviewHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	review, err := h.reviews.GetByID(ctx, chi.URLParam(r, "reviewID"))
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newReviewResponse(review))
}

func (h *ReviewHandlers) listByProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	page, err := h.reviews.ListByProduct(ctx, services.ListProductReviewsCommand{
		ProductID:  chi.URLParam(r, "productID"),
		Pagination: pager,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	items := make([]reviewResponse, 0, len(page.Items))
	for _, review := range page.Items {
		items = append(items, newReviewResponse(review))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

type createReviewRequest struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *ReviewHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxReviewBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload createReviewRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		ProductID: payload.ProductID,
		UserID:    identity.UID,
		Rating:    payload.Rating,
		Comment:   payload.Comment,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newReviewResponse(review))
}

type updateReviewRequest struct {
	Rating  jsonx.Optional[int]    `json:"rating"`
	Comment jsonx.Optional[string] `json:"comment"`
}

func (h *ReviewHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxReviewBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateReviewRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if payload.Rating.IsNull() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "rating cannot be null", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateReviewCommand{
		ReviewID:   chi.URLParam(r, "reviewID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}
	if rating, ok := payload.Rating.Value(); ok {
		cmd.Rating = &rating
	}
	if payload.Comment.IsSet() {
		comment := payload.Comment.Or("")
		cmd.Comment = &comment
	}

	review, err := h.reviews.Update(ctx, cmd)
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newReviewResponse(review))
}

func (h *ReviewHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := h.reviews.Delete(ctx, services.DeleteReviewCommand{
		ReviewID:   chi.URLParam(r, "reviewID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}); err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrReviewInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", messageAfterSentinel(err, services.ErrReviewConflict), http.StatusConflict))
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to modify this review", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process review", http.StatusInternalServerError))
	}
}
