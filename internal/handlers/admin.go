package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/httpx"
	"github.com/marketgate/api/internal/services"
)

// AdminHandlers groups the back-office endpoints behind the admin role.
type AdminHandlers struct {
	authn          *auth.Authenticator
	users          services.UserService
	sellerRequests *SellerRequestHandlers
	stores         *StoreHandlers
	catalog        *CatalogHandlers
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(
	authn *auth.Authenticator,
	users services.UserService,
	sellerRequests *SellerRequestHandlers,
	stores *StoreHandlers,
	catalog *CatalogHandlers,
) *AdminHandlers {
	return &AdminHandlers{
		authn:          authn,
		users:          users,
		sellerRequests: sellerRequests,
		stores:         stores,
		catalog:        catalog,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}

	r.Get("/users", h.listUsers)

	if h.sellerRequests != nil {
		r.Route("/seller-requests", h.sellerRequests.AdminRoutes)
	}
	if h.stores != nil {
		r.Route("/stores", h.stores.AdminRoutes)
	}
	if h.catalog != nil {
		r.Route("/categories", h.catalog.AdminCategoryRoutes)
	}
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.ListUsersCommand{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role := domain.UserRole(raw)
		switch role {
		case domain.UserRoleBuyer, domain.UserRoleSeller, domain.UserRoleAdmin:
			cmd.Role = &role
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown role filter", http.StatusBadRequest))
			return
		}
	}

	page, err := h.users.List(ctx, cmd)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	items := make([]userResponse, 0, len(page.Items))
	for _, user := range page.Items {
		items = append(items, newUserResponse(user))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}
