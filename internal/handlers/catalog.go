package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/httpx"
	"github.com/marketgate/api/internal/platform/jsonx"
	"github.com/marketgate/api/internal/services"
)

const maxCatalogBodySize = 32 * 1024

// CatalogHandlers serves the category taxonomy and product listings.
type CatalogHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{authn: authn, catalog: catalog}
}

// CategoryRoutes registers the public category reads.
func (h *CatalogHandlers) CategoryRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCategories)
	r.Get("/{categoryID}", h.getCategory)
}

// AdminCategoryRoutes registers the taxonomy writes under the admin group.
func (h *CatalogHandlers) AdminCategoryRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createCategory)
	r.Patch("/{categoryID}", h.updateCategory)
	r.Delete("/{categoryID}", h.deleteCategory)
}

// ProductRoutes registers public product reads and seller-scoped writes.
func (h *CatalogHandlers) ProductRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireFirebaseAuth())
		}
		pr.Post("/", h.createProduct)
		pr.Patch("/{productID}", h.updateProduct)
		pr.Delete("/{productID}", h.deleteProduct)
	})
}

type categoryResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func newCategoryResponse(category services.Category) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		ParentID:  cloneStringPointer(category.ParentID),
		CreatedAt: formatTime(category.CreatedAt),
		UpdatedAt: formatTime(category.UpdatedAt),
	}
}

type productResponse struct {
	ID          string `json:"id"`
	StoreID     string `json:"storeId"`
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func newProductResponse(product services.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		StoreID:     product.StoreID,
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
	}
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.ListCategoriesCommand{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("parentId")); raw != "" {
		cmd.ParentID = &raw
	}

	page, err := h.catalog.ListCategories(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]categoryResponse, 0, len(page.Items))
	for _, category := range page.Items {
		items = append(items, newCategoryResponse(category))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *CatalogHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category, err := h.catalog.GetCategory(ctx, chi.URLParam(r, "categoryID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCategoryResponse(category))
}

type createCategoryRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (h *CatalogHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload createCategoryRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	category, err := h.catalog.CreateCategory(ctx, services.CreateCategoryCommand{
		Name:     payload.Name,
		ParentID: payload.ParentID,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newCategoryResponse(category))
}

type updateCategoryRequest struct {
	Name     jsonx.Optional[string] `json:"name"`
	ParentID jsonx.Optional[string] `json:"parentId"`
}

func (h *CatalogHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateCategoryRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if payload.Name.IsNull() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "name cannot be null", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateCategoryCommand{CategoryID: chi.URLParam(r, "categoryID")}
	if name, ok := payload.Name.Value(); ok {
		cmd.Name = &name
	}
	if payload.ParentID.IsSet() {
		var parent *string
		if value, ok := payload.ParentID.Value(); ok {
			parent = &value
		}
		cmd.ParentID = &parent
	}

	category, err := h.catalog.UpdateCategory(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "categoryID")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, ok := parsePagination(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.ListProductsCommand{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("storeId")); raw != "" {
		cmd.StoreID = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("categoryId")); raw != "" {
		cmd.CategoryID = &raw
	}

	page, err := h.catalog.ListProducts(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productResponse, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, newProductResponse(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items":         items,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductResponse(product))
}

type createProductRequest struct {
	StoreID     string                 `json:"storeId"`
	CategoryID  string                 `json:"categoryId"`
	Name        string                 `json:"name"`
	Description jsonx.Optional[string] `json:"description"`
	Price       int64                  `json:"price"`
	Stock       int                    `json:"stock"`
}

func (h *CatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload createProductRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		StoreID:     payload.StoreID,
		CategoryID:  payload.CategoryID,
		Name:        payload.Name,
		Description: payload.Description.Or(""),
		Price:       payload.Price,
		Stock:       payload.Stock,
		ActorID:     identity.UID,
		AllowStaff:  identity.IsAdmin(),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newProductResponse(product))
}

type updateProductRequest struct {
	CategoryID  jsonx.Optional[string] `json:"categoryId"`
	Name        jsonx.Optional[string] `json:"name"`
	Description jsonx.Optional[string] `json:"description"`
	Price       jsonx.Optional[int64]  `json:"price"`
	Stock       jsonx.Optional[int]    `json:"stock"`
}

func (h *CatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateProductRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if payload.Name.IsNull() || payload.CategoryID.IsNull() || payload.Price.IsNull() || payload.Stock.IsNull() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "fields cannot be null", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateProductCommand{
		ProductID:  chi.URLParam(r, "productID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}
	if category, ok := payload.CategoryID.Value(); ok {
		cmd.CategoryID = &category
	}
	if name, ok := payload.Name.Value(); ok {
		cmd.Name = &name
	}
	if payload.Description.IsSet() {
		description := payload.Description.Or("")
		cmd.Description = &description
	}
	if price, ok := payload.Price.Value(); ok {
		cmd.Price = &price
	}
	if stock, ok := payload.Stock.Value(); ok {
		cmd.Stock = &stock
	}

	product, err := h.catalog.UpdateProduct(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, services.DeleteProductCommand{
		ProductID:  chi.URLParam(r, "productID"),
		ActorID:    identity.UID,
		AllowStaff: identity.IsAdmin(),
	}); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", messageAfterSentinel(err, services.ErrCatalogInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", messageAfterSentinel(err, services.ErrCatalogConflict), http.StatusConflict))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to modify this listing", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
