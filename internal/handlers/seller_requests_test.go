package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/services"
)

type stubSellerRequestService struct {
	createFunc       func(ctx context.Context, cmd services.CreateSellerRequestCommand) (services.SellerRequest, error)
	getFunc          func(ctx context.Context, cmd services.GetSellerRequestCommand) (services.SellerRequest, error)
	listFunc         func(ctx context.Context, cmd services.ListSellerRequestsCommand) (domain.CursorPage[services.SellerRequest], error)
	updateStatusFunc func(ctx context.Context, cmd services.UpdateSellerRequestStatusCommand) (services.SellerRequest, error)
	deleteFunc       func(ctx context.Context, cmd services.DeleteSellerRequestCommand) error
}

func (s *stubSellerRequestService) Create(ctx context.Context, cmd services.CreateSellerRequestCommand) (services.SellerRequest, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.SellerRequest{}, nil
}

func (s *stubSellerRequestService) GetByID(ctx context.Context, cmd services.GetSellerRequestCommand) (services.SellerRequest, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, cmd)
	}
	return services.SellerRequest{}, nil
}

func (s *stubSellerRequestService) List(ctx context.Context, cmd services.ListSellerRequestsCommand) (domain.CursorPage[services.SellerRequest], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, cmd)
	}
	return domain.CursorPage[services.SellerRequest]{}, nil
}

func (s *stubSellerRequestService) UpdateStatus(ctx context.Context, cmd services.UpdateSellerRequestStatusCommand) (services.SellerRequest, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, cmd)
	}
	return services.SellerRequest{}, nil
}

func (s *stubSellerRequestService) Delete(ctx context.Context, cmd services.DeleteSellerRequestCommand) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, cmd)
	}
	return nil
}

func TestSellerRequestHandlersCreateSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	request := services.SellerRequest{
		ID:        "sreq_123",
		UserID:    "user-1",
		Status:    domain.SellerRequestStatusPending,
		Message:   "please approve me",
		CreatedAt: now,
		UpdatedAt: now,
	}

	var captured services.CreateSellerRequestCommand
	service := &stubSellerRequestService{
		createFunc: func(ctx context.Context, cmd services.CreateSellerRequestCommand) (services.SellerRequest, error) {
			captured = cmd
			return request, nil
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithSellerRequestRoutes(handler.Routes))

	body := bytes.NewBufferString(`{"message":"please approve me"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller-requests", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != "user-1" {
		t.Fatalf("expected identity propagated, got %s", captured.UserID)
	}
	if captured.Message != "please approve me" {
		t.Fatalf("unexpected message %q", captured.Message)
	}

	var payload sellerRequestResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != request.ID {
		t.Fatalf("expected id %s, got %s", request.ID, payload.ID)
	}
	if payload.Status != string(domain.SellerRequestStatusPending) {
		t.Fatalf("expected pending status, got %s", payload.Status)
	}
	if payload.CreatedAt != formatTime(now) {
		t.Fatalf("expected createdAt %s, got %s", formatTime(now), payload.CreatedAt)
	}
}

func TestSellerRequestHandlersCreateWithoutBody(t *testing.T) {
	var captured services.CreateSellerRequestCommand
	service := &stubSellerRequestService{
		createFunc: func(ctx context.Context, cmd services.CreateSellerRequestCommand) (services.SellerRequest, error) {
			captured = cmd
			return services.SellerRequest{ID: "sreq_1", UserID: cmd.UserID, Status: domain.SellerRequestStatusPending}, nil
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithSellerRequestRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller-requests", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for empty body, got %d", resp.Code)
	}
	if captured.Message != "" {
		t.Fatalf("expected empty message, got %q", captured.Message)
	}
}

func TestSellerRequestHandlersCreateConflict(t *testing.T) {
	service := &stubSellerRequestService{
		createFunc: func(ctx context.Context, cmd services.CreateSellerRequestCommand) (services.SellerRequest, error) {
			return services.SellerRequest{}, fmt.Errorf("%w: User already has a pending request", services.ErrSellerRequestConflict)
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithSellerRequestRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller-requests", bytes.NewBufferString(`{"message":"again"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Error != "conflict" {
		t.Fatalf("expected conflict code, got %s", payload.Error)
	}
	if payload.Message != "User already has a pending request" {
		t.Fatalf("expected exact conflict message, got %q", payload.Message)
	}
}

func TestSellerRequestHandlersUpdateStatusTerminal(t *testing.T) {
	service := &stubSellerRequestService{
		updateStatusFunc: func(ctx context.Context, cmd services.UpdateSellerRequestStatusCommand) (services.SellerRequest, error) {
			return services.SellerRequest{}, fmt.Errorf("%w: Only pending requests can be updated", services.ErrSellerRequestConflict)
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithAdminRoutes(func(r chi.Router) {
		r.Route("/seller-requests", handler.AdminRoutes)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/seller-requests/sreq_1/status", bytes.NewBufferString(`{"status":"approved"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "admin-1", Roles: []string{auth.RoleAdmin}}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Message != "Only pending requests can be updated" {
		t.Fatalf("expected exact terminal message, got %q", payload.Message)
	}
}

func TestSellerRequestHandlersUpdateStatusSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var captured services.UpdateSellerRequestStatusCommand
	service := &stubSellerRequestService{
		updateStatusFunc: func(ctx context.Context, cmd services.UpdateSellerRequestStatusCommand) (services.SellerRequest, error) {
			captured = cmd
			return services.SellerRequest{
				ID:           cmd.RequestID,
				UserID:       "user-1",
				Status:       cmd.Status,
				AdminComment: cmd.AdminComment,
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithAdminRoutes(func(r chi.Router) {
		r.Route("/seller-requests", handler.AdminRoutes)
	}))

	body := bytes.NewBufferString(`{"status":"approved","adminComment":"welcome aboard"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/seller-requests/sreq_1/status", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "admin-1", Roles: []string{auth.RoleAdmin}}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.RequestID != "sreq_1" {
		t.Fatalf("expected request id from path, got %s", captured.RequestID)
	}
	if captured.Status != domain.SellerRequestStatusApproved {
		t.Fatalf("expected approved status, got %s", captured.Status)
	}
	if captured.AdminComment != "welcome aboard" {
		t.Fatalf("unexpected admin comment %q", captured.AdminComment)
	}
	if captured.ActorID != "admin-1" {
		t.Fatalf("expected actor admin-1, got %s", captured.ActorID)
	}
}

func TestSellerRequestHandlersGetForbidden(t *testing.T) {
	service := &stubSellerRequestService{
		getFunc: func(ctx context.Context, cmd services.GetSellerRequestCommand) (services.SellerRequest, error) {
			return services.SellerRequest{}, fmt.Errorf("%w: actor may only read own requests", services.ErrSellerRequestUnauthorized)
		},
	}

	handler := NewSellerRequestHandlers(nil, service)
	router := NewRouter(WithSellerRequestRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller-requests/sreq_1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-2"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestSellerRequestHandlersUnauthenticated(t *testing.T) {
	handler := NewSellerRequestHandlers(nil, &stubSellerRequestService{})

	req := httptest.NewRequest(http.MethodPost, "/seller-requests", bytes.NewBufferString(`{"message":"hi"}`))
	resp := httptest.NewRecorder()

	handler.create(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}
