package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/services"
)

type stubStoreService struct {
	createFunc       func(ctx context.Context, cmd services.CreateStoreCommand) (services.Store, error)
	updateFunc       func(ctx context.Context, cmd services.UpdateStoreCommand) (services.Store, error)
	updateStatusFunc func(ctx context.Context, cmd services.UpdateStoreStatusCommand) (services.Store, error)
}

func (s *stubStoreService) Create(ctx context.Context, cmd services.CreateStoreCommand) (services.Store, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.Store{}, nil
}

func (s *stubStoreService) GetByID(ctx context.Context, storeID string) (services.Store, error) {
	return services.Store{ID: storeID}, nil
}

func (s *stubStoreService) GetByOwner(ctx context.Context, ownerID string) (services.Store, error) {
	return services.Store{OwnerID: ownerID}, nil
}

func (s *stubStoreService) List(ctx context.Context, cmd services.ListStoresCommand) (domain.CursorPage[services.Store], error) {
	return domain.CursorPage[services.Store]{}, nil
}

func (s *stubStoreService) Update(ctx context.Context, cmd services.UpdateStoreCommand) (services.Store, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return services.Store{}, nil
}

func (s *stubStoreService) UpdateStatus(ctx context.Context, cmd services.UpdateStoreStatusCommand) (services.Store, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, cmd)
	}
	return services.Store{}, nil
}

func (s *stubStoreService) Delete(ctx context.Context, cmd services.DeleteStoreCommand) error {
	return nil
}

func TestStoreHandlersCreateDefaultsOptionalFields(t *testing.T) {
	var captured services.CreateStoreCommand
	service := &stubStoreService{
		createFunc: func(ctx context.Context, cmd services.CreateStoreCommand) (services.Store, error) {
			captured = cmd
			return services.Store{ID: "store_1", OwnerID: cmd.OwnerID, Name: cmd.Name, Status: domain.StoreStatusActive}, nil
		},
	}

	handler := NewStoreHandlers(nil, service)
	router := NewRouter(WithStoreRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewBufferString(`{"name":"Acme"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Description != "" {
		t.Fatalf("absent description must default to empty, got %q", captured.Description)
	}
	if captured.Logo != nil {
		t.Fatalf("absent logo must stay nil, got %v", captured.Logo)
	}
}

func TestStoreHandlersUpdateDistinguishesAbsentFromNull(t *testing.T) {
	var captured services.UpdateStoreCommand
	service := &stubStoreService{
		updateFunc: func(ctx context.Context, cmd services.UpdateStoreCommand) (services.Store, error) {
			captured = cmd
			return services.Store{ID: cmd.StoreID}, nil
		},
	}

	handler := NewStoreHandlers(nil, service)
	router := NewRouter(WithStoreRoutes(handler.Routes))

	// logo: null clears the value, absent name leaves it untouched.
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/stores/store_1", bytes.NewBufferString(`{"logo":null,"description":"new text"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Name != nil {
		t.Fatalf("absent name must stay nil, got %v", captured.Name)
	}
	if captured.Description == nil || *captured.Description != "new text" {
		t.Fatalf("expected description pointer, got %v", captured.Description)
	}
	if captured.Logo == nil {
		t.Fatalf("explicit null logo must be forwarded as a clear request")
	}
	if *captured.Logo != nil {
		t.Fatalf("null logo must clear the value, got %v", **captured.Logo)
	}
}

func TestStoreHandlersUpdateStatusForwardsReason(t *testing.T) {
	var captured services.UpdateStoreStatusCommand
	service := &stubStoreService{
		updateStatusFunc: func(ctx context.Context, cmd services.UpdateStoreStatusCommand) (services.Store, error) {
			captured = cmd
			return services.Store{ID: cmd.StoreID, Status: cmd.Status}, nil
		},
	}

	handler := NewStoreHandlers(nil, service)
	router := NewRouter(WithAdminRoutes(func(r chi.Router) {
		r.Route("/stores", handler.AdminRoutes)
	}))

	body := bytes.NewBufferString(`{"status":"suspended","reason":"policy violation"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/stores/store_1/status", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "admin-1", Roles: []string{auth.RoleAdmin}}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Status != domain.StoreStatusSuspended {
		t.Fatalf("expected suspended status, got %s", captured.Status)
	}
	if captured.Reason != "policy violation" {
		t.Fatalf("unexpected reason %q", captured.Reason)
	}
}
