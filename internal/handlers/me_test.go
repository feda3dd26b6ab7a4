package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/services"
)

type stubUserService struct {
	getFunc           func(ctx context.Context, userID string) (services.User, error)
	ensureProfileFunc func(ctx context.Context, cmd services.EnsureProfileCommand) (services.User, error)
	updateProfileFunc func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error)
	listFunc          func(ctx context.Context, cmd services.ListUsersCommand) (domain.CursorPage[services.User], error)
}

func (s *stubUserService) GetByID(ctx context.Context, userID string) (services.User, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID)
	}
	return services.User{}, nil
}

func (s *stubUserService) EnsureProfile(ctx context.Context, cmd services.EnsureProfileCommand) (services.User, error) {
	if s.ensureProfileFunc != nil {
		return s.ensureProfileFunc(ctx, cmd)
	}
	return services.User{}, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
	if s.updateProfileFunc != nil {
		return s.updateProfileFunc(ctx, cmd)
	}
	return services.User{}, nil
}

func (s *stubUserService) List(ctx context.Context, cmd services.ListUsersCommand) (domain.CursorPage[services.User], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, cmd)
	}
	return domain.CursorPage[services.User]{}, nil
}

func TestMeHandlersGetProfile(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := &stubUserService{
		ensureProfileFunc: func(ctx context.Context, cmd services.EnsureProfileCommand) (services.User, error) {
			return services.User{
				ID:          cmd.UserID,
				Email:       cmd.Email,
				DisplayName: "Jess",
				Role:        domain.UserRoleBuyer,
				PhotoURL:    "https://cdn.marketgate.dev/u/user-1.png",
				CreatedAt:   now,
				UpdatedAt:   now,
			}, nil
		},
	}

	handler := NewMeHandlers(nil, service, nil)
	router := NewRouter(WithMeRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1", Email: "buyer@example.com"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload userResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != "user-1" {
		t.Fatalf("expected id user-1, got %s", payload.ID)
	}
	if payload.Role != string(domain.UserRoleBuyer) {
		t.Fatalf("expected buyer role, got %s", payload.Role)
	}
	if payload.PhotoURL == nil || *payload.PhotoURL != "https://cdn.marketgate.dev/u/user-1.png" {
		t.Fatalf("expected photo url preserved, got %v", payload.PhotoURL)
	}
}

func TestMeHandlersGetProfileWithoutPhoto(t *testing.T) {
	service := &stubUserService{
		ensureProfileFunc: func(ctx context.Context, cmd services.EnsureProfileCommand) (services.User, error) {
			return services.User{ID: cmd.UserID, Email: cmd.Email, Role: domain.UserRoleBuyer}, nil
		},
	}

	handler := NewMeHandlers(nil, service, nil)
	router := NewRouter(WithMeRoutes(handler.Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-2"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	raw, ok := payload["photoUrl"]
	if !ok {
		t.Fatal("photoUrl key must always be present")
	}
	if string(raw) != "null" {
		t.Fatalf("expected null photoUrl for an empty profile, got %s", raw)
	}
}
