package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/marketgate/api/internal/domain"
)

func newTestUserService(t *testing.T, users *stubUserRepo) UserService {
	t.Helper()
	svc, err := NewUserService(UserServiceDeps{Users: users, Clock: fixedClock()})
	if err != nil {
		t.Fatalf("new user service: %v", err)
	}
	return svc
}

func TestEnsureProfileCreatesOnce(t *testing.T) {
	users := &stubUserRepo{users: map[string]domain.User{}}
	svc := newTestUserService(t, users)

	created, err := svc.EnsureProfile(context.Background(), EnsureProfileCommand{
		UserID: "user_1",
		Email:  "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created.Role != domain.UserRoleBuyer {
		t.Fatalf("expected default buyer role, got %s", created.Role)
	}

	// A later sign-in must not reset role fields mutated by seller approval.
	promoted := users.users["user_1"]
	promoted.Role = domain.UserRoleSeller
	promoted.IsApprovedSeller = true
	users.users["user_1"] = promoted

	again, err := svc.EnsureProfile(context.Background(), EnsureProfileCommand{
		UserID: "user_1",
		Email:  "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.Role != domain.UserRoleSeller || !again.IsApprovedSeller {
		t.Fatalf("existing profile must be returned untouched, got %+v", again)
	}
}

func TestUpdateProfileValidatesDisplayName(t *testing.T) {
	users := &stubUserRepo{users: map[string]domain.User{
		"user_1": {ID: "user_1", DisplayName: "Original"},
	}}
	svc := newTestUserService(t, users)

	empty := "   "
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		UserID:      "user_1",
		DisplayName: &empty,
	})
	if !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if users.users["user_1"].DisplayName != "Original" {
		t.Fatalf("display name must not change on validation failure")
	}
}

func TestGetByIDMissingUser(t *testing.T) {
	svc := newTestUserService(t, &stubUserRepo{})

	if _, err := svc.GetByID(context.Background(), "user_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
