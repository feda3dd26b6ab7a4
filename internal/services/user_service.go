package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

var (
	// ErrUserInvalidInput indicates validation failures for profile operations.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates a profile could not be located.
	ErrUserNotFound = errors.New("user: not found")
)

// UserServiceDeps bundles collaborators required to construct a UserService.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		users: deps.Users,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

// EnsureProfile creates the profile document on first sign-in and returns the
// existing record on subsequent calls without overwriting role fields.
func (s *userService) EnsureProfile(ctx context.Context, cmd EnsureProfileCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	existing, err := s.users.FindByID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return User{}, err
	}

	now := s.clock()
	user := domain.User{
		ID:          userID,
		Email:       strings.TrimSpace(cmd.Email),
		DisplayName: strings.TrimSpace(cmd.DisplayName),
		Role:        domain.UserRoleBuyer,
		PhotoURL:    strings.TrimSpace(cmd.PhotoURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.users.Upsert(ctx, user)
}

func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	if cmd.DisplayName != nil {
		name := strings.TrimSpace(*cmd.DisplayName)
		if name == "" {
			return User{}, fmt.Errorf("%w: display name must not be empty", ErrUserInvalidInput)
		}
		user.DisplayName = name
	}
	if cmd.PhotoURL != nil {
		user.PhotoURL = strings.TrimSpace(*cmd.PhotoURL)
	}
	user.UpdatedAt = s.clock()

	return s.users.Upsert(ctx, user)
}

func (s *userService) List(ctx context.Context, cmd ListUsersCommand) (domain.CursorPage[User], error) {
	page, err := s.users.List(ctx, repositories.UserListFilter{
		Role:  cmd.Role,
		Pager: cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[User]{}, err
	}
	return page, nil
}
