package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

const (
	storeIDPrefix = "store_"

	storeEventSuspended   = "store.suspended"
	storeEventReactivated = "store.reactivated"
)

var (
	// ErrStoreInvalidInput indicates validation failures for store operations.
	ErrStoreInvalidInput = errors.New("store: invalid input")
	// ErrStoreNotFound indicates a store could not be located.
	ErrStoreNotFound = errors.New("store: not found")
	// ErrStoreConflict signals duplicate stores or conflicting updates.
	ErrStoreConflict = errors.New("store: conflict")
	// ErrStoreUnauthorized indicates the actor does not own the store.
	ErrStoreUnauthorized = errors.New("store: unauthorized")
	// ErrStoreSellerRequired indicates the actor is not an approved seller.
	ErrStoreSellerRequired = errors.New("store: seller approval required")
)

// StoreEventPublisher emits store moderation events to downstream consumers.
type StoreEventPublisher interface {
	PublishStoreEvent(ctx context.Context, event StoreEvent) error
}

// StoreEvent captures metadata for store lifecycle events.
type StoreEvent struct {
	Type       string
	StoreID    string
	OwnerID    string
	Status     domain.StoreStatus
	Reason     *string
	ActorID    string
	OccurredAt time.Time
}

// StoreServiceDeps bundles collaborators required to construct a StoreService.
type StoreServiceDeps struct {
	Stores      repositories.StoreRepository
	Users       repositories.UserRepository
	Clock       func() time.Time
	IDGenerator func() string
	Events      StoreEventPublisher
}

type storeService struct {
	stores repositories.StoreRepository
	users  repositories.UserRepository
	clock  func() time.Time
	newID  func() string
	events StoreEventPublisher
}

// NewStoreService wires dependencies into a concrete StoreService implementation.
func NewStoreService(deps StoreServiceDeps) (StoreService, error) {
	if deps.Stores == nil {
		return nil, errors.New("store service: store repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("store service: user repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return storeIDPrefix + ulid.Make().String()
		}
	}
	return &storeService{
		stores: deps.Stores,
		users:  deps.Users,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		events: deps.Events,
	}, nil
}

func (s *storeService) Create(ctx context.Context, cmd CreateStoreCommand) (Store, error) {
	ownerID := strings.TrimSpace(cmd.OwnerID)
	if ownerID == "" {
		return Store{}, fmt.Errorf("%w: owner id is required", ErrStoreInvalidInput)
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return Store{}, fmt.Errorf("%w: name is required", ErrStoreInvalidInput)
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if isNotFound(err) {
			return Store{}, fmt.Errorf("%w: owner not found", ErrStoreInvalidInput)
		}
		return Store{}, err
	}
	if !owner.IsApprovedSeller {
		return Store{}, ErrStoreSellerRequired
	}

	if _, err := s.stores.FindByOwner(ctx, ownerID); err == nil {
		return Store{}, fmt.Errorf("%w: owner already has a store", ErrStoreConflict)
	} else if !isNotFound(err) {
		return Store{}, err
	}

	store, err := domain.NewStore(s.newID(), ownerID, cmd.Name, cmd.Description, cmd.Logo, s.clock())
	if err != nil {
		return Store{}, fmt.Errorf("%w: %v", ErrStoreInvalidInput, err)
	}
	if err := s.stores.Insert(ctx, store); err != nil {
		return Store{}, s.mapStoreError(err)
	}
	return store, nil
}

func (s *storeService) GetByID(ctx context.Context, storeID string) (Store, error) {
	if strings.TrimSpace(storeID) == "" {
		return Store{}, fmt.Errorf("%w: store id is required", ErrStoreInvalidInput)
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return Store{}, s.mapStoreError(err)
	}
	return store, nil
}

func (s *storeService) GetByOwner(ctx context.Context, ownerID string) (Store, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Store{}, fmt.Errorf("%w: owner id is required", ErrStoreInvalidInput)
	}
	store, err := s.stores.FindByOwner(ctx, ownerID)
	if err != nil {
		return Store{}, s.mapStoreError(err)
	}
	return store, nil
}

func (s *storeService) List(ctx context.Context, cmd ListStoresCommand) (domain.CursorPage[Store], error) {
	page, err := s.stores.List(ctx, repositories.StoreListFilter{
		Status: cmd.Status,
		Pager:  cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Store]{}, s.mapStoreError(err)
	}
	return page, nil
}

func (s *storeService) Update(ctx context.Context, cmd UpdateStoreCommand) (Store, error) {
	if strings.TrimSpace(cmd.StoreID) == "" {
		return Store{}, fmt.Errorf("%w: store id is required", ErrStoreInvalidInput)
	}

	store, err := s.stores.FindByID(ctx, cmd.StoreID)
	if err != nil {
		return Store{}, s.mapStoreError(err)
	}
	if !cmd.AllowStaff && store.OwnerID != cmd.ActorID {
		return Store{}, ErrStoreUnauthorized
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Store{}, fmt.Errorf("%w: name must not be empty", ErrStoreInvalidInput)
		}
		store.Name = name
	}
	if cmd.Description != nil {
		store.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Logo != nil {
		store.Logo = *cmd.Logo
	}
	store.UpdatedAt = s.clock()

	if err := s.stores.Update(ctx, store); err != nil {
		return Store{}, s.mapStoreError(err)
	}
	return store, nil
}

// UpdateStatus suspends or reactivates a storefront. An empty reason clears
// the stored one rather than persisting a blank string.
func (s *storeService) UpdateStatus(ctx context.Context, cmd UpdateStoreStatusCommand) (Store, error) {
	if strings.TrimSpace(cmd.StoreID) == "" {
		return Store{}, fmt.Errorf("%w: store id is required", ErrStoreInvalidInput)
	}
	switch cmd.Status {
	case domain.StoreStatusActive, domain.StoreStatusSuspended:
	default:
		return Store{}, fmt.Errorf("%w: unsupported status %q", ErrStoreInvalidInput, cmd.Status)
	}

	store, err := s.stores.FindByID(ctx, cmd.StoreID)
	if err != nil {
		return Store{}, s.mapStoreError(err)
	}

	store.Status = cmd.Status
	store.StatusReason = nil
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		store.StatusReason = &reason
	}
	store.UpdatedAt = s.clock()

	if err := s.stores.Update(ctx, store); err != nil {
		return Store{}, s.mapStoreError(err)
	}

	eventType := storeEventReactivated
	if cmd.Status == domain.StoreStatusSuspended {
		eventType = storeEventSuspended
	}
	s.emitEvent(ctx, eventType, store, cmd.ActorID)

	return store, nil
}

func (s *storeService) Delete(ctx context.Context, cmd DeleteStoreCommand) error {
	if strings.TrimSpace(cmd.StoreID) == "" {
		return fmt.Errorf("%w: store id is required", ErrStoreInvalidInput)
	}

	store, err := s.stores.FindByID(ctx, cmd.StoreID)
	if err != nil {
		return s.mapStoreError(err)
	}
	if !cmd.AllowStaff && store.OwnerID != cmd.ActorID {
		return ErrStoreUnauthorized
	}
	if err := s.stores.Delete(ctx, cmd.StoreID); err != nil {
		return s.mapStoreError(err)
	}
	return nil
}

func (s *storeService) emitEvent(ctx context.Context, eventType string, store Store, actorID string) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishStoreEvent(ctx, StoreEvent{
		Type:       eventType,
		StoreID:    store.ID,
		OwnerID:    store.OwnerID,
		Status:     store.Status,
		Reason:     store.StatusReason,
		ActorID:    actorID,
		OccurredAt: s.clock(),
	})
}

func (s *storeService) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return ErrStoreNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", ErrStoreConflict, err)
	}
	return err
}
