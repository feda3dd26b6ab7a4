package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

type stubStoreRepo struct {
	stores      map[string]domain.Store
	insertCalls int
	updateCalls int
}

func newStubStoreRepo(seed ...domain.Store) *stubStoreRepo {
	repo := &stubStoreRepo{stores: map[string]domain.Store{}}
	for _, store := range seed {
		repo.stores[store.ID] = store
	}
	return repo
}

func (r *stubStoreRepo) Insert(ctx context.Context, store domain.Store) error {
	r.insertCalls++
	if _, ok := r.stores[store.ID]; ok {
		return &stubRepoError{conflict: true}
	}
	r.stores[store.ID] = store
	return nil
}

func (r *stubStoreRepo) Update(ctx context.Context, store domain.Store) error {
	r.updateCalls++
	r.stores[store.ID] = store
	return nil
}

func (r *stubStoreRepo) FindByID(ctx context.Context, storeID string) (domain.Store, error) {
	store, ok := r.stores[storeID]
	if !ok {
		return domain.Store{}, &stubRepoError{notFound: true}
	}
	return store, nil
}

func (r *stubStoreRepo) FindByOwner(ctx context.Context, ownerID string) (domain.Store, error) {
	for _, store := range r.stores {
		if store.OwnerID == ownerID {
			return store, nil
		}
	}
	return domain.Store{}, &stubRepoError{notFound: true}
}

func (r *stubStoreRepo) List(ctx context.Context, filter repositories.StoreListFilter) (domain.CursorPage[domain.Store], error) {
	var items []domain.Store
	for _, store := range r.stores {
		if filter.Status != nil && store.Status != *filter.Status {
			continue
		}
		items = append(items, store)
	}
	return domain.CursorPage[domain.Store]{Items: items}, nil
}

func (r *stubStoreRepo) Delete(ctx context.Context, storeID string) error {
	if _, ok := r.stores[storeID]; !ok {
		return &stubRepoError{notFound: true}
	}
	delete(r.stores, storeID)
	return nil
}

func newTestStoreService(t *testing.T, stores *stubStoreRepo, users *stubUserRepo) StoreService {
	t.Helper()
	svc, err := NewStoreService(StoreServiceDeps{
		Stores:      stores,
		Users:       users,
		Clock:       fixedClock(),
		IDGenerator: func() string { return "store_test" },
	})
	if err != nil {
		t.Fatalf("new store service: %v", err)
	}
	return svc
}

func approvedSeller(id string) domain.User {
	return domain.User{ID: id, Role: domain.UserRoleSeller, IsApprovedSeller: true}
}

func TestCreateStoreRequiresApprovedSeller(t *testing.T) {
	stores := newStubStoreRepo()
	users := &stubUserRepo{users: map[string]domain.User{
		"user_1": {ID: "user_1", Role: domain.UserRoleBuyer},
	}}
	svc := newTestStoreService(t, stores, users)

	_, err := svc.Create(context.Background(), CreateStoreCommand{OwnerID: "user_1", Name: "Acme"})
	if !errors.Is(err, ErrStoreSellerRequired) {
		t.Fatalf("expected seller approval error, got %v", err)
	}
	if stores.insertCalls != 0 {
		t.Fatalf("store must not be created for unapproved seller")
	}
}

func TestCreateStoreRejectsSecondStore(t *testing.T) {
	existing := domain.Store{ID: "store_1", OwnerID: "user_1", Name: "First", Status: domain.StoreStatusActive}
	stores := newStubStoreRepo(existing)
	users := &stubUserRepo{users: map[string]domain.User{"user_1": approvedSeller("user_1")}}
	svc := newTestStoreService(t, stores, users)

	_, err := svc.Create(context.Background(), CreateStoreCommand{OwnerID: "user_1", Name: "Second"})
	if !errors.Is(err, ErrStoreConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateStoreDefaults(t *testing.T) {
	stores := newStubStoreRepo()
	users := &stubUserRepo{users: map[string]domain.User{"user_1": approvedSeller("user_1")}}
	svc := newTestStoreService(t, stores, users)

	store, err := svc.Create(context.Background(), CreateStoreCommand{OwnerID: "user_1", Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.Description != "" {
		t.Fatalf("expected empty description default, got %q", store.Description)
	}
	if store.Logo != nil {
		t.Fatalf("expected nil logo default, got %v", *store.Logo)
	}
	if store.Status != domain.StoreStatusActive {
		t.Fatalf("expected active status, got %s", store.Status)
	}
}

func TestUpdateStoreEnforcesOwnership(t *testing.T) {
	stores := newStubStoreRepo(domain.Store{ID: "store_1", OwnerID: "user_1", Name: "Acme", Status: domain.StoreStatusActive})
	users := &stubUserRepo{}
	svc := newTestStoreService(t, stores, users)

	name := "Renamed"
	_, err := svc.Update(context.Background(), UpdateStoreCommand{
		StoreID: "store_1",
		ActorID: "user_2",
		Name:    &name,
	})
	if !errors.Is(err, ErrStoreUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if stores.updateCalls != 0 {
		t.Fatalf("store must not be updated by a non-owner")
	}
}

func TestUpdateStoreStatusReasonHandling(t *testing.T) {
	stores := newStubStoreRepo(domain.Store{ID: "store_1", OwnerID: "user_1", Name: "Acme", Status: domain.StoreStatusActive})
	svc := newTestStoreService(t, stores, &stubUserRepo{})

	suspended, err := svc.UpdateStatus(context.Background(), UpdateStoreStatusCommand{
		StoreID: "store_1",
		Status:  domain.StoreStatusSuspended,
		Reason:  "policy violation",
		ActorID: "admin_1",
	})
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if suspended.StatusReason == nil || *suspended.StatusReason != "policy violation" {
		t.Fatalf("expected reason to persist, got %v", suspended.StatusReason)
	}

	// An empty reason clears the stored one instead of writing a blank string.
	restored, err := svc.UpdateStatus(context.Background(), UpdateStoreStatusCommand{
		StoreID: "store_1",
		Status:  domain.StoreStatusActive,
		Reason:  "",
		ActorID: "admin_1",
	})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if restored.StatusReason != nil {
		t.Fatalf("expected nil reason for empty input, got %q", *restored.StatusReason)
	}
}

func TestDeleteStoreMissing(t *testing.T) {
	svc := newTestStoreService(t, newStubStoreRepo(), &stubUserRepo{})

	err := svc.Delete(context.Background(), DeleteStoreCommand{StoreID: "store_missing", ActorID: "user_1"})
	if !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
