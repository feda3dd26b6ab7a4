package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/marketgate/api/internal/domain"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
	repositories "github.com/marketgate/api/internal/repositories"
)

const storeCollection = "stores"

// StoreRepository persists storefronts in Firestore.
type StoreRepository struct {
	base *pfirestore.BaseRepository[storeDocument]
}

// NewStoreRepository constructs a Firestore-backed store repository.
func NewStoreRepository(provider *pfirestore.Provider) (*StoreRepository, error) {
	if provider == nil {
		return nil, errors.New("store repository requires firestore provider")
	}
	return &StoreRepository{
		base: pfirestore.NewBaseRepository[storeDocument](provider, storeCollection),
	}, nil
}

// Insert writes a new store; an existing ID yields a conflict.
func (r *StoreRepository) Insert(ctx context.Context, store domain.Store) error {
	if r == nil || r.base == nil {
		return errors.New("store repository not initialised")
	}
	if strings.TrimSpace(store.ID) == "" {
		return errors.New("store id is required")
	}
	_, err := r.base.Create(ctx, store.ID, fromDomainStore(store))
	return err
}

// Update replaces the store document.
func (r *StoreRepository) Update(ctx context.Context, store domain.Store) error {
	if r == nil || r.base == nil {
		return errors.New("store repository not initialised")
	}
	if strings.TrimSpace(store.ID) == "" {
		return errors.New("store id is required")
	}
	_, err := r.base.Set(ctx, store.ID, fromDomainStore(store))
	return err
}

// FindByID loads the store by ID.
func (r *StoreRepository) FindByID(ctx context.Context, storeID string) (domain.Store, error) {
	if r == nil || r.base == nil {
		return domain.Store{}, errors.New("store repository not initialised")
	}
	if strings.TrimSpace(storeID) == "" {
		return domain.Store{}, errors.New("store id is required")
	}

	doc, err := r.base.Get(ctx, storeID)
	if err != nil {
		return domain.Store{}, err
	}
	return toDomainStore(doc.ID, doc.Data), nil
}

// FindByOwner resolves the single store owned by the given seller.
func (r *StoreRepository) FindByOwner(ctx context.Context, ownerID string) (domain.Store, error) {
	if r == nil || r.base == nil {
		return domain.Store{}, errors.New("store repository not initialised")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Store{}, errors.New("owner id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("ownerId", "==", ownerID).Limit(1)
	})
	if err != nil {
		return domain.Store{}, err
	}
	if len(docs) == 0 {
		return domain.Store{}, pfirestore.NotFoundError("stores.find_by_owner",
			errors.New("no store for owner"))
	}
	return toDomainStore(docs[0].ID, docs[0].Data), nil
}

// List pages through stores, optionally filtered by status.
func (r *StoreRepository) List(ctx context.Context, filter repositories.StoreListFilter) (domain.CursorPage[domain.Store], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Store]{}, errors.New("store repository not initialised")
	}

	limit, fetch := fetchLimits(filter.Pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Store]{}, pfirestore.ConflictError("stores.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetch > 0 {
			q = q.Limit(fetch)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Store]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Store, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainStore(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Store]{Items: items, NextPageToken: nextToken}, nil
}

// Delete removes the store document.
func (r *StoreRepository) Delete(ctx context.Context, storeID string) error {
	if r == nil || r.base == nil {
		return errors.New("store repository not initialised")
	}
	if strings.TrimSpace(storeID) == "" {
		return errors.New("store id is required")
	}
	return r.base.Delete(ctx, storeID)
}

type storeDocument struct {
	OwnerID      string    `firestore:"ownerId"`
	Name         string    `firestore:"name"`
	Description  string    `firestore:"description"`
	Logo         *string   `firestore:"logo"`
	Status       string    `firestore:"status"`
	StatusReason *string   `firestore:"statusReason"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func toDomainStore(id string, doc storeDocument) domain.Store {
	return domain.Store{
		ID:           id,
		OwnerID:      doc.OwnerID,
		Name:         doc.Name,
		Description:  doc.Description,
		Logo:         doc.Logo,
		Status:       domain.StoreStatus(doc.Status),
		StatusReason: doc.StatusReason,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func fromDomainStore(store domain.Store) storeDocument {
	return storeDocument{
		OwnerID:      strings.TrimSpace(store.OwnerID),
		Name:         strings.TrimSpace(store.Name),
		Description:  store.Description,
		Logo:         store.Logo,
		Status:       string(store.Status),
		StatusReason: store.StatusReason,
		CreatedAt:    store.CreatedAt.UTC(),
		UpdatedAt:    store.UpdatedAt.UTC(),
	}
}
