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

const userCollection = "users"

// UserRepository persists account profiles in Firestore.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base:     pfirestore.NewBaseRepository[userDocument](provider, userCollection),
		provider: provider,
	}, nil
}

// FindByID loads the profile by account UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// Upsert writes the full profile document.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.User{}, errors.New("user id is required")
	}

	doc := fromDomainUser(user)
	if _, err := r.base.Set(ctx, user.ID, doc); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(user.ID, doc), nil
}

// UpdateRole patches only the role fields, leaving profile data untouched.
// The document must already exist.
func (r *UserRepository) UpdateRole(ctx context.Context, userID string, patch repositories.UserRolePatch) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, errors.New("user id is required")
	}

	updates := []firestore.Update{
		{Path: "role", Value: string(patch.Role)},
		{Path: "isApprovedSeller", Value: patch.IsApprovedSeller},
		{Path: "updatedAt", Value: patch.UpdatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, userID, updates, firestore.Exists); err != nil {
		return domain.User{}, err
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// List pages through profiles, optionally filtered by role.
func (r *UserRepository) List(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.User]{}, errors.New("user repository not initialised")
	}

	limit, fetch := fetchLimits(filter.Pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.User]{}, pfirestore.ConflictError("users.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Role != nil {
			q = q.Where("role", "==", string(*filter.Role))
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
		return domain.CursorPage[domain.User]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainUser(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.User]{Items: items, NextPageToken: nextToken}, nil
}

type userDocument struct {
	Email            string    `firestore:"email"`
	DisplayName      string    `firestore:"displayName"`
	Role             string    `firestore:"role"`
	IsApprovedSeller bool      `firestore:"isApprovedSeller"`
	PhotoURL         string    `firestore:"photoURL,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

func toDomainUser(id string, doc userDocument) domain.User {
	role := domain.UserRole(strings.TrimSpace(doc.Role))
	if role == "" {
		role = domain.UserRoleBuyer
	}
	return domain.User{
		ID:               id,
		Email:            strings.TrimSpace(doc.Email),
		DisplayName:      doc.DisplayName,
		Role:             role,
		IsApprovedSeller: doc.IsApprovedSeller,
		PhotoURL:         strings.TrimSpace(doc.PhotoURL),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func fromDomainUser(user domain.User) userDocument {
	return userDocument{
		Email:            strings.ToLower(strings.TrimSpace(user.Email)),
		DisplayName:      strings.TrimSpace(user.DisplayName),
		Role:             string(user.Role),
		IsApprovedSeller: user.IsApprovedSeller,
		PhotoURL:         strings.TrimSpace(user.PhotoURL),
		CreatedAt:        user.CreatedAt.UTC(),
		UpdatedAt:        user.UpdatedAt.UTC(),
	}
}
