package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/marketgate/api/internal/domain"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
	repositories "github.com/marketgate/api/internal/repositories"
)

const (
	sellerRequestCollection = "seller_requests"
	// sellerRequestIndexCollection keeps one pointer document per user so a
	// transaction can enforce at most one pending request per account.
	sellerRequestIndexCollection = "seller_request_index"
)

// SellerRequestRepository persists seller petitions in Firestore.
type SellerRequestRepository struct {
	base     *pfirestore.BaseRepository[sellerRequestDocument]
	index    *pfirestore.BaseRepository[sellerRequestIndexDocument]
	provider *pfirestore.Provider
}

// NewSellerRequestRepository constructs a Firestore-backed seller request repository.
func NewSellerRequestRepository(provider *pfirestore.Provider) (*SellerRequestRepository, error) {
	if provider == nil {
		return nil, errors.New("seller request repository requires firestore provider")
	}
	return &SellerRequestRepository{
		base:     pfirestore.NewBaseRepository[sellerRequestDocument](provider, sellerRequestCollection),
		index:    pfirestore.NewBaseRepository[sellerRequestIndexDocument](provider, sellerRequestIndexCollection),
		provider: provider,
	}, nil
}

// Create writes a pending request and its per-user index entry in one
// transaction. A user with a live pending request gets a conflict.
func (r *SellerRequestRepository) Create(ctx context.Context, request domain.SellerRequest) (domain.SellerRequest, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.SellerRequest{}, errors.New("seller request repository not initialised")
	}
	if strings.TrimSpace(request.ID) == "" {
		return domain.SellerRequest{}, errors.New("seller request id is required")
	}
	if strings.TrimSpace(request.UserID) == "" {
		return domain.SellerRequest{}, errors.New("seller request user id is required")
	}

	doc := fromDomainSellerRequest(request)
	indexDoc := sellerRequestIndexDocument{
		RequestID: request.ID,
		Status:    string(request.Status),
		UpdatedAt: request.UpdatedAt.UTC(),
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		indexRef, err := r.index.DocumentRef(ctx, request.UserID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(indexRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			var existing sellerRequestIndexDocument
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			if existing.Status == string(domain.SellerRequestStatusPending) {
				return status.Error(codes.AlreadyExists, "pending seller request already exists for user")
			}
		}

		requestRef, err := r.base.DocumentRef(ctx, request.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(requestRef, doc); err != nil {
			return err
		}
		return tx.Set(indexRef, indexDoc)
	})
	if err != nil {
		return domain.SellerRequest{}, pfirestore.WrapError("seller_requests.create", err)
	}
	return toDomainSellerRequest(request.ID, doc), nil
}

// FindByID loads the request by ID.
func (r *SellerRequestRepository) FindByID(ctx context.Context, requestID string) (domain.SellerRequest, error) {
	if r == nil || r.base == nil {
		return domain.SellerRequest{}, errors.New("seller request repository not initialised")
	}
	if strings.TrimSpace(requestID) == "" {
		return domain.SellerRequest{}, errors.New("seller request id is required")
	}

	doc, err := r.base.Get(ctx, requestID)
	if err != nil {
		return domain.SellerRequest{}, err
	}
	return toDomainSellerRequest(doc.ID, doc.Data), nil
}

// FindLatestByUser resolves the user's most recent request via the index.
func (r *SellerRequestRepository) FindLatestByUser(ctx context.Context, userID string) (domain.SellerRequest, error) {
	if r == nil || r.index == nil {
		return domain.SellerRequest{}, errors.New("seller request repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.SellerRequest{}, errors.New("user id is required")
	}

	entry, err := r.index.Get(ctx, userID)
	if err != nil {
		return domain.SellerRequest{}, err
	}
	return r.FindByID(ctx, entry.Data.RequestID)
}

// List pages through requests, optionally filtered by status or user.
func (r *SellerRequestRepository) List(ctx context.Context, filter repositories.SellerRequestListFilter) (domain.CursorPage[domain.SellerRequest], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.SellerRequest]{}, errors.New("seller request repository not initialised")
	}

	limit, fetch := fetchLimits(filter.Pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.SellerRequest]{}, pfirestore.ConflictError("seller_requests.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.UserID != nil {
			q = q.Where("userId", "==", strings.TrimSpace(*filter.UserID))
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
		return domain.CursorPage[domain.SellerRequest]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.SellerRequest, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainSellerRequest(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.SellerRequest]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus transitions the request and keeps the per-user index in sync.
func (r *SellerRequestRepository) UpdateStatus(ctx context.Context, requestID string, patch repositories.SellerRequestStatusPatch) (domain.SellerRequest, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.SellerRequest{}, errors.New("seller request repository not initialised")
	}
	if strings.TrimSpace(requestID) == "" {
		return domain.SellerRequest{}, errors.New("seller request id is required")
	}

	var updated sellerRequestDocument
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		requestRef, err := r.base.DocumentRef(ctx, requestID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(requestRef)
		if err != nil {
			return err
		}
		var current sellerRequestDocument
		if err := snap.DataTo(&current); err != nil {
			return err
		}

		current.Status = string(patch.Status)
		current.AdminComment = strings.TrimSpace(patch.AdminComment)
		current.UpdatedAt = patch.UpdatedAt.UTC()
		updated = current

		indexRef, err := r.index.DocumentRef(ctx, current.UserID)
		if err != nil {
			return err
		}
		if err := tx.Set(requestRef, current); err != nil {
			return err
		}
		return tx.Set(indexRef, sellerRequestIndexDocument{
			RequestID: requestID,
			Status:    current.Status,
			UpdatedAt: current.UpdatedAt,
		})
	})
	if err != nil {
		return domain.SellerRequest{}, pfirestore.WrapError("seller_requests.update_status", err)
	}
	return toDomainSellerRequest(requestID, updated), nil
}

// Delete removes the request and clears its index entry when it points here.
func (r *SellerRequestRepository) Delete(ctx context.Context, requestID string) error {
	if r == nil || r.base == nil || r.provider == nil {
		return errors.New("seller request repository not initialised")
	}
	if strings.TrimSpace(requestID) == "" {
		return errors.New("seller request id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		requestRef, err := r.base.DocumentRef(ctx, requestID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(requestRef)
		if err != nil {
			return err
		}
		var current sellerRequestDocument
		if err := snap.DataTo(&current); err != nil {
			return err
		}

		indexRef, err := r.index.DocumentRef(ctx, current.UserID)
		if err != nil {
			return err
		}
		indexSnap, err := tx.Get(indexRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err := tx.Delete(requestRef); err != nil {
			return err
		}
		if indexSnap != nil && indexSnap.Exists() {
			var entry sellerRequestIndexDocument
			if err := indexSnap.DataTo(&entry); err != nil {
				return err
			}
			if entry.RequestID == requestID {
				return tx.Delete(indexRef)
			}
		}
		return nil
	})
	return pfirestore.WrapError("seller_requests.delete", err)
}

type sellerRequestDocument struct {
	UserID       string    `firestore:"userId"`
	Status       string    `firestore:"status"`
	Message      string    `firestore:"message,omitempty"`
	AdminComment string    `firestore:"adminComment,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type sellerRequestIndexDocument struct {
	RequestID string    `firestore:"requestId"`
	Status    string    `firestore:"status"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toDomainSellerRequest(id string, doc sellerRequestDocument) domain.SellerRequest {
	return domain.SellerRequest{
		ID:           id,
		UserID:       doc.UserID,
		Status:       domain.SellerRequestStatus(doc.Status),
		Message:      doc.Message,
		AdminComment: doc.AdminComment,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func fromDomainSellerRequest(request domain.SellerRequest) sellerRequestDocument {
	return sellerRequestDocument{
		UserID:       strings.TrimSpace(request.UserID),
		Status:       string(request.Status),
		Message:      strings.TrimSpace(request.Message),
		AdminComment: strings.TrimSpace(request.AdminComment),
		CreatedAt:    request.CreatedAt.UTC(),
		UpdatedAt:    request.UpdatedAt.UTC(),
	}
}
