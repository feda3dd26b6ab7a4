package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/marketgate/api/internal/domain"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
)

const reviewCollection = "reviews"

// ReviewRepository persists buyer feedback in Firestore.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewCollection),
	}, nil
}

// Insert writes a new review; an existing ID yields a conflict.
func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	if strings.TrimSpace(review.ID) == "" {
		return errors.New("review id is required")
	}
	_, err := r.base.Create(ctx, review.ID, fromDomainReview(review))
	return err
}

// Update replaces the review document.
func (r *ReviewRepository) Update(ctx context.Context, review domain.Review) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	if strings.TrimSpace(review.ID) == "" {
		return errors.New("review id is required")
	}
	_, err := r.base.Set(ctx, review.ID, fromDomainReview(review))
	return err
}

// FindByID loads the review by ID.
func (r *ReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	if strings.TrimSpace(reviewID) == "" {
		return domain.Review{}, errors.New("review id is required")
	}

	doc, err := r.base.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	return toDomainReview(doc.ID, doc.Data), nil
}

// ListByProduct pages through the reviews attached to a product.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[domain.Review], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Review]{}, errors.New("review repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.CursorPage[domain.Review]{}, errors.New("product id is required")
	}

	limit, fetch := fetchLimits(pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Review]{}, pfirestore.ConflictError("reviews.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("productId", "==", productID)
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
		return domain.CursorPage[domain.Review]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainReview(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Review]{Items: items, NextPageToken: nextToken}, nil
}

// Delete removes the review document.
func (r *ReviewRepository) Delete(ctx context.Context, reviewID string) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	if strings.TrimSpace(reviewID) == "" {
		return errors.New("review id is required")
	}
	return r.base.Delete(ctx, reviewID)
}

type reviewDocument struct {
	ProductID string    `firestore:"productId"`
	UserID    string    `firestore:"userId"`
	Rating    int       `firestore:"rating"`
	Comment   string    `firestore:"comment,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toDomainReview(id string, doc reviewDocument) domain.Review {
	return domain.Review{
		ID:        id,
		ProductID: doc.ProductID,
		UserID:    doc.UserID,
		Rating:    doc.Rating,
		Comment:   doc.Comment,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func fromDomainReview(review domain.Review) reviewDocument {
	return reviewDocument{
		ProductID: strings.TrimSpace(review.ProductID),
		UserID:    strings.TrimSpace(review.UserID),
		Rating:    review.Rating,
		Comment:   strings.TrimSpace(review.Comment),
		CreatedAt: review.CreatedAt.UTC(),
		UpdatedAt: review.UpdatedAt.UTC(),
	}
}
