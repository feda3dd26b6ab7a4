package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

const reviewIDPrefix = "rev_"

var (
	// ErrReviewInvalidInput indicates validation failures for review operations.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewNotFound indicates a review could not be located.
	ErrReviewNotFound = errors.New("review: not found")
	// ErrReviewConflict signals duplicate submissions or conflicting updates.
	ErrReviewConflict = errors.New("review: conflict")
	// ErrReviewUnauthorized indicates the actor does not own the review.
	ErrReviewUnauthorized = errors.New("review: unauthorized")
)

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Sanitizer   func(string) string
}

type reviewService struct {
	reviews  repositories.ReviewRepository
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	sanitize func(string) string
}

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return reviewIDPrefix + ulid.Make().String() }
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = sanitizeFreeText
	}
	return &reviewService{
		reviews:  deps.Reviews,
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		sanitize: sanitize,
	}, nil
}

func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return Review{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	if strings.TrimSpace(cmd.UserID) == "" {
		return Review{}, fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	}

	if _, err := s.products.FindByID(ctx, cmd.ProductID); err != nil {
		if isNotFound(err) {
			return Review{}, fmt.Errorf("%w: product not found", ErrReviewInvalidInput)
		}
		return Review{}, err
	}

	review, err := domain.NewReview(s.newID(), cmd.ProductID, cmd.UserID, cmd.Rating, s.sanitize(cmd.Comment), s.clock())
	if err != nil {
		return Review{}, fmt.Errorf("%w: %v", ErrReviewInvalidInput, err)
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return Review{}, s.mapReviewError(err)
	}
	return review, nil
}

func (s *reviewService) GetByID(ctx context.Context, reviewID string) (Review, error) {
	if strings.TrimSpace(reviewID) == "" {
		return Review{}, fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}
	return review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error) {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return domain.CursorPage[Review]{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	page, err := s.reviews.ListByProduct(ctx, cmd.ProductID, cmd.Pagination)
	if err != nil {
		return domain.CursorPage[Review]{}, s.mapReviewError(err)
	}
	return page, nil
}

func (s *reviewService) Update(ctx context.Context, cmd UpdateReviewCommand) (Review, error) {
	if strings.TrimSpace(cmd.ReviewID) == "" {
		return Review{}, fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}

	review, err := s.reviews.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}
	if !cmd.AllowStaff && review.UserID != cmd.ActorID {
		return Review{}, ErrReviewUnauthorized
	}

	if cmd.Rating != nil {
		if *cmd.Rating < 1 || *cmd.Rating > 5 {
			return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
		}
		review.Rating = *cmd.Rating
	}
	if cmd.Comment != nil {
		review.Comment = s.sanitize(*cmd.Comment)
	}
	review.UpdatedAt = s.clock()

	if err := s.reviews.Update(ctx, review); err != nil {
		return Review{}, s.mapReviewError(err)
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, cmd DeleteReviewCommand) error {
	if strings.TrimSpace(cmd.ReviewID) == "" {
		return fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}

	review, err := s.reviews.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return s.mapReviewError(err)
	}
	if !cmd.AllowStaff && review.UserID != cmd.ActorID {
		return ErrReviewUnauthorized
	}
	if err := s.reviews.Delete(ctx, cmd.ReviewID); err != nil {
		return s.mapReviewError(err)
	}
	return nil
}

func (s *reviewService) mapReviewError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return ErrReviewNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", ErrReviewConflict, err)
	}
	return err
}

// sanitizeFreeText trims whitespace, strips unsafe control characters, and
// normalises spacing while preserving intentional newlines.
func sanitizeFreeText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		line = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\n' {
				return -1
			}
			return r
		}, line)
		lines[i] = strings.Join(strings.Fields(line), " ")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
