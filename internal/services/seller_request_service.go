package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/platform/observability"
	"github.com/marketgate/api/internal/repositories"
)

const (
	sellerRequestIDPrefix = "sreq_"

	sellerRequestEventApproved = "seller_request.approved"
	sellerRequestEventRejected = "seller_request.rejected"

	// identityRoleSeller is the role string the identity provider expects.
	// Its casing differs from the profile store's "seller" and both systems
	// must keep their own convention.
	identityRoleSeller = "Seller"

	// rollbackAdminComment is written when the approval side effects fail and
	// the request is returned to pending.
	rollbackAdminComment = "Error updating user role. Please try again."
)

var (
	// ErrSellerRequestInvalidInput indicates validation failures for seller request operations.
	ErrSellerRequestInvalidInput = errors.New("seller request: invalid input")
	// ErrSellerRequestNotFound indicates a request could not be located.
	ErrSellerRequestNotFound = errors.New("seller request: not found")
	// ErrSellerRequestConflict signals duplicate submissions or illegal status transitions.
	ErrSellerRequestConflict = errors.New("seller request: conflict")
	// ErrSellerRequestUnauthorized indicates the actor may not access the request.
	ErrSellerRequestUnauthorized = errors.New("seller request: unauthorized")
	// ErrSellerRequestRoleUpdate wraps downstream failures while promoting a user to seller.
	ErrSellerRequestRoleUpdate = errors.New("seller request: update user role")
)

// IdentityProvider mutates role metadata held by the external identity service.
type IdentityProvider interface {
	UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]any) error
}

// SellerRequestEventPublisher emits request lifecycle events to downstream consumers.
type SellerRequestEventPublisher interface {
	PublishSellerRequestEvent(ctx context.Context, event SellerRequestEvent) error
}

// SellerRequestEvent captures metadata for seller request lifecycle events.
type SellerRequestEvent struct {
	Type       string
	RequestID  string
	UserID     string
	Status     domain.SellerRequestStatus
	ActorID    string
	OccurredAt time.Time
}

// SellerRequestServiceDeps bundles collaborators required to construct a SellerRequestService.
type SellerRequestServiceDeps struct {
	Requests repositories.SellerRequestRepository
	Users    repositories.UserRepository
	Identity IdentityProvider
	Clock    func() time.Time
	// IDGenerator mints request identifiers; defaults to prefixed ULIDs.
	IDGenerator func() string
	Events      SellerRequestEventPublisher
	// EscalateCompensationFailure controls what happens when the rollback
	// write after a failed approval also fails: false logs and propagates
	// only the original failure, true joins both errors.
	EscalateCompensationFailure bool
}

type sellerRequestService struct {
	requests repositories.SellerRequestRepository
	users    repositories.UserRepository
	identity IdentityProvider
	clock    func() time.Time
	newID    func() string
	events   SellerRequestEventPublisher
	escalate bool
}

// NewSellerRequestService wires dependencies into a concrete SellerRequestService implementation.
func NewSellerRequestService(deps SellerRequestServiceDeps) (SellerRequestService, error) {
	if deps.Requests == nil {
		return nil, errors.New("seller request service: request repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("seller request service: user repository is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("seller request service: identity provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return sellerRequestIDPrefix + ulid.Make().String()
		}
	}

	return &sellerRequestService{
		requests: deps.Requests,
		users:    deps.Users,
		identity: deps.Identity,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		events:   deps.Events,
		escalate: deps.EscalateCompensationFailure,
	}, nil
}

func (s *sellerRequestService) Create(ctx context.Context, cmd CreateSellerRequestCommand) (SellerRequest, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return SellerRequest{}, fmt.Errorf("%w: user id is required", ErrSellerRequestInvalidInput)
	}

	existing, err := s.requests.FindLatestByUser(ctx, userID)
	switch {
	case err == nil:
		switch existing.Status {
		case domain.SellerRequestStatusApproved:
			return SellerRequest{}, fmt.Errorf("%w: User is already a seller", ErrSellerRequestConflict)
		case domain.SellerRequestStatusPending:
			return SellerRequest{}, fmt.Errorf("%w: User already has a pending request", ErrSellerRequestConflict)
		}
		// A rejected request does not block a fresh petition.
	case isNotFound(err):
		// First petition for this user.
	default:
		return SellerRequest{}, err
	}

	request, err := domain.NewSellerRequest(s.newID(), userID, cmd.Message, s.clock())
	if err != nil {
		return SellerRequest{}, fmt.Errorf("%w: %v", ErrSellerRequestInvalidInput, err)
	}

	created, err := s.requests.Create(ctx, request)
	if err != nil {
		if isConflict(err) {
			// The storage layer closed the read-then-write race.
			return SellerRequest{}, fmt.Errorf("%w: User already has a pending request", ErrSellerRequestConflict)
		}
		return SellerRequest{}, err
	}
	return created, nil
}

func (s *sellerRequestService) GetByID(ctx context.Context, cmd GetSellerRequestCommand) (SellerRequest, error) {
	if strings.TrimSpace(cmd.RequestID) == "" {
		return SellerRequest{}, fmt.Errorf("%w: request id is required", ErrSellerRequestInvalidInput)
	}

	request, err := s.requests.FindByID(ctx, cmd.RequestID)
	if err != nil {
		return SellerRequest{}, s.mapRequestError(err)
	}
	if !cmd.AllowStaff && request.UserID != cmd.ActorID {
		return SellerRequest{}, ErrSellerRequestUnauthorized
	}
	return request, nil
}

func (s *sellerRequestService) List(ctx context.Context, cmd ListSellerRequestsCommand) (domain.CursorPage[SellerRequest], error) {
	page, err := s.requests.List(ctx, repositories.SellerRequestListFilter{
		Status: cmd.Status,
		UserID: cmd.UserID,
		Pager:  cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[SellerRequest]{}, s.mapRequestError(err)
	}
	return page, nil
}

// UpdateStatus transitions a pending request to approved or rejected. Approval
// additionally promotes the user in the profile store and the identity
// provider; when either write fails the request is put back to pending so an
// administrator can retry.
func (s *sellerRequestService) UpdateStatus(ctx context.Context, cmd UpdateSellerRequestStatusCommand) (SellerRequest, error) {
	if err := s.validateStatusCommand(cmd); err != nil {
		return SellerRequest{}, err
	}

	request, err := s.requests.FindByID(ctx, cmd.RequestID)
	if err != nil {
		return SellerRequest{}, s.mapRequestError(err)
	}
	if request.Status.IsTerminal() {
		return SellerRequest{}, fmt.Errorf("%w: Only pending requests can be updated", ErrSellerRequestConflict)
	}

	now := s.clock()
	updated, err := s.requests.UpdateStatus(ctx, cmd.RequestID, repositories.SellerRequestStatusPatch{
		Status:       cmd.Status,
		AdminComment: cmd.AdminComment,
		UpdatedAt:    now,
	})
	if err != nil {
		return SellerRequest{}, s.mapRequestError(err)
	}

	if cmd.Status == domain.SellerRequestStatusApproved {
		if err := s.promoteUser(ctx, request.UserID, now); err != nil {
			return SellerRequest{}, s.compensate(ctx, cmd.RequestID, err)
		}
		s.emitEvent(ctx, sellerRequestEventApproved, updated, cmd.ActorID)
	} else {
		s.emitEvent(ctx, sellerRequestEventRejected, updated, cmd.ActorID)
	}

	return updated, nil
}

func (s *sellerRequestService) Delete(ctx context.Context, cmd DeleteSellerRequestCommand) error {
	if strings.TrimSpace(cmd.RequestID) == "" {
		return fmt.Errorf("%w: request id is required", ErrSellerRequestInvalidInput)
	}
	if err := s.requests.Delete(ctx, cmd.RequestID); err != nil {
		return s.mapRequestError(err)
	}
	return nil
}

// promoteUser applies the approval side effects in order: profile store first,
// identity provider second.
func (s *sellerRequestService) promoteUser(ctx context.Context, userID string, now time.Time) error {
	if _, err := s.users.UpdateRole(ctx, userID, repositories.UserRolePatch{
		Role:             domain.UserRoleSeller,
		IsApprovedSeller: true,
		UpdatedAt:        now,
	}); err != nil {
		return fmt.Errorf("%w: profile store: %v", ErrSellerRequestRoleUpdate, err)
	}

	if err := s.identity.UpdateUserMetadata(ctx, userID, map[string]any{
		"role": identityRoleSeller,
	}); err != nil {
		return fmt.Errorf("%w: identity provider: %v", ErrSellerRequestRoleUpdate, err)
	}
	return nil
}

// compensate writes the request back to pending after a failed approval. The
// rollback is best effort: the original failure always propagates, and a
// rollback failure is either logged or joined in depending on configuration.
func (s *sellerRequestService) compensate(ctx context.Context, requestID string, cause error) error {
	_, rollbackErr := s.requests.UpdateStatus(ctx, requestID, repositories.SellerRequestStatusPatch{
		Status:       domain.SellerRequestStatusPending,
		AdminComment: rollbackAdminComment,
		UpdatedAt:    s.clock(),
	})
	if rollbackErr == nil {
		return cause
	}
	if s.escalate {
		return errors.Join(cause, fmt.Errorf("seller request: compensation failed: %w", rollbackErr))
	}
	observability.FromContext(ctx).Warn("seller request compensation failed",
		zap.String("request_id", requestID),
		zap.Error(rollbackErr),
	)
	return cause
}

func (s *sellerRequestService) validateStatusCommand(cmd UpdateSellerRequestStatusCommand) error {
	if strings.TrimSpace(cmd.RequestID) == "" {
		return fmt.Errorf("%w: request id is required", ErrSellerRequestInvalidInput)
	}
	switch cmd.Status {
	case domain.SellerRequestStatusApproved, domain.SellerRequestStatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: unsupported target status %q", ErrSellerRequestInvalidInput, cmd.Status)
	}
}

func (s *sellerRequestService) emitEvent(ctx context.Context, eventType string, request SellerRequest, actorID string) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishSellerRequestEvent(ctx, SellerRequestEvent{
		Type:       eventType,
		RequestID:  request.ID,
		UserID:     request.UserID,
		Status:     request.Status,
		ActorID:    actorID,
		OccurredAt: s.clock(),
	})
}

func (s *sellerRequestService) mapRequestError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return ErrSellerRequestNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", ErrSellerRequestConflict, err)
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
