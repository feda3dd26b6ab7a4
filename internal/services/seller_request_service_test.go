package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

type stubRepoError struct {
	notFound bool
	conflict bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return false }

type stubSellerRequestRepo struct {
	requests map[string]domain.SellerRequest
	latest   map[string]string

	createCalls  []domain.SellerRequest
	statusCalls  []recordedStatusCall
	createErr    error
	statusErr    func(call int) error
	deleteCalled []string
}

type recordedStatusCall struct {
	requestID string
	patch     repositories.SellerRequestStatusPatch
}

func newStubSellerRequestRepo(seed ...domain.SellerRequest) *stubSellerRequestRepo {
	repo := &stubSellerRequestRepo{
		requests: map[string]domain.SellerRequest{},
		latest:   map[string]string{},
	}
	for _, request := range seed {
		repo.requests[request.ID] = request
		repo.latest[request.UserID] = request.ID
	}
	return repo
}

func (r *stubSellerRequestRepo) Create(ctx context.Context, request domain.SellerRequest) (domain.SellerRequest, error) {
	r.createCalls = append(r.createCalls, request)
	if r.createErr != nil {
		return domain.SellerRequest{}, r.createErr
	}
	r.requests[request.ID] = request
	r.latest[request.UserID] = request.ID
	return request, nil
}

func (r *stubSellerRequestRepo) FindByID(ctx context.Context, requestID string) (domain.SellerRequest, error) {
	request, ok := r.requests[requestID]
	if !ok {
		return domain.SellerRequest{}, &stubRepoError{notFound: true}
	}
	return request, nil
}

func (r *stubSellerRequestRepo) FindLatestByUser(ctx context.Context, userID string) (domain.SellerRequest, error) {
	id, ok := r.latest[userID]
	if !ok {
		return domain.SellerRequest{}, &stubRepoError{notFound: true}
	}
	return r.requests[id], nil
}

func (r *stubSellerRequestRepo) List(ctx context.Context, filter repositories.SellerRequestListFilter) (domain.CursorPage[domain.SellerRequest], error) {
	var items []domain.SellerRequest
	for _, request := range r.requests {
		if filter.Status != nil && request.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && request.UserID != *filter.UserID {
			continue
		}
		items = append(items, request)
	}
	return domain.CursorPage[domain.SellerRequest]{Items: items}, nil
}

func (r *stubSellerRequestRepo) UpdateStatus(ctx context.Context, requestID string, patch repositories.SellerRequestStatusPatch) (domain.SellerRequest, error) {
	r.statusCalls = append(r.statusCalls, recordedStatusCall{requestID: requestID, patch: patch})
	if r.statusErr != nil {
		if err := r.statusErr(len(r.statusCalls)); err != nil {
			return domain.SellerRequest{}, err
		}
	}
	request, ok := r.requests[requestID]
	if !ok {
		return domain.SellerRequest{}, &stubRepoError{notFound: true}
	}
	request = request.WithStatus(patch.Status, patch.AdminComment, patch.UpdatedAt)
	r.requests[requestID] = request
	return request, nil
}

func (r *stubSellerRequestRepo) Delete(ctx context.Context, requestID string) error {
	r.deleteCalled = append(r.deleteCalled, requestID)
	request, ok := r.requests[requestID]
	if !ok {
		return &stubRepoError{notFound: true}
	}
	delete(r.requests, requestID)
	delete(r.latest, request.UserID)
	return nil
}

type stubUserRepo struct {
	users     map[string]domain.User
	roleCalls []recordedRoleCall
	roleErr   error
}

type recordedRoleCall struct {
	userID string
	patch  repositories.UserRolePatch
}

func (r *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.User, error) {
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, &stubRepoError{notFound: true}
	}
	return user, nil
}

func (r *stubUserRepo) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	if r.users == nil {
		r.users = map[string]domain.User{}
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) UpdateRole(ctx context.Context, userID string, patch repositories.UserRolePatch) (domain.User, error) {
	r.roleCalls = append(r.roleCalls, recordedRoleCall{userID: userID, patch: patch})
	if r.roleErr != nil {
		return domain.User{}, r.roleErr
	}
	user := r.users[userID]
	user.ID = userID
	user.Role = patch.Role
	user.IsApprovedSeller = patch.IsApprovedSeller
	user.UpdatedAt = patch.UpdatedAt
	if r.users == nil {
		r.users = map[string]domain.User{}
	}
	r.users[userID] = user
	return user, nil
}

func (r *stubUserRepo) List(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error) {
	return domain.CursorPage[domain.User]{}, nil
}

type stubIdentityProvider struct {
	calls []recordedIdentityCall
	err   error
}

type recordedIdentityCall struct {
	userID   string
	metadata map[string]any
}

func (p *stubIdentityProvider) UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	p.calls = append(p.calls, recordedIdentityCall{userID: userID, metadata: metadata})
	return p.err
}

func fixedClock() func() time.Time {
	at := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func pendingRequest(id, userID string) domain.SellerRequest {
	return domain.SellerRequest{
		ID:        id,
		UserID:    userID,
		Status:    domain.SellerRequestStatusPending,
		CreatedAt: time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T, deps SellerRequestServiceDeps) SellerRequestService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock()
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "sreq_test" }
	}
	svc, err := NewSellerRequestService(deps)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestUpdateStatusRejectsTerminalRequests(t *testing.T) {
	for _, current := range []domain.SellerRequestStatus{
		domain.SellerRequestStatusApproved,
		domain.SellerRequestStatusRejected,
	} {
		request := pendingRequest("sreq_1", "user_1")
		request.Status = current
		repo := newStubSellerRequestRepo(request)
		users := &stubUserRepo{users: map[string]domain.User{"user_1": {ID: "user_1"}}}
		identity := &stubIdentityProvider{}

		svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

		_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
			RequestID: "sreq_1",
			Status:    domain.SellerRequestStatusApproved,
		})
		if !errors.Is(err, ErrSellerRequestConflict) {
			t.Fatalf("status %s: expected conflict, got %v", current, err)
		}
		if !strings.Contains(err.Error(), "Only pending requests can be updated") {
			t.Fatalf("status %s: unexpected message %q", current, err.Error())
		}
		if len(repo.statusCalls) != 0 {
			t.Fatalf("status %s: expected no status writes, got %d", current, len(repo.statusCalls))
		}
		if len(users.roleCalls) != 0 {
			t.Fatalf("status %s: user repository must not be called", current)
		}
		if len(identity.calls) != 0 {
			t.Fatalf("status %s: identity provider must not be called", current)
		}
	}
}

func TestUpdateStatusMissingRequest(t *testing.T) {
	repo := newStubSellerRequestRepo()
	users := &stubUserRepo{}
	identity := &stubIdentityProvider{}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID: "sreq_missing",
		Status:    domain.SellerRequestStatusApproved,
	})
	if !errors.Is(err, ErrSellerRequestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repo.statusCalls) != 0 || len(users.roleCalls) != 0 || len(identity.calls) != 0 {
		t.Fatalf("expected no side effects for missing request")
	}
}

func TestApprovePromotesUserAndIdentity(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	users := &stubUserRepo{users: map[string]domain.User{"user_1": {ID: "user_1", Role: domain.UserRoleBuyer}}}
	identity := &stubIdentityProvider{}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	updated, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID:    "sreq_1",
		Status:       domain.SellerRequestStatusApproved,
		AdminComment: "welcome aboard",
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != domain.SellerRequestStatusApproved {
		t.Fatalf("expected approved status, got %s", updated.Status)
	}
	if updated.AdminComment != "welcome aboard" {
		t.Fatalf("expected admin comment to persist, got %q", updated.AdminComment)
	}

	user := users.users["user_1"]
	if user.Role != domain.UserRoleSeller {
		t.Fatalf("expected user role seller, got %s", user.Role)
	}
	if !user.IsApprovedSeller {
		t.Fatalf("expected isApprovedSeller true")
	}

	if len(identity.calls) != 1 {
		t.Fatalf("expected one identity call, got %d", len(identity.calls))
	}
	call := identity.calls[0]
	if call.userID != "user_1" {
		t.Fatalf("identity called for wrong user %q", call.userID)
	}
	if role, ok := call.metadata["role"].(string); !ok || role != "Seller" {
		t.Fatalf("expected identity role \"Seller\", got %v", call.metadata["role"])
	}
}

func TestApproveRollsBackWhenUserUpdateFails(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	users := &stubUserRepo{
		users:   map[string]domain.User{"user_1": {ID: "user_1"}},
		roleErr: errors.New("profile write rejected"),
	}
	identity := &stubIdentityProvider{}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID: "sreq_1",
		Status:    domain.SellerRequestStatusApproved,
	})
	if !errors.Is(err, ErrSellerRequestRoleUpdate) {
		t.Fatalf("expected role update error, got %v", err)
	}

	final := repo.requests["sreq_1"]
	if final.Status != domain.SellerRequestStatusPending {
		t.Fatalf("expected request back to pending, got %s", final.Status)
	}
	if final.AdminComment != "Error updating user role. Please try again." {
		t.Fatalf("unexpected rollback comment %q", final.AdminComment)
	}
	if len(identity.calls) != 0 {
		t.Fatalf("identity provider must never be called when the profile write fails")
	}
}

func TestApproveRollsBackWhenIdentityUpdateFails(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	users := &stubUserRepo{users: map[string]domain.User{"user_1": {ID: "user_1"}}}
	identity := &stubIdentityProvider{err: errors.New("identity service unavailable")}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID: "sreq_1",
		Status:    domain.SellerRequestStatusApproved,
	})
	if !errors.Is(err, ErrSellerRequestRoleUpdate) {
		t.Fatalf("expected role update error, got %v", err)
	}

	final := repo.requests["sreq_1"]
	if final.Status != domain.SellerRequestStatusPending {
		t.Fatalf("expected request back to pending, got %s", final.Status)
	}
	if final.AdminComment != "Error updating user role. Please try again." {
		t.Fatalf("unexpected rollback comment %q", final.AdminComment)
	}
	if len(users.roleCalls) != 1 {
		t.Fatalf("expected exactly one profile role update, got %d", len(users.roleCalls))
	}
}

func TestApproveCompensationFailureKeepsOriginalError(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	// First status write (pending -> approved) succeeds, the rollback fails.
	repo.statusErr = func(call int) error {
		if call == 2 {
			return &stubRepoError{}
		}
		return nil
	}
	users := &stubUserRepo{
		users:   map[string]domain.User{"user_1": {ID: "user_1"}},
		roleErr: errors.New("profile write rejected"),
	}
	identity := &stubIdentityProvider{}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID: "sreq_1",
		Status:    domain.SellerRequestStatusApproved,
	})
	if !errors.Is(err, ErrSellerRequestRoleUpdate) {
		t.Fatalf("expected original role update error, got %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected approval write plus rollback attempt, got %d calls", len(repo.statusCalls))
	}
}

func TestApproveCompensationFailureEscalates(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	repo.statusErr = func(call int) error {
		if call == 2 {
			return &stubRepoError{}
		}
		return nil
	}
	users := &stubUserRepo{
		users:   map[string]domain.User{"user_1": {ID: "user_1"}},
		roleErr: errors.New("profile write rejected"),
	}

	svc := newTestService(t, SellerRequestServiceDeps{
		Requests:                    repo,
		Users:                       users,
		Identity:                    &stubIdentityProvider{},
		EscalateCompensationFailure: true,
	})

	_, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID: "sreq_1",
		Status:    domain.SellerRequestStatusApproved,
	})
	if !errors.Is(err, ErrSellerRequestRoleUpdate) {
		t.Fatalf("expected role update error in aggregate, got %v", err)
	}
	if !strings.Contains(err.Error(), "compensation failed") {
		t.Fatalf("expected aggregate to mention compensation failure, got %v", err)
	}
}

func TestRejectPersistsWithoutSideEffects(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	users := &stubUserRepo{users: map[string]domain.User{"user_1": {ID: "user_1"}}}
	identity := &stubIdentityProvider{}

	svc := newTestService(t, SellerRequestServiceDeps{Requests: repo, Users: users, Identity: identity})

	updated, err := svc.UpdateStatus(context.Background(), UpdateSellerRequestStatusCommand{
		RequestID:    "sreq_1",
		Status:       domain.SellerRequestStatusRejected,
		AdminComment: "insufficient detail",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.Status != domain.SellerRequestStatusRejected {
		t.Fatalf("expected rejected status, got %s", updated.Status)
	}
	if len(users.roleCalls) != 0 {
		t.Fatalf("reject must not touch the user repository")
	}
	if len(identity.calls) != 0 {
		t.Fatalf("reject must not touch the identity provider")
	}
}

func TestCreateBlockedByPendingRequest(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	_, err := svc.Create(context.Background(), CreateSellerRequestCommand{UserID: "user_1"})
	if !errors.Is(err, ErrSellerRequestConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "User already has a pending request") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(repo.createCalls) != 0 {
		t.Fatalf("create must not be called when a pending request exists")
	}
}

func TestCreateBlockedByApprovedRequest(t *testing.T) {
	request := pendingRequest("sreq_1", "user_1")
	request.Status = domain.SellerRequestStatusApproved
	repo := newStubSellerRequestRepo(request)

	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	_, err := svc.Create(context.Background(), CreateSellerRequestCommand{UserID: "user_1"})
	if !errors.Is(err, ErrSellerRequestConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "User is already a seller") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(repo.createCalls) != 0 {
		t.Fatalf("create must not be called for an approved user")
	}
}

func TestCreateAfterRejectionSucceeds(t *testing.T) {
	request := pendingRequest("sreq_1", "user_1")
	request.Status = domain.SellerRequestStatusRejected
	repo := newStubSellerRequestRepo(request)

	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	created, err := svc.Create(context.Background(), CreateSellerRequestCommand{
		UserID:  "user_1",
		Message: "second attempt",
	})
	if err != nil {
		t.Fatalf("create after rejection: %v", err)
	}
	if len(repo.createCalls) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(repo.createCalls))
	}
	call := repo.createCalls[0]
	if call.UserID != "user_1" || call.Message != "second attempt" {
		t.Fatalf("create called with wrong payload: %+v", call)
	}
	if created.Status != domain.SellerRequestStatusPending {
		t.Fatalf("expected new request to be pending, got %s", created.Status)
	}
}

func TestCreateFirstRequestDefaultsMessage(t *testing.T) {
	repo := newStubSellerRequestRepo()
	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	created, err := svc.Create(context.Background(), CreateSellerRequestCommand{UserID: "user_9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Message != "" {
		t.Fatalf("expected empty message default, got %q", created.Message)
	}
	if created.Status != domain.SellerRequestStatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
}

func TestCreateMapsStorageConflictToPendingMessage(t *testing.T) {
	repo := newStubSellerRequestRepo()
	repo.createErr = &stubRepoError{conflict: true}

	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	_, err := svc.Create(context.Background(), CreateSellerRequestCommand{UserID: "user_1"})
	if !errors.Is(err, ErrSellerRequestConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "User already has a pending request") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	repo := newStubSellerRequestRepo(pendingRequest("sreq_1", "user_1"))
	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	if _, err := svc.GetByID(context.Background(), GetSellerRequestCommand{
		RequestID: "sreq_1",
		ActorID:   "user_2",
	}); !errors.Is(err, ErrSellerRequestUnauthorized) {
		t.Fatalf("expected unauthorized for foreign actor, got %v", err)
	}

	if _, err := svc.GetByID(context.Background(), GetSellerRequestCommand{
		RequestID:  "sreq_1",
		ActorID:    "admin_1",
		AllowStaff: true,
	}); err != nil {
		t.Fatalf("staff read should succeed, got %v", err)
	}
}

func TestDeleteMissingRequest(t *testing.T) {
	repo := newStubSellerRequestRepo()
	svc := newTestService(t, SellerRequestServiceDeps{
		Requests: repo,
		Users:    &stubUserRepo{},
		Identity: &stubIdentityProvider{},
	})

	if err := svc.Delete(context.Background(), DeleteSellerRequestCommand{RequestID: "sreq_missing"}); !errors.Is(err, ErrSellerRequestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
