package repositories

import (
	"context"
	"time"

	domain "github.com/marketgate/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	SellerRequests() SellerRequestRepository
	Stores() StoreRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UserRepository persists marketplace account profiles.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
	UpdateRole(ctx context.Context, userID string, patch UserRolePatch) (domain.User, error)
	List(ctx context.Context, filter UserListFilter) (domain.CursorPage[domain.User], error)
}

// UserRolePatch mutates the role fields kept in sync with the identity provider.
type UserRolePatch struct {
	Role             domain.UserRole
	IsApprovedSeller bool
	UpdatedAt        time.Time
}

// UserListFilter controls pagination and role filtering for account listings.
type UserListFilter struct {
	Role  *domain.UserRole
	Pager domain.Pagination
}

// SellerRequestRepository persists seller petitions. Create must guarantee at
// most one pending request per user and surface a conflict otherwise.
type SellerRequestRepository interface {
	Create(ctx context.Context, request domain.SellerRequest) (domain.SellerRequest, error)
	FindByID(ctx context.Context, requestID string) (domain.SellerRequest, error)
	FindLatestByUser(ctx context.Context, userID string) (domain.SellerRequest, error)
	List(ctx context.Context, filter SellerRequestListFilter) (domain.CursorPage[domain.SellerRequest], error)
	UpdateStatus(ctx context.Context, requestID string, patch SellerRequestStatusPatch) (domain.SellerRequest, error)
	Delete(ctx context.Context, requestID string) error
}

// SellerRequestStatusPatch records a lifecycle transition on a request.
type SellerRequestStatusPatch struct {
	Status       domain.SellerRequestStatus
	AdminComment string
	UpdatedAt    time.Time
}

// SellerRequestListFilter controls pagination and status filtering.
type SellerRequestListFilter struct {
	Status *domain.SellerRequestStatus
	UserID *string
	Pager  domain.Pagination
}

// StoreRepository persists storefronts.
type StoreRepository interface {
	Insert(ctx context.Context, store domain.Store) error
	Update(ctx context.Context, store domain.Store) error
	FindByID(ctx context.Context, storeID string) (domain.Store, error)
	FindByOwner(ctx context.Context, ownerID string) (domain.Store, error)
	List(ctx context.Context, filter StoreListFilter) (domain.CursorPage[domain.Store], error)
	Delete(ctx context.Context, storeID string) error
}

// StoreListFilter controls pagination and status filtering for store listings.
type StoreListFilter struct {
	Status *domain.StoreStatus
	Pager  domain.Pagination
}

// CategoryRepository persists the product taxonomy.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) error
	Update(ctx context.Context, category domain.Category) error
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	List(ctx context.Context, filter CategoryListFilter) (domain.CursorPage[domain.Category], error)
	Delete(ctx context.Context, categoryID string) error
}

// CategoryListFilter controls pagination and parent scoping.
type CategoryListFilter struct {
	ParentID *string
	Pager    domain.Pagination
}

// ProductRepository persists store inventory items.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	Delete(ctx context.Context, productID string) error
}

// ProductListFilter controls pagination plus store and category scoping.
type ProductListFilter struct {
	StoreID    *string
	CategoryID *string
	Pager      domain.Pagination
}

// ReviewRepository persists buyer feedback on products.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) error
	Update(ctx context.Context, review domain.Review) error
	FindByID(ctx context.Context, reviewID string) (domain.Review, error)
	ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[domain.Review], error)
	Delete(ctx context.Context, reviewID string) error
}

// ConversationRepository persists chat threads.
type ConversationRepository interface {
	Insert(ctx context.Context, conversation domain.Conversation) error
	FindByID(ctx context.Context, conversationID string) (domain.Conversation, error)
	FindByParticipants(ctx context.Context, participants []string) (domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Conversation], error)
	Touch(ctx context.Context, conversationID string, lastMessageAt time.Time) error
}

// MessageRepository persists chat messages within a conversation.
type MessageRepository interface {
	Append(ctx context.Context, message domain.Message) error
	ListByConversation(ctx context.Context, conversationID string, pager domain.Pagination) (domain.CursorPage[domain.Message], error)
}

// HealthRepository verifies backing-store connectivity for readiness probes.
type HealthRepository interface {
	Check(ctx context.Context) error
}
