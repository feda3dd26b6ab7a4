package services

import (
	"context"

	domain "github.com/marketgate/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination          = domain.Pagination
	User                = domain.User
	UserRole            = domain.UserRole
	SellerRequest       = domain.SellerRequest
	SellerRequestStatus = domain.SellerRequestStatus
	Store               = domain.Store
	StoreStatus         = domain.StoreStatus
	Category            = domain.Category
	Product             = domain.Product
	Review              = domain.Review
	Conversation        = domain.Conversation
	Message             = domain.Message
)

// SellerRequestService owns the seller petition lifecycle, including the
// approval flow that synchronises the profile store with the identity provider.
type SellerRequestService interface {
	Create(ctx context.Context, cmd CreateSellerRequestCommand) (SellerRequest, error)
	GetByID(ctx context.Context, cmd GetSellerRequestCommand) (SellerRequest, error)
	List(ctx context.Context, cmd ListSellerRequestsCommand) (domain.CursorPage[SellerRequest], error)
	UpdateStatus(ctx context.Context, cmd UpdateSellerRequestStatusCommand) (SellerRequest, error)
	Delete(ctx context.Context, cmd DeleteSellerRequestCommand) error
}

// CreateSellerRequestCommand submits a new petition for the given user.
type CreateSellerRequestCommand struct {
	UserID  string
	Message string
}

// GetSellerRequestCommand loads one petition; non-admin actors may only read their own.
type GetSellerRequestCommand struct {
	RequestID  string
	ActorID    string
	AllowStaff bool
}

// ListSellerRequestsCommand pages through petitions with optional filters.
type ListSellerRequestsCommand struct {
	Status     *SellerRequestStatus
	UserID     *string
	Pagination Pagination
}

// UpdateSellerRequestStatusCommand transitions a pending petition.
type UpdateSellerRequestStatusCommand struct {
	RequestID    string
	Status       SellerRequestStatus
	AdminComment string
	ActorID      string
}

// DeleteSellerRequestCommand removes a petition entirely.
type DeleteSellerRequestCommand struct {
	RequestID string
	ActorID   string
}

// UserService exposes profile reads and writes backed by the document store.
type UserService interface {
	GetByID(ctx context.Context, userID string) (User, error)
	EnsureProfile(ctx context.Context, cmd EnsureProfileCommand) (User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error)
	List(ctx context.Context, cmd ListUsersCommand) (domain.CursorPage[User], error)
}

// EnsureProfileCommand creates the profile document on first sign-in.
type EnsureProfileCommand struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// UpdateProfileCommand mutates the caller-editable profile fields.
type UpdateProfileCommand struct {
	UserID      string
	DisplayName *string
	PhotoURL    *string
}

// ListUsersCommand pages through profiles with an optional role filter.
type ListUsersCommand struct {
	Role       *UserRole
	Pagination Pagination
}

// StoreService manages storefront lifecycle and moderation.
type StoreService interface {
	Create(ctx context.Context, cmd CreateStoreCommand) (Store, error)
	GetByID(ctx context.Context, storeID string) (Store, error)
	GetByOwner(ctx context.Context, ownerID string) (Store, error)
	List(ctx context.Context, cmd ListStoresCommand) (domain.CursorPage[Store], error)
	Update(ctx context.Context, cmd UpdateStoreCommand) (Store, error)
	UpdateStatus(ctx context.Context, cmd UpdateStoreStatusCommand) (Store, error)
	Delete(ctx context.Context, cmd DeleteStoreCommand) error
}

// CreateStoreCommand opens a storefront for an approved seller.
type CreateStoreCommand struct {
	OwnerID     string
	Name        string
	Description string
	Logo        *string
}

// ListStoresCommand pages through storefronts with an optional status filter.
type ListStoresCommand struct {
	Status     *StoreStatus
	Pagination Pagination
}

// UpdateStoreCommand mutates owner-editable fields. Nil pointers leave the
// stored value untouched; a pointer to the zero value clears it.
type UpdateStoreCommand struct {
	StoreID     string
	ActorID     string
	AllowStaff  bool
	Name        *string
	Description *string
	Logo        **string
}

// UpdateStoreStatusCommand suspends or reactivates a storefront.
type UpdateStoreStatusCommand struct {
	StoreID string
	Status  StoreStatus
	Reason  string
	ActorID string
}

// DeleteStoreCommand removes a storefront.
type DeleteStoreCommand struct {
	StoreID    string
	ActorID    string
	AllowStaff bool
}

// CatalogService manages the category taxonomy and product listings.
type CatalogService interface {
	CreateCategory(ctx context.Context, cmd CreateCategoryCommand) (Category, error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	ListCategories(ctx context.Context, cmd ListCategoriesCommand) (domain.CursorPage[Category], error)
	UpdateCategory(ctx context.Context, cmd UpdateCategoryCommand) (Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, cmd ListProductsCommand) (domain.CursorPage[Product], error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error
}

// CreateCategoryCommand adds a taxonomy node; ParentID nil means top level.
type CreateCategoryCommand struct {
	Name     string
	ParentID *string
}

// ListCategoriesCommand pages through categories, optionally scoped to a parent.
type ListCategoriesCommand struct {
	ParentID   *string
	Pagination Pagination
}

// UpdateCategoryCommand renames or reparents a category.
type UpdateCategoryCommand struct {
	CategoryID string
	Name       *string
	ParentID   **string
}

// CreateProductCommand lists a product under the actor's store.
type CreateProductCommand struct {
	StoreID     string
	CategoryID  string
	Name        string
	Description string
	Price       int64
	Stock       int
	ActorID     string
	AllowStaff  bool
}

// ListProductsCommand pages through products with optional store/category scoping.
type ListProductsCommand struct {
	StoreID    *string
	CategoryID *string
	Pagination Pagination
}

// UpdateProductCommand mutates a listing owned by the actor's store.
type UpdateProductCommand struct {
	ProductID   string
	ActorID     string
	AllowStaff  bool
	CategoryID  *string
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
}

// DeleteProductCommand removes a listing.
type DeleteProductCommand struct {
	ProductID  string
	ActorID    string
	AllowStaff bool
}

// ReviewService manages buyer feedback on products.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	GetByID(ctx context.Context, reviewID string) (Review, error)
	ListByProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error)
	Update(ctx context.Context, cmd UpdateReviewCommand) (Review, error)
	Delete(ctx context.Context, cmd DeleteReviewCommand) error
}

// CreateReviewCommand attaches feedback to a product.
type CreateReviewCommand struct {
	ProductID string
	UserID    string
	Rating    int
	Comment   string
}

// ListProductReviewsCommand pages through a product's reviews.
type ListProductReviewsCommand struct {
	ProductID  string
	Pagination Pagination
}

// UpdateReviewCommand mutates the author's own review.
type UpdateReviewCommand struct {
	ReviewID   string
	ActorID    string
	AllowStaff bool
	Rating     *int
	Comment    *string
}

// DeleteReviewCommand removes a review.
type DeleteReviewCommand struct {
	ReviewID   string
	ActorID    string
	AllowStaff bool
}

// ChatService manages conversations and message delivery over pub/sub.
type ChatService interface {
	StartConversation(ctx context.Context, cmd StartConversationCommand) (Conversation, error)
	GetConversation(ctx context.Context, cmd GetConversationCommand) (Conversation, error)
	ListConversations(ctx context.Context, cmd ListConversationsCommand) (domain.CursorPage[Conversation], error)
	SendMessage(ctx context.Context, cmd SendMessageCommand) (Message, error)
	ListMessages(ctx context.Context, cmd ListMessagesCommand) (domain.CursorPage[Message], error)
}

// StartConversationCommand opens (or reuses) a thread between participants.
type StartConversationCommand struct {
	ActorID      string
	Participants []string
}

// GetConversationCommand loads a thread the actor takes part in.
type GetConversationCommand struct {
	ConversationID string
	ActorID        string
	AllowStaff     bool
}

// ListConversationsCommand pages through the actor's threads.
type ListConversationsCommand struct {
	ActorID    string
	Pagination Pagination
}

// SendMessageCommand appends a message and fans it out to subscribers.
type SendMessageCommand struct {
	ConversationID string
	SenderID       string
	Body           string
}

// ListMessagesCommand pages through a thread's messages.
type ListMessagesCommand struct {
	ConversationID string
	ActorID        string
	AllowStaff     bool
	Pagination     Pagination
}
