package domain

import "time"

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a result slice together with the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// UserRole enumerates the marketplace roles stored on the business profile.
type UserRole string

const (
	// UserRoleBuyer is the default role granted to every account.
	UserRoleBuyer UserRole = "buyer"
	// UserRoleSeller marks accounts approved to operate stores.
	UserRoleSeller UserRole = "seller"
	// UserRoleAdmin marks operator accounts with moderation powers.
	UserRoleAdmin UserRole = "admin"
)

// User is the document-store copy of an account profile. The identity provider
// separately owns the authoritative role claim used in tokens; the seller
// approval flow keeps the two in sync.
type User struct {
	ID               string
	Email            string
	DisplayName      string
	Role             UserRole
	IsApprovedSeller bool
	PhotoURL         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SellerRequestStatus enumerates seller request lifecycle states.
type SellerRequestStatus string

const (
	// SellerRequestStatusPending is the initial state awaiting review.
	SellerRequestStatusPending SellerRequestStatus = "pending"
	// SellerRequestStatusApproved is terminal; the user became a seller.
	SellerRequestStatusApproved SellerRequestStatus = "approved"
	// SellerRequestStatusRejected is terminal; the petition was declined.
	SellerRequestStatusRejected SellerRequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is permitted from the status.
func (s SellerRequestStatus) IsTerminal() bool {
	return s == SellerRequestStatusApproved || s == SellerRequestStatusRejected
}

// SellerRequest represents a user's petition to become a marketplace seller.
type SellerRequest struct {
	ID           string
	UserID       string
	Status       SellerRequestStatus
	Message      string
	AdminComment string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoreStatus enumerates store lifecycle states.
type StoreStatus string

const (
	// StoreStatusActive marks a store visible in the marketplace.
	StoreStatusActive StoreStatus = "active"
	// StoreStatusSuspended marks a store hidden by operator action.
	StoreStatusSuspended StoreStatus = "suspended"
)

// Store is a seller-owned storefront.
type Store struct {
	ID           string
	OwnerID      string
	Name         string
	Description  string
	Logo         *string
	Status       StoreStatus
	StatusReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category groups products; ParentID is nil for top-level categories.
type Category struct {
	ID        string
	Name      string
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a purchasable item listed under a store.
type Product struct {
	ID          string
	StoreID     string
	CategoryID  string
	Name        string
	Description string
	// Price is expressed in the smallest currency unit.
	Price     int64
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review is buyer feedback attached to a product.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Conversation is a chat thread between two or more participants.
type Conversation struct {
	ID            string
	Participants  []string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// HasParticipant reports whether the given user takes part in the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a single chat message within a conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
}
