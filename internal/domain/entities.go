package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEntity indicates factory input that cannot produce a valid record.
var ErrInvalidEntity = errors.New("domain: invalid entity")

// NewSellerRequest constructs a pending seller request for the given user.
// The message is optional rationale supplied by the petitioner.
func NewSellerRequest(id, userID, message string, now time.Time) (SellerRequest, error) {
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)
	if id == "" {
		return SellerRequest{}, fmt.Errorf("%w: seller request id is required", ErrInvalidEntity)
	}
	if userID == "" {
		return SellerRequest{}, fmt.Errorf("%w: seller request user id is required", ErrInvalidEntity)
	}
	return SellerRequest{
		ID:        id,
		UserID:    userID,
		Status:    SellerRequestStatusPending,
		Message:   strings.TrimSpace(message),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// WithStatus returns a copy of the request transitioned to the given status.
func (r SellerRequest) WithStatus(status SellerRequestStatus, adminComment string, now time.Time) SellerRequest {
	r.Status = status
	r.AdminComment = strings.TrimSpace(adminComment)
	r.UpdatedAt = now
	return r
}

// NewStore constructs an active store owned by the given seller.
func NewStore(id, ownerID, name, description string, logo *string, now time.Time) (Store, error) {
	id = strings.TrimSpace(id)
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if id == "" {
		return Store{}, fmt.Errorf("%w: store id is required", ErrInvalidEntity)
	}
	if ownerID == "" {
		return Store{}, fmt.Errorf("%w: store owner id is required", ErrInvalidEntity)
	}
	if name == "" {
		return Store{}, fmt.Errorf("%w: store name is required", ErrInvalidEntity)
	}
	return Store{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Logo:        cloneStringPtr(logo),
		Status:      StoreStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewCategory constructs a category; parentID may be nil for top-level entries.
func NewCategory(id, name string, parentID *string, now time.Time) (Category, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrInvalidEntity)
	}
	if name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", ErrInvalidEntity)
	}
	return Category{
		ID:        id,
		Name:      name,
		ParentID:  cloneStringPtr(parentID),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewProduct constructs a product listed under a store and category.
func NewProduct(id, storeID, categoryID, name, description string, price int64, stock int, now time.Time) (Product, error) {
	id = strings.TrimSpace(id)
	storeID = strings.TrimSpace(storeID)
	categoryID = strings.TrimSpace(categoryID)
	name = strings.TrimSpace(name)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrInvalidEntity)
	}
	if storeID == "" {
		return Product{}, fmt.Errorf("%w: product store id is required", ErrInvalidEntity)
	}
	if categoryID == "" {
		return Product{}, fmt.Errorf("%w: product category id is required", ErrInvalidEntity)
	}
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrInvalidEntity)
	}
	if price < 0 {
		return Product{}, fmt.Errorf("%w: product price must not be negative", ErrInvalidEntity)
	}
	if stock < 0 {
		return Product{}, fmt.Errorf("%w: product stock must not be negative", ErrInvalidEntity)
	}
	return Product{
		ID:          id,
		StoreID:     storeID,
		CategoryID:  categoryID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewReview constructs buyer feedback with a bounded rating.
func NewReview(id, productID, userID string, rating int, comment string, now time.Time) (Review, error) {
	id = strings.TrimSpace(id)
	productID = strings.TrimSpace(productID)
	userID = strings.TrimSpace(userID)
	if id == "" {
		return Review{}, fmt.Errorf("%w: review id is required", ErrInvalidEntity)
	}
	if productID == "" {
		return Review{}, fmt.Errorf("%w: review product id is required", ErrInvalidEntity)
	}
	if userID == "" {
		return Review{}, fmt.Errorf("%w: review user id is required", ErrInvalidEntity)
	}
	if rating < 1 || rating > 5 {
		return Review{}, fmt.Errorf("%w: review rating must be between 1 and 5", ErrInvalidEntity)
	}
	return Review{
		ID:        id,
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewConversation constructs a chat thread; participants are deduplicated and
// at least two distinct members are required.
func NewConversation(id string, participants []string, now time.Time) (Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Conversation{}, fmt.Errorf("%w: conversation id is required", ErrInvalidEntity)
	}

	seen := make(map[string]struct{}, len(participants))
	deduped := make([]string, 0, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		deduped = append(deduped, p)
	}
	if len(deduped) < 2 {
		return Conversation{}, fmt.Errorf("%w: conversation needs at least two participants", ErrInvalidEntity)
	}

	return Conversation{
		ID:            id,
		Participants:  deduped,
		CreatedAt:     now,
		LastMessageAt: now,
	}, nil
}

// NewMessage constructs a chat message.
func NewMessage(id, conversationID, senderID, body string, now time.Time) (Message, error) {
	id = strings.TrimSpace(id)
	conversationID = strings.TrimSpace(conversationID)
	senderID = strings.TrimSpace(senderID)
	body = strings.TrimSpace(body)
	if id == "" {
		return Message{}, fmt.Errorf("%w: message id is required", ErrInvalidEntity)
	}
	if conversationID == "" {
		return Message{}, fmt.Errorf("%w: message conversation id is required", ErrInvalidEntity)
	}
	if senderID == "" {
		return Message{}, fmt.Errorf("%w: message sender id is required", ErrInvalidEntity)
	}
	if body == "" {
		return Message{}, fmt.Errorf("%w: message body is required", ErrInvalidEntity)
	}
	return Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}, nil
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
