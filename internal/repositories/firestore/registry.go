package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/marketgate/api/internal/platform/firestore"
	repositories "github.com/marketgate/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	users          *UserRepository
	sellerRequests *SellerRequestRepository
	stores         *StoreRepository
	categories     *CategoryRepository
	products       *ProductRepository
	reviews        *ReviewRepository
	conversations  *ConversationRepository
	messages       *MessageRepository
	health         *HealthRepository
}

// NewRegistry wires every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	sellerRequests, err := NewSellerRequestRepository(provider)
	if err != nil {
		return nil, err
	}
	stores, err := NewStoreRepository(provider)
	if err != nil {
		return nil, err
	}
	categories, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	reviews, err := NewReviewRepository(provider)
	if err != nil {
		return nil, err
	}
	conversations, err := NewConversationRepository(provider)
	if err != nil {
		return nil, err
	}
	messages, err := NewMessageRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:       provider,
		users:          users,
		sellerRequests: sellerRequests,
		stores:         stores,
		categories:     categories,
		products:       products,
		reviews:        reviews,
		conversations:  conversations,
		messages:       messages,
		health:         NewHealthRepository(provider),
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Users() repositories.UserRepository                   { return r.users }
func (r *Registry) SellerRequests() repositories.SellerRequestRepository { return r.sellerRequests }
func (r *Registry) Stores() repositories.StoreRepository                 { return r.stores }
func (r *Registry) Categories() repositories.CategoryRepository          { return r.categories }
func (r *Registry) Products() repositories.ProductRepository             { return r.products }
func (r *Registry) Reviews() repositories.ReviewRepository               { return r.reviews }
func (r *Registry) Conversations() repositories.ConversationRepository   { return r.conversations }
func (r *Registry) Messages() repositories.MessageRepository             { return r.messages }
func (r *Registry) Health() repositories.HealthRepository                { return r.health }

var _ repositories.Registry = (*Registry)(nil)

// HealthRepository issues a lightweight read to verify connectivity.
type HealthRepository struct {
	provider *pfirestore.Provider
}

// NewHealthRepository constructs the readiness checker.
func NewHealthRepository(provider *pfirestore.Provider) *HealthRepository {
	return &HealthRepository{provider: provider}
}

// Check fetches a client and reads a sentinel document path to prove the
// backend answers. A missing document still counts as healthy.
func (r *HealthRepository) Check(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return errors.New("health repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.Collection("health").Doc("probe").Get(ctx)
	if err != nil {
		wrapped := pfirestore.WrapError("health.check", err)
		var repoErr repositories.RepositoryError
		if errors.As(wrapped, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		return wrapped
	}
	return nil
}
