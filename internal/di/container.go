package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marketgate/api/internal/platform/config"
	"github.com/marketgate/api/internal/repositories"
	"github.com/marketgate/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Users          services.UserService
	SellerRequests services.SellerRequestService
	Stores         services.StoreService
	Catalog        services.CatalogService
	Reviews        services.ReviewService
	Chat           services.ChatService
}

// Dependencies carries the external collaborators the services need beyond
// repositories: the identity provider for role claims and the event publishers.
type Dependencies struct {
	Identity            services.IdentityProvider
	ChatEvents          services.ChatEventPublisher
	SellerRequestEvents services.SellerRequestEventPublisher
	StoreEvents         services.StoreEventPublisher
	// EscalateCompensationFailure propagates rollback failures from the seller
	// approval flow instead of logging them.
	EscalateCompensationFailure bool
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Dependencies) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, deps Dependencies) (Services, error) {
	var svc Services

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users: reg.Users(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	if deps.Identity != nil {
		requestSvc, err := services.NewSellerRequestService(services.SellerRequestServiceDeps{
			Requests:                    reg.SellerRequests(),
			Users:                       reg.Users(),
			Identity:                    deps.Identity,
			Clock:                       time.Now,
			Events:                      deps.SellerRequestEvents,
			EscalateCompensationFailure: deps.EscalateCompensationFailure,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build seller request service: %w", err)
		}
		svc.SellerRequests = requestSvc
	}

	storeSvc, err := services.NewStoreService(services.StoreServiceDeps{
		Stores: reg.Stores(),
		Users:  reg.Users(),
		Clock:  time.Now,
		Events: deps.StoreEvents,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build store service: %w", err)
	}
	svc.Stores = storeSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Categories: reg.Categories(),
		Products:   reg.Products(),
		Stores:     reg.Stores(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:  reg.Reviews(),
		Products: reg.Products(),
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	chatSvc, err := services.NewChatService(services.ChatServiceDeps{
		Conversations: reg.Conversations(),
		Messages:      reg.Messages(),
		Clock:         time.Now,
		Events:        deps.ChatEvents,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build chat service: %w", err)
	}
	svc.Chat = chatSvc

	return svc, nil
}
