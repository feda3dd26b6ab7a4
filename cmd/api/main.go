package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marketgate/api/internal/di"
	"github.com/marketgate/api/internal/handlers"
	"github.com/marketgate/api/internal/platform/auth"
	"github.com/marketgate/api/internal/platform/config"
	"github.com/marketgate/api/internal/platform/events"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
	"github.com/marketgate/api/internal/platform/observability"
	firestoreRepo "github.com/marketgate/api/internal/repositories/firestore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		logger.Fatal("failed to build repository registry", zap.Error(err))
	}

	firebaseClient, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase client", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseClient, auth.WithUserGetter(firebaseClient))

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		_ = pubsubClient.Close()
	}()

	chatTopic := pubsubClient.Topic(cfg.PubSub.ChatTopic)
	defer chatTopic.Stop()

	var lifecycleTopic *pubsub.Topic
	if cfg.PubSub.LifecycleTopic != "" {
		lifecycleTopic = pubsubClient.Topic(cfg.PubSub.LifecycleTopic)
		defer lifecycleTopic.Stop()
	}

	publisher, err := events.NewPubSubPublisher(chatTopic, lifecycleTopic)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Dependencies{
		Identity:            firebaseClient,
		ChatEvents:          publisher,
		SellerRequestEvents: publisher,
		StoreEvents:         publisher,
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("failed to close container", zap.Error(err))
		}
	}()

	svc := container.Services

	meHandlers := handlers.NewMeHandlers(authenticator, svc.Users, svc.Stores)
	sellerRequestHandlers := handlers.NewSellerRequestHandlers(authenticator, svc.SellerRequests)
	storeHandlers := handlers.NewStoreHandlers(authenticator, svc.Stores)
	catalogHandlers := handlers.NewCatalogHandlers(authenticator, svc.Catalog)
	reviewHandlers := handlers.NewReviewHandlers(authenticator, svc.Reviews)
	chatHandlers := handlers.NewChatHandlers(authenticator, svc.Chat)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Users, sellerRequestHandlers, storeHandlers, catalogHandlers)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     os.Getenv("API_VERSION"),
			CommitSHA:   os.Getenv("API_COMMIT_SHA"),
			Environment: cfg.Security.Environment,
			StartedAt:   startedAt,
		}),
		handlers.WithHealthReadiness(registry.Health()),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.InjectLoggerMiddleware(logger),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithSellerRequestRoutes(sellerRequestHandlers.Routes),
		handlers.WithStoreRoutes(storeHandlers.Routes),
		handlers.WithCategoryRoutes(catalogHandlers.CategoryRoutes),
		handlers.WithProductRoutes(func(r chi.Router) {
			catalogHandlers.ProductRoutes(r)
			reviewHandlers.ProductReviewRoutes(r)
		}),
		handlers.WithReviewRoutes(reviewHandlers.Routes),
		handlers.WithChatRoutes(chatHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", server.Addr), zap.String("environment", cfg.Security.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
