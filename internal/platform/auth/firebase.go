package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/marketgate/api/internal/platform/config"
)

// FirebaseClient coordinates Firebase Admin SDK access for token verification and
// identity metadata updates.
type FirebaseClient struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// FirebaseOption customises FirebaseClient instances.
type FirebaseOption func(*FirebaseClient)

// WithFirebaseTimeout overrides the timeout used for Admin SDK calls.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(c *FirebaseClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewFirebaseClient constructs a FirebaseClient backed by the Admin SDK.
func NewFirebaseClient(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseClient, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	client := &FirebaseClient{
		client:  authClient,
		timeout: defaultVerifyTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// VerifyIDToken forwards verification to the underlying Firebase client using a bounded context.
func (c *FirebaseClient) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("firebase client not initialised")
	}

	ctx, cancel := c.contextWithTimeout(ctx)
	if cancel != nil {
		defer cancel()
	}

	return c.client.VerifyIDToken(ctx, idToken)
}

// GetUser loads a Firebase user record for the given UID, respecting the configured timeout.
func (c *FirebaseClient) GetUser(ctx context.Context, uid string) (*firebaseauth.UserRecord, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("firebase client not initialised")
	}

	ctx, cancel := c.contextWithTimeout(ctx)
	if cancel != nil {
		defer cancel()
	}

	return c.client.GetUser(ctx, uid)
}

// UpdateUserMetadata merges the supplied metadata into the user's custom claims.
// Claims written here surface in subsequently minted ID tokens, which is how role
// changes reach authorisation decisions.
func (c *FirebaseClient) UpdateUserMetadata(ctx context.Context, uid string, metadata map[string]any) error {
	if c == nil || c.client == nil {
		return errors.New("firebase client not initialised")
	}
	if uid == "" {
		return errors.New("firebase: uid is required")
	}

	ctx, cancel := c.contextWithTimeout(ctx)
	if cancel != nil {
		defer cancel()
	}

	record, err := c.client.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("load firebase user %s: %w", uid, err)
	}

	claims := make(map[string]any, len(record.CustomClaims)+len(metadata))
	for k, v := range record.CustomClaims {
		claims[k] = v
	}
	for k, v := range metadata {
		claims[k] = v
	}

	if err := c.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("set custom claims for %s: %w", uid, err)
	}
	return nil
}

func (c *FirebaseClient) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c == nil || c.timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, c.timeout)
}
