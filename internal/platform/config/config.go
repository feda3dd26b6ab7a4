package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultSecurityEnvironment = "local"
	defaultChatTopic           = "chat-events"

	envPrefix = "API_"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores identity provider project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores document database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig names the project and topics used for event fan-out.
type PubSubConfig struct {
	ProjectID      string
	ChatTopic      string
	LifecycleTopic string
}

// SecurityConfig groups deployment-level security settings.
type SecurityConfig struct {
	Environment string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Lookup resolves configuration values; defaults to the process environment.
type Lookup func(key string) string

// Load assembles the Config from environment variables prefixed with API_.
func Load(lookups ...Lookup) (Config, error) {
	lookup := envLookup
	if len(lookups) > 0 && lookups[0] != nil {
		lookup = lookups[0]
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringOr(lookup("SERVER_PORT"), defaultPort),
			ReadTimeout:  durationOr(lookup("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOr(lookup("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOr(lookup("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       strings.TrimSpace(lookup("FIREBASE_PROJECT_ID")),
			CredentialsFile: strings.TrimSpace(lookup("FIREBASE_CREDENTIALS_FILE")),
		},
		Firestore: FirestoreConfig{
			ProjectID:    strings.TrimSpace(lookup("FIRESTORE_PROJECT_ID")),
			EmulatorHost: strings.TrimSpace(lookup("FIRESTORE_EMULATOR_HOST")),
		},
		PubSub: PubSubConfig{
			ProjectID:      strings.TrimSpace(lookup("PUBSUB_PROJECT_ID")),
			ChatTopic:      stringOr(lookup("PUBSUB_CHAT_TOPIC"), defaultChatTopic),
			LifecycleTopic: strings.TrimSpace(lookup("PUBSUB_LIFECYCLE_TOPIC")),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringOr(lookup("SECURITY_ENVIRONMENT"), defaultSecurityEnvironment)),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	var missing []string
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if len(missing) > 0 {
		return Config{}, &ValidationError{fields: missing}
	}

	return cfg, nil
}

// IsDevelopment reports whether the deployment runs with development-level verbosity.
func (c Config) IsDevelopment() bool {
	switch c.Security.Environment {
	case "local", "dev", "development":
		return true
	}
	return false
}

func envLookup(key string) string {
	return os.Getenv(envPrefix + key)
}

func stringOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
