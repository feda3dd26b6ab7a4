package config

import (
	"errors"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) Lookup {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{
		"FIREBASE_PROJECT_ID": "market-test",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("expected default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "market-test" {
		t.Fatalf("expected firestore project to fall back to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ChatTopic != "chat-events" {
		t.Fatalf("expected default chat topic, got %s", cfg.PubSub.ChatTopic)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected local environment to count as development")
	}
}

func TestLoadReportsMissingFields(t *testing.T) {
	_, err := Load(lookupFrom(map[string]string{}))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	if len(fields) == 0 {
		t.Fatalf("expected missing fields to be reported")
	}
}

func TestLoadParsesDurationsAndEnvironment(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{
		"FIREBASE_PROJECT_ID":  "market-test",
		"SERVER_READ_TIMEOUT":  "5s",
		"SERVER_WRITE_TIMEOUT": "bogus",
		"SECURITY_ENVIRONMENT": "Production",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected 5s read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Fatalf("expected invalid write timeout to fall back to default, got %s", cfg.Server.WriteTimeout)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production environment to disable development verbosity")
	}
}
