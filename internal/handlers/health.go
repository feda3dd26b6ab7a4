package handlers

import (
	"net/http"
	"time"

	"github.com/marketgate/api/internal/repositories"
)

// BuildInfo carries release metadata surfaced by the health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build     BuildInfo
	clock     func() time.Time
	readiness repositories.HealthRepository
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs probe handlers with optional build metadata
// and a readiness check against the document store.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

// WithHealthBuildInfo attaches release metadata to probe responses.
func WithHealthBuildInfo(build BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthClock overrides the time source, used by tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthReadiness wires the repository probe consulted by Readyz.
func WithHealthReadiness(probe repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.readiness = probe
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	payload := map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.build.StartedAt).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz reports whether the API can reach its backing store.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	status := "ok"
	details := []string{}
	checks := map[string]any{}

	if h.readiness != nil {
		started := h.clock()
		if err := h.readiness.Check(r.Context()); err != nil {
			status = "degraded"
			details = append(details, "firestore: "+err.Error())
			checks["firestore"] = map[string]any{"status": "degraded", "error": err.Error()}
		} else {
			checks["firestore"] = map[string]any{
				"status":    "ok",
				"latencyMs": h.clock().Sub(started).Milliseconds(),
			}
		}
	}

	payload := map[string]any{
		"status":    status,
		"checks":    checks,
		"details":   details,
		"timestamp": now.UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, code, payload)
}
