package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker is implemented by every backing-store client
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler probes all registered dependencies
type HealthHandler struct {
	probes map[string]HealthChecker
}

// NewHealthHandler creates a health handler with named probes
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		probes: make(map[string]HealthChecker),
	}
}

// Register adds a named dependency probe
func (h *HealthHandler) Register(name string, checker HealthChecker) {
	h.probes[name] = checker
}

type healthStatus struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// ServeHTTP reports overall and per-dependency health. Any failing
// dependency degrades the overall status to 503.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{
		Status:       "ok",
		Dependencies: make(map[string]string, len(h.probes)),
	}

	code := http.StatusOK
	for name, probe := range h.probes {
		if err := probe.Health(ctx); err != nil {
			status.Status = "degraded"
			status.Dependencies[name] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status.Dependencies[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
