package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skymarshal/internal/agents"
	"skymarshal/internal/metrics"
	"skymarshal/pkg/logger"
)

// ServiceInfo is reported at the root endpoint
type ServiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Env     string `json:"env"`
}

// Server exposes the disruption-analysis pipeline over HTTP.
type Server struct {
	httpServer   *http.Server
	orchestrator *agents.Orchestrator
	health       *HealthHandler
	info         ServiceInfo
	log          *logger.Logger
}

// NewServer creates the HTTP server with all routes mounted
func NewServer(port int, orchestrator *agents.Orchestrator, health *HealthHandler, info ServiceInfo) *Server {
	s := &Server{
		orchestrator: orchestrator,
		health:       health,
		info:         info,
		log:          logger.Get().With("component", "api_server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/disruptions", s.handleDisruption)
	mux.HandleFunc("GET /health", health.ServeHTTP)
	mux.HandleFunc("GET /ready", health.ServeHTTP)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
		// The full three-phase pipeline can legitimately take minutes
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleDisruption is the single analysis endpoint. The orchestrator
// owns failure semantics; this layer only decodes, delegates, and maps
// envelope status to an HTTP code.
func (s *Server) handleDisruption(w http.ResponseWriter, r *http.Request) {
	var req agents.DisruptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &agents.Response{
			Status: agents.StatusFailed,
			Error:  "invalid request body: " + err.Error(),
		})
		return
	}

	resp := s.orchestrator.HandleDisruption(r.Context(), &req)

	code := http.StatusOK
	if resp.Status == agents.StatusFailed {
		code = http.StatusBadRequest
		if resp.Error != "" && resp.Error != "prompt is required" {
			code = http.StatusInternalServerError
		}
	}

	writeJSON(w, code, resp)
}

// handleLive is the liveness probe: the process is up, nothing more
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
