// Package api provides the HTTP server for BitNet: model management,
// one-shot and streaming inference, and an OpenAI-style chat completions
// endpoint backed by the local inference binary.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/health"
	"github.com/bitnetlabs/bitnet/internal/infra/registry"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// Server is the BitNet HTTP API server.
type Server struct {
	models         *registry.Manager
	runner         domain.Runner
	log            zerolog.Logger
	version        string
	journal        *sqlite.DB      // nil disables operation records
	checker        *health.Checker // nil reports bare ok
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(models *registry.Manager, runner domain.Runner, log zerolog.Logger) *Server {
	return &Server{
		models:      models,
		runner:      runner,
		log:         log,
		version:     "dev",
		corsOrigins: []string{"*"},
	}
}

// SetVersion sets the version string reported by /health.
func (s *Server) SetVersion(v string) { s.version = v }

// SetJournal attaches the operation journal.
func (s *Server) SetJournal(db *sqlite.DB) { s.journal = db }

// SetChecker attaches the health checker whose results /health reports.
func (s *Server) SetChecker(c *health.Checker) { s.checker = c }

// SetCORSOrigins overrides the default allow-all CORS origin list.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "BitNet API is running",
		})
	})

	r.Get("/health", s.handleHealth)

	// Model management
	r.Route("/models", func(r chi.Router) {
		r.Get("/available", s.handleListAvailable)
		r.Get("/installed", s.handleListInstalled)
		r.Post("/download", s.handleDownload)
		r.Get("/{name}", s.handleModelInfo)
		r.Delete("/{name}", s.handleRemoveModel)
	})

	// Inference
	r.Post("/inference", s.handleInference)
	r.Post("/inference/stream", s.handleInferenceStream)
	r.Post("/chat/completions", s.handleChatCompletions)

	// Operation journal
	r.Get("/operations", s.handleListOperations)

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// --- /health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"engine":  s.runner.Name(),
	}
	status := http.StatusOK
	if s.checker != nil {
		if !s.checker.IsHealthy() {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		resp["checks"] = s.checker.Statuses()
	}
	writeJSON(w, status, resp)
}

// --- /operations ---

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ops := []sqlite.Operation{}
	if s.journal != nil {
		var err error
		ops, err = s.journal.ListOperations(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ops == nil {
			ops = []sqlite.Operation{}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": ops,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
