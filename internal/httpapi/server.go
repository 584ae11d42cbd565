package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"gigmap/internal/http/middleware"
	"gigmap/internal/metrics"
	"gigmap/internal/models"
	"gigmap/internal/uploads"
)

// PerformanceService captures the performance workflows needed by the HTTP handlers.
type PerformanceService interface {
	Create(ctx context.Context, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	List(ctx context.Context) ([]*models.Performance, error)
	ListByProvince(ctx context.Context, province string) ([]*models.Performance, error)
	ListByArtist(ctx context.Context, artist string) ([]*models.Performance, error)
	Artists(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id int64, fields models.PerformanceFields, poster *string) (*models.Performance, error)
	Delete(ctx context.Context, id int64) error
	Schema(ctx context.Context) ([]models.SchemaColumn, error)
}

// UploadIntake parses request bodies and serves stored posters.
type UploadIntake interface {
	Parse(r *http.Request) (*uploads.Form, error)
	Handler() http.Handler
}

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Healthy() bool
}

// Options tunes the router's cross-cutting middleware.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	performances PerformanceService
	intake       UploadIntake
	health       HealthChecker
	opts         Options
}

// New configures a Server. health may be nil.
func New(performances PerformanceService, intake UploadIntake, health HealthChecker, opts Options) *Server {
	return &Server{
		performances: performances,
		intake:       intake,
		health:       health,
		opts:         opts,
	}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogging())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(s.opts.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, messageResponse{Message: "method not allowed"})
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.opts.RateLimitPerMinute))

		r.Get("/status", s.handleStatus)
		r.Get("/performances", s.handleListPerformances)
		r.Post("/performances", s.handleCreatePerformance)
		r.Get("/performances/province/{province}", s.handleListByProvince)
		r.Get("/performances/artist/{artist}", s.handleListByArtist)
		r.Put("/performances/{id}", s.handleUpdatePerformance)
		r.Delete("/performances/{id}", s.handleDeletePerformance)
		r.Get("/artists", s.handleListArtists)
		r.Get("/check-schema", s.handleCheckSchema)
		r.Get("/uploads/*", s.intake.Handler().ServeHTTP)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil && !s.health.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("DATABASE UNAVAILABLE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "server is running"})
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// messageResponse is the envelope without a payload.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// dataResponse is the envelope carrying a payload.
type dataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type schemaResponse struct {
	Success bool                  `json:"success"`
	Schema  []models.SchemaColumn `json:"schema"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
