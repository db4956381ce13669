package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/assistant-relay/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/assistant-relay/internal/http/middleware"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	GenerateHandler    *handlers.GenerateHandler
	GeneratePath       string
	CORSAllowedOrigins []string
	RateLimiter        httpmiddleware.Limiter
	MetricsHandler     http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	path := cfg.GeneratePath
	if path == "" {
		path = "/generate"
	}

	r.Get("/health", cfg.GenerateHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(relay chi.Router) {
		if cfg.RateLimiter != nil {
			relay.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		relay.Post(path, cfg.GenerateHandler.Generate)
	})

	return r
}
