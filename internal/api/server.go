// Package api exposes the account and signing operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vencura/vencura/internal/config"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
	"github.com/vencura/vencura/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	accounts   AccountService
	operations OperationService
	authn      middleware.Authenticator
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	health     HealthChecker
	limiter    *middleware.RateLimiter

	httpServer *http.Server
}

// Deps are the collaborators a Server routes to
type Deps struct {
	Accounts      AccountService
	Operations    OperationService
	Authenticator middleware.Authenticator
	Metrics       *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// Health is probed by /health; nil always reports ok
	Health HealthChecker
}

// NewServer creates a new API server. The rate limiter's janitor stops when ctx is done.
func NewServer(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	return &Server{
		config:     cfg,
		accounts:   deps.Accounts,
		operations: deps.Operations,
		authn:      deps.Authenticator,
		metrics:    deps.Metrics,
		gatherer:   deps.Gatherer,
		health:     deps.Health,
		limiter:    middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitEnabled),
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Instrument(s.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.limiter.Limit)
	r.Use(middleware.LimitBody(middleware.MaxBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Auth(s.authn))

		api.Get("/accounts", s.handleListAccounts)
		api.Get("/account/{address}", s.handleGetAccount)
		api.Get("/account/{address}/balance", s.handleGetBalance)
		api.Get("/account/{address}/history", s.handleGetHistory)

		api.Group(func(w chi.Router) {
			w.Use(middleware.RequireJSON)

			w.Post("/account", s.handleCreateAccount)
			w.Put("/account/{address}", s.handleUpdateAccount)
			w.Post("/sign-message", s.handleSignMessage)
			w.Post("/sign-transaction", s.handleSignTransaction)
		})
	})

	return r
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Local signing waits on the KDF and the RPC node
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info(context.Background(), "starting server", "addr", s.config.Addr())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
