package main

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/config"
	"github.com/aquasafe/aquasafe/pkg/database"
	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
)

// RouteManager handles all API routes
type RouteManager struct {
	cfg     *config.Config
	store   database.Store
	repo    *repository.SampleRepository
	auth    *Authenticator
	metrics *Metrics
	limiter *ipRateLimiter
	logger  *zap.Logger
	Router  *mux.Router
}

// NewRouteManager creates a new RouteManager instance
func NewRouteManager(cfg *config.Config, store database.Store, logger *zap.Logger) *RouteManager {
	return &RouteManager{
		cfg:     cfg,
		store:   store,
		repo:    repository.New(store, cfg.Access.Policy(), repository.WithLogger(logger)),
		auth:    NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		metrics: NewMetrics(),
		limiter: newIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		logger:  logger,
		Router:  mux.NewRouter(),
	}
}

// Setup configures all API routes
func (rm *RouteManager) Setup() {
	r := rm.Router
	r.Use(rm.loggingMiddleware)
	r.Use(rm.metricsMiddleware)
	r.Use(rm.rateLimitMiddleware)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Operational endpoints
	r.HandleFunc("/health", rm.healthHandler).Methods("GET")
	r.Handle("/metrics", rm.metrics.Handler()).Methods("GET")

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()
	rm.setupAPIRoutes(api)
}

// setupAPIRoutes configures all API v1 routes
func (rm *RouteManager) setupAPIRoutes(api *mux.Router) {
	// Public auth endpoints (no auth required)
	api.HandleFunc("/auth/login", rm.handleLogin).Methods("POST")

	// Protected endpoints (auth required)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(rm.JWTAuthMiddleware)

	// User info
	protected.HandleFunc("/auth/me", rm.handleMe).Methods("GET")
	protected.HandleFunc("/auth/refresh", rm.handleRefreshToken).Methods("POST")

	// Samples; statistics is registered before {id} so it is not taken for one
	samples := protected.PathPrefix("/samples").Subrouter()
	samples.HandleFunc("", rm.listSamplesHandler).Methods("GET")
	samples.HandleFunc("/statistics", rm.sampleStatisticsHandler).Methods("GET")
	samples.HandleFunc("/{id}", rm.getSampleHandler).Methods("GET")

	// Sample management
	samples.Handle("", rm.requireRole(models.RoleHigherOfficial, rm.createSampleHandler)).Methods("POST")
	samples.Handle("/{id}", rm.requireRole(models.RoleHigherOfficial, rm.updateSampleHandler)).Methods("PUT")
	samples.Handle("/{id}", rm.requireRole(models.RoleHigherOfficial, rm.deleteSampleHandler)).Methods("DELETE")
}

// Handler returns the router wrapped in CORS handling. Preflight requests
// are answered here, before route matching.
func (rm *RouteManager) Handler() http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: rm.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	})(rm.Router)
}
