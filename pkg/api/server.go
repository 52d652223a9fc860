package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/tally/pkg/httputil"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/usage"
)

// defaultRequestTimeout caps report handling; reports run full table scans.
const defaultRequestTimeout = 60 * time.Second

// Server represents our API server
type Server struct {
	usage   *usage.Service
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics

	requestTimeout time.Duration
	allowedOrigins []string
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithRequestTimeout overrides the per-request deadline.
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a new API server
func NewServer(svc *usage.Service, logger *observability.Logger, metrics *observability.Metrics, opts ...ServerOption) *Server {
	s := &Server{
		usage:          svc,
		router:         mux.NewRouter(),
		logger:         logger,
		metrics:        metrics,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Source catalog routes
	v1.HandleFunc("/sources", s.listSources).Methods("GET")

	// Usage report routes
	v1.HandleFunc("/usage/overview", s.getOverview).Methods("GET")
	v1.HandleFunc("/usage/dimensions", s.getBreakdown).Methods("GET")
	v1.HandleFunc("/usage/users", s.getUsers).Methods("GET")
	v1.HandleFunc("/usage/top", s.getTopOwners).Methods("GET")

	// Trend routes
	v1.HandleFunc("/usage/trends/daily", s.getDailyTrend).Methods("GET")
	v1.HandleFunc("/usage/trends/monthly", s.getMonthlyTrend).Methods("GET")
	v1.HandleFunc("/usage/users/signups", s.getSignupTrend).Methods("GET")
}

// ServeHTTP implements http.Handler with the full middleware stack applied.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler().ServeHTTP(w, r)
}

func (s *Server) handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, httputil.MetricsMiddleware(s.metrics))
	}
	middlewares = append(middlewares,
		httputil.RecoveryMiddleware(s.logger),
		httputil.TimeoutMiddleware(s.requestTimeout),
	)
	if len(s.allowedOrigins) > 0 {
		middlewares = append(middlewares, httputil.CORSMiddleware(s.allowedOrigins))
	}

	return otelhttp.NewHandler(httputil.Chain(middlewares...)(s.router), "tally-api")
}

// Router exposes the underlying router without middleware, for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
