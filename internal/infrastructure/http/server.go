package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/config"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	config     *config.ServerConfig
	handler    *handler.ProductHandler
	logger     *slog.Logger
	telemetry  *telemetry.Telemetry
	pinger     Pinger
	httpServer *http.Server
}

// NewServer creates a new HTTP server. pinger may be nil when the store has
// nothing to check.
func NewServer(
	cfg *config.ServerConfig,
	handler *handler.ProductHandler,
	logger *slog.Logger,
	telem *telemetry.Telemetry,
	pinger Pinger,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		handler:   handler,
		logger:    logger,
		telemetry: telem,
		pinger:    pinger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return s
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	// Structured JSON logging middleware (replaces chimiddleware.Logger)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// Add HTTP route to context so all logs include it automatically
	s.router.Use(middleware.HTTPRouteContext())

	meter := s.telemetry.MeterProvider.Meter("products-api")
	s.router.Use(middleware.RouteLabeler())
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))

	if s.config.DurationMetricMS {
		s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
	}
}

// setupRoutes configures the page and API routes
func (s *Server) setupRoutes() {
	s.router.Get("/", handler.Index)

	s.router.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.handler.ListProducts)
		r.Post("/", s.handler.CreateProduct)
		r.Get("/trash", s.handler.ListTrashed)
		r.Get("/export", s.handler.ExportProducts)
		r.Post("/restore", s.handler.RestoreProduct)
		r.Delete("/bulk-delete", s.handler.BulkDelete)
		r.Post("/bulk-restore", s.handler.BulkRestore)
		r.Put("/{id}", s.handler.UpdateProduct)
		r.Delete("/{id}", s.handler.DeleteProduct)
	})

	// Health check endpoint
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.pinger != nil {
			if err := s.pinger.Ping(r.Context()); err != nil {
				s.logger.ErrorContext(r.Context(), "Health check failed",
					slog.String("error", err.Error()),
				)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint - exposes OpenTelemetry metrics
	s.router.Get("/metrics", promhttp.HandlerFor(s.telemetry.Registry, promhttp.HandlerOpts{}).ServeHTTP)
}

// Handler returns the router wrapped with otelhttp for automatic HTTP metrics and tracing.
// The route label is added from inside the router by middleware.RouteLabeler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
		otelhttp.WithTracerProvider(s.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(s.telemetry.MeterProvider),
	)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
