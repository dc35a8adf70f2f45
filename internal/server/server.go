// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects storage, services,
// handlers and middleware, and decides which URL patterns map to which
// handler functions and what guards run in front of them.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB → store.Manager → BriefingService → Briefing/Public/Dashboard handlers
//	  sqlite.DB + TokenService  → AuthService     → AuthHandler, route guards
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/config"
	"github.com/sakif/briefme/internal/handler"
	"github.com/sakif/briefme/internal/metrics"
	"github.com/sakif/briefme/internal/middleware"
	sqliteRepo "github.com/sakif/briefme/internal/repository/sqlite"
	"github.com/sakif/briefme/internal/service"
	"github.com/sakif/briefme/internal/store"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. It is closed in Start() during
// graceful shutdown, or by Close() when the server is never started.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
}

// New creates a new Server with the given config.
//
// Each layer only receives what it needs:
//   - the store manager and auth service get repository interfaces, not *sqlite.DB
//   - handlers get services, never the database
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error { return s.db.Close() }

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request and feeds the request metrics
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger, s.metrics))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	pages, err := handler.NewPages(s.logger)
	if err != nil {
		return err
	}

	stores := store.NewManager(s.db, store.LogNotifier(s.logger))
	briefingService := service.NewBriefingService(stores, s.config.PublicOrigin, s.metrics, s.logger)
	authService := service.NewAuthService(s.db, s.db, tokens, s.metrics, s.logger)

	secure := strings.HasPrefix(s.config.PublicOrigin, "https://")
	authHandler := handler.NewAuthHandler(authService, pages, secure, s.logger)
	briefingHandler := handler.NewBriefingHandler(briefingService, s.logger)
	publicHandler := handler.NewPublicHandler(briefingService, pages, s.logger)
	dashboardHandler := handler.NewDashboardHandler(briefingService, pages, s.logger)

	// === Operational routes ===
	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	// === Public pages ===
	// OptionalAuth lets the landing and login pages send signed-in visitors on.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(authService))

		r.Get("/", authHandler.HandleLanding)
		r.Get("/login", authHandler.HandleLoginPage)
		r.Post("/login", authHandler.HandleLoginForm)
		r.Get("/signup", authHandler.HandleSignupPage)
		r.Post("/signup", authHandler.HandleSignupForm)
		r.Post("/logout", authHandler.HandleLogout)

		r.Get("/briefings/{id}", publicHandler.HandleForm)
		r.Post("/briefings/{id}", publicHandler.HandleSubmit)
	})

	// === Protected pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(authService))
		r.Get("/dashboard", dashboardHandler.HandleDashboard)

		r.Get("/create-briefing", dashboardHandler.HandleCreatePage)
		r.Post("/create-briefing", dashboardHandler.HandleCreateSubmit)
		r.Get("/edit-briefing/{id}", dashboardHandler.HandleEditPage)
		r.Post("/edit-briefing/{id}", dashboardHandler.HandleEditSubmit)
		r.Get("/view-briefing/{id}", dashboardHandler.HandleView)
		r.Get("/response/{briefingId}/{responseId}", dashboardHandler.HandleResponse)
		r.Post("/delete-briefing/{id}", dashboardHandler.HandleDelete)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleAPISignup)
		r.Post("/auth/login", authHandler.HandleAPILogin)
		r.Post("/auth/logout", authHandler.HandleAPILogout)

		r.Get("/public/briefings/{id}", publicHandler.HandleAPIGet)
		r.Post("/public/briefings/{id}/responses", publicHandler.HandleAPISubmit)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))

			r.Get("/me", authHandler.HandleMe)

			r.Route("/briefings", func(r chi.Router) {
				r.Get("/", briefingHandler.HandleList)
				r.Post("/", briefingHandler.HandleCreate)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", briefingHandler.HandleGet)
					r.Put("/", briefingHandler.HandleUpdate)
					r.Delete("/", briefingHandler.HandleDelete)
					r.Get("/link", briefingHandler.HandleLink)

					r.Post("/fields", briefingHandler.HandleAddField)
					r.Put("/fields/{fieldId}", briefingHandler.HandleUpdateField)
					r.Delete("/fields/{fieldId}", briefingHandler.HandleRemoveField)
					r.Post("/fields/{fieldId}/move", briefingHandler.HandleMoveField)
					r.Post("/fields/{fieldId}/options", briefingHandler.HandleAddOption)
					r.Delete("/fields/{fieldId}/options/{index}", briefingHandler.HandleRemoveOption)

					r.Get("/responses", briefingHandler.HandleResponses)
					r.Get("/responses/{responseId}", briefingHandler.HandleResponse)
				})
			})
		})

		r.NotFound(handler.HandleAPINotFound)
	})

	s.router.NotFound(pages.NotFound)

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.PublicOrigin),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
