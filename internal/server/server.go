// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every store, client and service is built in
// New and handed down explicitly, so there is no ambient global state and
// the lifecycle of each resource is tied to the Server.
//
// DEPENDENCY INJECTION FLOW:
//
//	sqlite.DB     → SessionService ─┐
//	xata.Client   → AuthService, AccountService, FlashcardService
//	llm.Client    → mood.Engine → MoodService
//	services      → handlers → chi routes
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/moodquest/internal/auth"
	"github.com/sakif/moodquest/internal/config"
	"github.com/sakif/moodquest/internal/handler"
	"github.com/sakif/moodquest/internal/llm"
	"github.com/sakif/moodquest/internal/middleware"
	"github.com/sakif/moodquest/internal/mood"
	"github.com/sakif/moodquest/internal/repository"
	sqliteRepo "github.com/sakif/moodquest/internal/repository/sqlite"
	"github.com/sakif/moodquest/internal/repository/xata"
	"github.com/sakif/moodquest/internal/service"
)

// Deps are the externally constructed collaborators the router needs.
// Tests build these from fakes; Open builds them from configuration.
type Deps struct {
	Users      repository.UserRepository
	Flashcards repository.FlashcardRepository
	Sessions   *sqliteRepo.DB
	Completer  mood.Completer
	Registry   *prometheus.Registry
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the session database and closes it on shutdown, after
// in-flight requests have finished.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *service.SessionService
}

// Open builds the real dependencies from cfg and returns a Server.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.Sessions.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.Sessions.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	store, err := xata.New(ctx, xata.Config{
		BaseURL: cfg.XataDBURL,
		APIKey:  cfg.XataAPIKey,
		Timeout: cfg.UpstreamTimeout,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document store client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	completer, err := llm.New(ctx, llm.Config{
		URL:     cfg.OpenRouterURL,
		Model:   cfg.OpenRouterModel,
		APIKey:  cfg.OpenRouterAPIKey,
		Timeout: cfg.UpstreamTimeout,
	}, llm.NewMetrics(registry), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating text-generation client: %w", err)
	}

	return New(cfg, Deps{
		Users:      store,
		Flashcards: store,
		Sessions:   db,
		Completer:  completer,
		Registry:   registry,
	}, logger), nil
}

// New wires deps into a router. It takes ownership of deps.Sessions.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     deps.Sessions,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET  /healthz                 liveness
//	GET  /metrics                 Prometheus
//	POST /register, /login        rate limited per client IP
//	GET  /verify, POST /logout    bearer session
//	GET  /leaderboard             bearer session
//	GET|POST /account/statistics  bearer session + X-API-Key
//	GET|POST /account/info        bearer session + X-API-Key
//	GET  /flashcards/database     bearer session
//	GET  /flashcards/{id}         bearer session
//	GET|POST /mood/test           bearer session
//
// MIDDLEWARE ORDER MATTERS: RequestID must run before Logger so the log line
// carries the id, and Recoverer must wrap everything below it.
func (s *Server) setupRoutes(deps Deps) {
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics := middleware.NewMetrics(registry)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Handler)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.APIKeyHeader},
		ExposedHeaders: []string{handler.MoodTestIDHeader},
		MaxAge:         300,
	}))

	// === Services ===
	s.sessions = service.NewSessionService(deps.Sessions, s.config.Sessions.TTL, s.logger)
	authService := service.NewAuthService(deps.Users, auth.NewPasswordService(), s.sessions, s.logger)
	accountService := service.NewAccountService(deps.Users, s.logger)
	flashcardService := service.NewFlashcardService(deps.Flashcards, s.logger)
	moodService := service.NewMoodService(mood.NewEngine(deps.Completer, s.logger), accountService, s.logger)

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(deps.Sessions, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	accountHandler := handler.NewAccountHandler(accountService, s.logger)
	flashcardHandler := handler.NewFlashcardHandler(flashcardService, s.logger)
	moodHandler := handler.NewMoodHandler(moodService, s.logger)

	requireSession := auth.RequireSession(s.sessions, s.logger)
	requireAPIKey := auth.RequireAPIKey([]byte(s.config.APISecret))

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.router.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.config.AuthRateLimit, time.Minute))
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	s.router.With(auth.RequireBearer).Post("/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/verify", authHandler.HandleVerify)
		r.Get("/leaderboard", accountHandler.HandleLeaderboard)

		r.Route("/account", func(r chi.Router) {
			r.Use(requireAPIKey)
			r.Get("/statistics", accountHandler.HandleGetStatistics)
			r.Post("/statistics", accountHandler.HandleUpdateStatistics)
			r.Get("/info", accountHandler.HandleGetAccountInfo)
			r.Post("/info", accountHandler.HandleUpdateAccountInfo)
		})

		r.Get("/flashcards/database", flashcardHandler.HandleList)
		r.Get("/flashcards/{id}", flashcardHandler.HandleGet)

		r.Get("/mood/test", moodHandler.HandleGetTest)
		r.Post("/mood/test", moodHandler.HandleSubmit)
	})
}

// writeTimeout covers the slowest handler, POST /mood/test: one
// text-generation call followed by up to service.MaxUpdateAttempts
// read-then-write rounds against the document store, each call bounded by
// upstream, plus slack for the rest of the request.
func writeTimeout(upstream time.Duration) time.Duration {
	calls := 1 + 2*service.MaxUpdateAttempts
	return time.Duration(calls)*upstream + 15*time.Second
}

// Start runs the HTTP server and the session reaper until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections and stop the reaper
//  2. Wait up to 30s for in-flight requests
//  3. Close the session database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(s.config.UpstreamTimeout),
		IdleTimeout:       60 * time.Second,
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go s.sessions.RunReaper(reaperCtx, s.config.Sessions.ReapInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("session_db", s.config.Sessions.DBPath),
			slog.Duration("session_ttl", s.config.Sessions.TTL),
			slog.Duration("reap_interval", s.config.Sessions.ReapInterval),
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
		stopReaper()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
