// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it opens the configured store, builds
// the rate limiter, wires services into handlers and decides which middleware
// runs on which routes.
//
//	config → repository.Store → ProfileService / StatsService → handlers
package server

import (
	"context"
	"errors"
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
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/privachat/statledger/internal/auth"
	"github.com/privachat/statledger/internal/config"
	"github.com/privachat/statledger/internal/handler"
	"github.com/privachat/statledger/internal/middleware"
	"github.com/privachat/statledger/internal/ratelimit"
	"github.com/privachat/statledger/internal/repository"
	pgRepo "github.com/privachat/statledger/internal/repository/postgres"
	sqliteRepo "github.com/privachat/statledger/internal/repository/sqlite"
	"github.com/privachat/statledger/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the store and the optional Redis client; both are closed
// when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *redis.Client
}

// New opens storage and builds the router for cfg.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	limiterStore := ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		redisStore, err := ratelimit.NewRedisStore(s.redis)
		if err != nil {
			// Per-instance counters beat no counters at all.
			logger.Warn("redis unreachable, rate limiting per instance",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			limiterStore = redisStore
		}
	}

	lim, err := ratelimit.NewLimiter(limiterStore, cfg.RateLimitMax, cfg.RateLimitWindow, cfg.BehindProxy)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating rate limiter: %w", err)
	}

	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating token service: %w", err)
		}
	}

	s.setupRoutes(lim, tokens)
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return pgRepo.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll is a no-op when the directory already exists.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/health              → liveness
// GET    /api/ready               → storage reachable
// GET    /api/profile/{user_id}   → read profile
// PUT    /api/profile/{user_id}   → merge upsert          [auth when JWT_SECRET set]
// GET    /api/stats/{user_id}     → read counters
// POST   /api/stats/{user_id}     → increment one counter [auth when JWT_SECRET set]
// POST   /api/events/{user_id}    → apply event reward    [auth when JWT_SECRET set]
// GET    /*                       → static frontend, when STATIC_DIR is set
//
// MIDDLEWARE ORDER MATTERS:
// Behind a proxy RealIP runs first so the log line sees the client address
// rather than the proxy's. Without BEHIND_PROXY forwarded headers are ignored
// everywhere, since any client can set them.
func (s *Server) setupRoutes(lim *limiter.Limiter, tokens *auth.TokenService) {
	if s.config.BehindProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	profileHandler := handler.NewProfileHandler(service.NewProfileService(s.store, s.logger), s.logger)
	statsHandler := handler.NewStatsHandler(service.NewStatsService(s.store, s.logger), s.logger)

	// Write routes are open unless a secret is configured.
	protect := func(h http.HandlerFunc) http.Handler { return h }
	if tokens != nil {
		requireSubject := auth.RequireSubject(tokens, handler.UserIDParam, handler.WriteError)
		protect = func(h http.HandlerFunc) http.Handler { return requireSubject(h) }
	} else {
		s.logger.Warn("JWT_SECRET not set, write endpoints are unauthenticated")
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(lim, s.logger))

		r.Get("/health", handler.HandleHealth)
		r.Get("/ready", handler.HandleReady(s.store, s.logger))

		r.Get("/profile/{user_id}", profileHandler.HandleGet)
		r.Method(http.MethodPut, "/profile/{user_id}", protect(profileHandler.HandleUpsert))

		r.Get("/stats/{user_id}", statsHandler.HandleGet)
		r.Method(http.MethodPost, "/stats/{user_id}", protect(statsHandler.HandleIncrement))

		r.Method(http.MethodPost, "/events/{user_id}", protect(statsHandler.HandleEvent))
	})

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store and the Redis client
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("auth", s.config.JWTSecret != ""),
			slog.Bool("shared_rate_limit", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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

// Close releases the store and the Redis client, logging failures. Start
// calls it on return; callers that never Start must call it themselves.
func (s *Server) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("closing redis", slog.String("error", err.Error()))
		}
	}
}
