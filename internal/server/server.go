// Package server is the composition root: it opens storage, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → store (sqlite.DB | postgres.DB)     implements ItemRepository + UserRepository
//	  → blobs (blob.FSStore | blob.S3Store) implements blob.Store
//	  → ItemService, StatsService, AuthService
//	  → ItemHandler, StatsHandler, AuthHandler
//	  → routes
//
// Each layer only receives interfaces from the layer below.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/secret-share/internal/auth"
	"github.com/sakif/secret-share/internal/blob"
	"github.com/sakif/secret-share/internal/config"
	"github.com/sakif/secret-share/internal/handler"
	"github.com/sakif/secret-share/internal/middleware"
	"github.com/sakif/secret-share/internal/repository"
	"github.com/sakif/secret-share/internal/repository/postgres"
	sqliteRepo "github.com/sakif/secret-share/internal/repository/sqlite"
	"github.com/sakif/secret-share/internal/service"
)

// store is what the server needs from a storage backend.
type store interface {
	repository.ItemRepository
	repository.UserRepository
	Ping() error
	Close() error
}

// Server owns the router and the storage connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     store
}

// New opens storage according to cfg and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(blobs); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	opts := []repository.Option{repository.WithItemLifetime(cfg.ItemLifetime)}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURI, opts...)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath, opts...)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobS3:
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		fs, err := blob.NewFSStore(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                    → storage ping
//	GET    /auth/github/login          → OAuth redirect
//	GET    /auth/github/callback       → OAuth completion, sets token cookie
//	POST   /auth/logout                → clears token cookie
//	GET    /api/items/{uuid}           → password-gated retrieval (public)
//	POST   /api/items/{uuid}           → same, password in the form body
//	POST   /api/items                  → create              (auth)
//	GET    /api/items                  → owner's items       (auth)
//	GET    /api/items/{uuid}/info      → one owned item      (auth)
//	GET    /api/stats                  → per-day statistics  (auth)
//	GET    /api/me, DELETE /api/me     → profile, account    (auth)
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Logger → Recoverer. Logger sits outside Recoverer so
// the 500 written after a panic is still logged.
func (s *Server) setupRoutes(blobs blob.Store) error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	secret := cfg.JWTSecret
	if secret == "" {
		var err error
		if secret, err = ephemeralSecret(); err != nil {
			return err
		}
		s.logger.Warn("JWT_SECRET not set; using an ephemeral secret, sessions end on restart")
	}
	tokens, err := auth.NewTokenService(secret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.CallbackURL())
	} else {
		s.logger.Warn("GitHub OAuth not configured; owners cannot log in")
	}

	itemService := service.NewItemService(
		s.db,
		blobs,
		auth.NewPasswordGenerator(cfg.PasswordLength),
		auth.NewPasswordService(cfg.BcryptCost),
		cfg.ItemLifetime,
		s.logger,
	)
	statsService := service.NewStatsService(s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, s.logger)

	secure := strings.HasPrefix(cfg.BaseURL, "https://")
	itemHandler := handler.NewItemHandler(itemService, cfg.BaseURL, cfg.MaxUploadBytes(), s.logger)
	statsHandler := handler.NewStatsHandler(statsService, s.logger)
	authHandler := handler.NewAuthHandler(github, authService, secure, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/items/{uuid}", itemHandler.HandleRetrieve)
		r.Post("/items/{uuid}", itemHandler.HandleRetrieve)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(middleware.UserAgent(authService, s.logger))

			r.Post("/items", itemHandler.HandleCreate)
			r.Get("/items", itemHandler.HandleList)
			r.Get("/items/{uuid}/info", itemHandler.HandleInfo)
			r.Get("/stats", statsHandler.HandleStats)
			r.Get("/me", authHandler.HandleMe)
			r.Delete("/me", authHandler.HandleDeleteMe)
		})
	})

	return nil
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the storage connection without serving.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up to
// 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and downloads may be large; only idle connections are cut.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("driver", s.config.DBDriver),
			slog.String("blobs", s.config.BlobBackend),
			slog.Duration("itemLifetime", s.config.ItemLifetime),
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
