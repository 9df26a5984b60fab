// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which store and object storage back the app (from config)
//   - which URL patterns map to which handler
//   - which middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config → Store (sqlite | postgres) ─┐
//	config → ObjectStore (local | s3) ──┼→ services → handlers → routes
//	config → catalog.Client ────────────┘
//
// Everything is assembled here, in New, and nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/catalog"
	"github.com/sakif/sneaker-rotation/internal/config"
	"github.com/sakif/sneaker-rotation/internal/handler"
	"github.com/sakif/sneaker-rotation/internal/middleware"
	"github.com/sakif/sneaker-rotation/internal/repository"
	"github.com/sakif/sneaker-rotation/internal/repository/postgres"
	"github.com/sakif/sneaker-rotation/internal/repository/sqlite"
	"github.com/sakif/sneaker-rotation/internal/service"
	"github.com/sakif/sneaker-rotation/internal/storage"
	"github.com/sakif/sneaker-rotation/internal/validation"
	"github.com/sakif/sneaker-rotation/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and the catalog client. Run closes both once
// the HTTP server has drained; Close does the same for a Server that never ran.
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	store   repository.Store
	catalog *catalog.Client
	logger  *zap.Logger
}

// New opens the store and object storage named in cfg and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	objects, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening object storage: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		store:   store,
		catalog: catalog.NewClient(cfg.Catalog, logger),
		logger:  logger,
	}

	if err := s.setupRoutes(objects); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.DSN, cfg.MaxConns, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		if cfg.Path != ":memory:" {
			// 0755 = owner can read/write/execute, others can read/execute.
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(ctx, cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures middleware and all route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Logger: logs each request with timing info and the request ID
//  4. Recoverer: catches panics and returns 500 instead of crashing
//  5. CORS: only when cross-origin frontends are configured
//
// ROUTE GROUPS:
//   - /auth/*, /healthz: public JSON
//   - /api/*: JSON, RequireAuth (401 without a session)
//   - /login, /users: pages that work signed in or not (OptionalAuth)
//   - everything else: pages behind RequireSession (303 to /login)
func (s *Server) setupRoutes(objects storage.ObjectStore) error {
	cfg := s.cfg

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
	}
	cookies := auth.Cookies{Secure: cfg.Auth.CookieSecure}

	// === Services ===
	validate := validation.New()
	authService := service.NewAuthService(s.store, s.store, tokens, auth.NewPasswordService(), validate, s.logger)
	images := service.NewImageService(objects, cfg.HTTP.MaxUploadBytes, s.logger)
	sneakerService := service.NewSneakerService(s.store, images, validate, s.logger)
	profileService := service.NewProfileService(s.store, s.store)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, cookies, s.logger)
	sneakerHandler := handler.NewSneakerHandler(sneakerService, cfg.HTTP.MaxUploadBytes, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	catalogHandler := handler.NewCatalogHandler(s.catalog, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)
	pages, err := handler.NewPageHandler(handler.PageConfig{
		Templates:     web.FS,
		Auth:          authService,
		Sneakers:      sneakerService,
		Profiles:      profileService,
		Catalog:       s.catalog,
		Cookies:       cookies,
		GitHubEnabled: github != nil,
		MaxUpload:     cfg.HTTP.MaxUploadBytes,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSAllowOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// === Static Files ===
	// GET /static/css/style.css → web/static/css/style.css (embedded)
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening embedded static files: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// Uploaded images are only ours to serve when they live on local disk.
	if local, ok := objects.(*storage.LocalStore); ok {
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", local.Handler()))
	}

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/session", authHandler.HandleSession)

		r.Get("/sneakers", sneakerHandler.HandleList)
		r.Post("/sneakers", sneakerHandler.HandleCreate)
		r.Get("/sneakers/{id}", sneakerHandler.HandleGet)
		r.Patch("/sneakers/{id}", sneakerHandler.HandleUpdate)
		r.Put("/sneakers/{id}/rotation", sneakerHandler.HandleSetRotation)
		r.Delete("/sneakers/{id}", sneakerHandler.HandleDelete)
		r.Get("/rotation", sneakerHandler.HandleRotation)
		r.Post("/uploads", sneakerHandler.HandleUpload)

		r.Get("/profiles", profileHandler.HandleList)
		r.Get("/profiles/{id}", profileHandler.HandleGet)

		r.Get("/catalog/search", catalogHandler.HandleSearch)
	})

	// === Pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/login", pages.HandleLogin)
		r.Post("/login", pages.HandleLoginSubmit)
		r.Post("/signup", pages.HandleSignUpSubmit)
		r.Post("/logout", pages.HandleLogoutSubmit)
		r.Get("/users", pages.HandleUsers)
		r.Get("/users/{id}", pages.HandleUserProfile)
	})
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(tokens))
		r.Get("/", pages.HandleHome)
		r.Get("/my-sneakers", pages.HandleCollection)
		r.Get("/my-rotation", pages.HandleRotation)
		r.Get("/my-sneakers/add", pages.HandleAdd)
		r.Post("/my-sneakers/add", pages.HandleAddSubmit)
		r.Get("/my-sneakers/{id}/edit", pages.HandleEdit)
		r.Post("/my-sneakers/{id}/edit", pages.HandleEditSubmit)
		r.Get("/sneakers/{id}", pages.HandleDetail)
		r.Post("/sneakers/{id}/rotation", pages.HandleToggleRotation)
		r.Post("/sneakers/{id}/delete", pages.HandleDeleteSubmit)
	})

	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (up to http.shutdown_timeout)
//  3. Close the catalog client and the store
//
// errgroup ties the two goroutines together: if ListenAndServe fails (port
// already taken), the group's context is cancelled and the shutdown
// goroutine returns at once.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.App.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			zap.Int("port", s.cfg.App.Port),
			zap.String("url", s.cfg.App.BaseURL),
			zap.String("database", s.cfg.Database.Driver),
			zap.String("storage", s.cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", zap.Duration("timeout", s.cfg.HTTP.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases the catalog client and the store.
func (s *Server) Close() error {
	s.catalog.Close()
	return s.store.Close()
}
