// Package server wires handlers, middleware and routes, and runs the HTTP
// server until its context is cancelled.
//
// DEPENDENCY INJECTION FLOW:
//
//	cmd/server/main.go creates: config → logger → sqlstore.Store, TokenService, PasswordService
//	server.New creates:         services → handlers → routes
//
// This is the composition root: nothing below it constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/handler"
	"github.com/sakif/literary-diary/internal/middleware"
	"github.com/sakif/literary-diary/internal/repository"
	"github.com/sakif/literary-diary/internal/service"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	healthTimeout          = 2 * time.Second
)

// Config holds server configuration.
type Config struct {
	Port      int
	StaticDir string

	// AuthRateLimitPerMinute throttles register and login per client IP.
	// Zero disables the limiter.
	AuthRateLimitPerMinute int
	// PopularWindow is how far back the home page counts reviews.
	PopularWindow time.Duration
	// ShutdownTimeout bounds the drain of in-flight requests. Zero means 30s.
	ShutdownTimeout time.Duration
}

// Store is the database the server runs on. The server owns it: Start closes
// it after the HTTP server has stopped.
type Store interface {
	repository.Store
	Ping(ctx context.Context) error
	Close() error
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router chi.Router
	config Config
	logger *slog.Logger
	store  Store
}

// New builds the services and handlers on top of store and registers every
// route.
func New(cfg Config, store Store, tokens *auth.TokenService, passwords *auth.PasswordService, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	accounts := service.NewAccountService(store, tokens, passwords, logger)
	catalog := service.NewCatalogService(store, logger, service.WithPopularWindow(cfg.PopularWindow))
	reviews := service.NewReviewService(store, logger)
	wishlist := service.NewWishlistService(store.Wishlist(), logger)

	s.routes(
		handler.NewAccountHandler(accounts, tokens, logger),
		handler.NewCatalogHandler(catalog, logger),
		handler.NewReviewHandler(reviews, logger),
		handler.NewWishlistHandler(wishlist, logger),
		tokens,
	)
	return s
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes configures middleware and route handlers.
//
// MIDDLEWARE ORDER:
//  1. RequestID: tags each request, picked up by the logger
//  2. RealIP: RemoteAddr from X-Forwarded-For, used by the rate limiter
//  3. Logger: wraps Recoverer so recovered panics are logged as 500s
//  4. Recoverer: turns a panic into a 500
func (s *Server) routes(
	accounts *handler.AccountHandler,
	catalog *handler.CatalogHandler,
	reviews *handler.ReviewHandler,
	wishlist *handler.WishlistHandler,
	tokens *auth.TokenService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// GET /static/kuvempu.jpeg → {StaticDir}/kuvempu.jpeg
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/healthz", s.handleHealth)

	limiter := middleware.NewRateLimiter(s.config.AuthRateLimitPerMinute, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Public.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/auth/register", accounts.HandleRegister)
			r.Post("/auth/login", accounts.HandleLogin)
		})
		r.Post("/auth/logout", accounts.HandleLogout)

		r.Get("/popular", catalog.HandlePopular)
		r.Get("/search", catalog.HandleSearch)
		r.Get("/search/autocomplete", catalog.HandleAutocomplete)
		r.Get("/genres/{genre}", catalog.HandleGenre)
		r.Get("/authors", catalog.HandleListAuthors)
		r.Get("/authors/{id}", catalog.HandleGetAuthor)
		r.Get("/works", catalog.HandleListWorks)
		r.Get("/works/{id}", catalog.HandleGetWork)
		r.Get("/works/{id}/reviews", reviews.HandleListForWork)
		r.With(auth.OptionalAuth(tokens)).Get("/users/{username}", accounts.HandleProfile)

		// Signed-in users only.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", accounts.HandleMe)
			r.Put("/me/password", accounts.HandleChangePassword)
			r.Delete("/me", accounts.HandleDeleteAccount)
			r.Get("/me/reviews", reviews.HandleListMine)

			r.Get("/me/wishlist", wishlist.HandleList)
			r.Post("/me/wishlist", wishlist.HandleAdd)
			r.Get("/me/wishlist/{workID}", wishlist.HandleContains)
			r.Delete("/me/wishlist/{workID}", wishlist.HandleRemove)

			r.Post("/authors", catalog.HandleCreateAuthor)
			r.Put("/authors/{id}", catalog.HandleUpdateAuthor)
			r.Post("/works", catalog.HandleCreateWork)
			r.Put("/works/{id}", catalog.HandleUpdateWork)

			r.Post("/works/{id}/reviews", reviews.HandleCreate)
			r.Put("/reviews/{id}", reviews.HandleUpdate)
			r.Delete("/reviews/{id}", reviews.HandleDelete)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to ShutdownTimeout for in-flight requests
//  3. Close the store
//
// The store is closed on every return path, including a failed listen.
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("server: listening on port %d: %w", s.config.Port, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("static", s.config.StaticDir),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", slog.Duration("timeout", s.config.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
