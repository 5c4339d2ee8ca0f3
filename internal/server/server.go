package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/resumehub/apiserver/config"
	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/db"
	"github.com/resumehub/apiserver/internal/handlers"
	"github.com/resumehub/apiserver/internal/logging"
	"github.com/resumehub/apiserver/internal/mq"
	"github.com/resumehub/apiserver/internal/services"
	"github.com/resumehub/apiserver/internal/storage"
	"github.com/resumehub/apiserver/internal/store"
)

const requestTimeout = 60 * time.Second

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Users   *services.UserService
	Resumes *services.ResumeService
	Tokens  *auth.TokenService
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	archive    *storage.Storage
	logger     *slog.Logger
}

// New validates cfg, connects to postgres, applies migrations and wires the
// optional event and archive backends.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(cfg); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open events backend: %w", err)
	}
	archive, err := storage.Open(ctx, cfg)
	if err != nil {
		if events != nil {
			_ = events.Close()
		}
		_ = dbConn.Close()
		return nil, fmt.Errorf("open revision archive: %w", err)
	}

	// Typed nil pointers must not reach the service as non-nil interfaces.
	var publisher services.EventPublisher
	if events != nil {
		publisher = events
	}
	var revisions services.RevisionArchive
	if archive != nil {
		revisions = archive
	}

	userRepo := store.NewUserRepository(dbConn)
	resumeRepo := store.NewResumeRepository(dbConn)

	deps := Dependencies{
		Users:   services.NewUserService(userRepo, auth.NewPasswordHasher(cfg.BcryptCost)),
		Resumes: services.NewResumeService(resumeRepo, publisher, revisions).WithChannel(cfg.Events.Channel),
		Tokens:  auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL),
	}
	router := NewRouter(cfg, logger, deps)

	logger.Info("server configured",
		slog.String("env", cfg.Env),
		slog.String("events_driver", cfg.Events.Driver),
		slog.String("archive_driver", cfg.Archive.Driver),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		db:      dbConn,
		events:  events,
		archive: archive,
		logger:  logger,
	}, nil
}

// NewRouter builds the HTTP routes on top of deps.
func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *chi.Mux {
	authn := handlers.NewAuthenticator(deps.Tokens, deps.Users, cfg.JWT.CookieName)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, handlers.CookieOptions{
		Name:   cfg.JWT.CookieName,
		Secure: cfg.JWT.CookieSecure,
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
				http.MethodDelete, http.MethodOptions, http.MethodHead,
			},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(requestTimeout),
	)
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authHandler, authn.RequireAuth)
	router.Route("/resumes", func(r chi.Router) {
		handlers.ResumeRouter(r, deps.Resumes, authn.RequireAuth)
	})
	return router
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker, the archive
// and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	errs := []error{s.httpServer.Shutdown(ctx)}
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.archive != nil {
		errs = append(errs, s.archive.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
