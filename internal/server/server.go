package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pipecraft/apiserver/config"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/db"
	"github.com/pipecraft/apiserver/internal/handlers"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/mq"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/pipecraft/apiserver/internal/store"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	mq         *mq.MQ
	logger     logging.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, cfg.Log)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var orphans storage.OrphanReporter
	if queue != nil {
		orphans = mq.NewOrphanNotifier(queue, cfg.MQ.OrphanChannel)
	}
	blobs := storage.NewLifecycle(objects, logger, orphans)

	userRepo := store.NewUserRepository(dbConn)
	careerRepo := store.NewCareerRepository(dbConn)

	tokens := auth.NewTokenCodec(
		cfg.Auth.AccessTokenSecret, cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenSecret, cfg.Auth.RefreshTokenTTL,
	)
	sessionService := services.NewSessionService(userRepo, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, blobs, logger)
	userService := services.NewUserService(userRepo, blobs, logger)
	careerService := services.NewCareerService(careerRepo, logger)
	catalogService := services.NewCatalogService(store.NewServiceRepository(dbConn), logger)
	contactService := services.NewContactService(store.NewContactRepository(dbConn), logger)
	projectService := services.NewProjectService(store.NewProjectRepository(dbConn), blobs, logger)
	applicationService := services.NewApplicationService(store.NewApplicationRepository(dbConn), careerRepo, blobs, logger)

	authMiddleware := handlers.RequireAuth(sessionService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		handlers.CORS(cfg.ClientURL),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Get("/pingme", handlers.Ping)
		r.Route("/users", func(r chi.Router) {
			handlers.AuthRouter(r, handlers.NewAuthHandler(sessionService, userService, cfg.Cookies, logger), authMiddleware)
		})
		r.Route("/services", func(r chi.Router) {
			handlers.CatalogRouter(r, handlers.NewCatalogHandler(catalogService, logger), authMiddleware)
		})
		r.Route("/contacts", func(r chi.Router) {
			handlers.ContactRouter(r, handlers.NewContactHandler(contactService, logger), authMiddleware)
		})
		r.Route("/careers", func(r chi.Router) {
			handlers.CareerRouter(r, handlers.NewCareerHandler(careerService, logger), authMiddleware)
		})
		r.Route("/applications", func(r chi.Router) {
			handlers.ApplicationRouter(r, handlers.NewApplicationHandler(applicationService, logger), authMiddleware)
		})
		r.Route("/projects", func(r chi.Router) {
			handlers.ProjectRouter(r, handlers.NewProjectHandler(projectService, logger), authMiddleware)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info(ctx, "server configured",
		"port", port,
		"env", cfg.Env,
		"storage", cfg.Storage.Backend,
		"bucket", objects.Bucket(),
		"mq", cfg.MQ.Backend,
	)

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		mq:         queue,
		logger:     logger,
	}, nil
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
