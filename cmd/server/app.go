package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkdraft/inkdraft-api/internal/config"
	"github.com/inkdraft/inkdraft-api/internal/events"
	"github.com/inkdraft/inkdraft-api/internal/generation"
	"github.com/inkdraft/inkdraft-api/internal/platform/gemini"
	"github.com/inkdraft/inkdraft-api/internal/platform/postgres"
	"github.com/inkdraft/inkdraft-api/internal/queue"
	"github.com/inkdraft/inkdraft-api/internal/service"
	"github.com/inkdraft/inkdraft-api/internal/service/auth"
	"github.com/inkdraft/inkdraft-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore    store.UserStore
	jobStore     store.JobStore
	articleStore store.ArticleStore

	// Services
	jwtService  auth.JWTService
	userService service.UserService
	jobService  service.JobService
	generator   generation.ArticleGenerator

	// Event system
	eventEmitter events.EventEmitter

	// Job execution
	orchestrator *queue.Orchestrator
}

// newApplication creates a new application instance with all
// dependencies initialized. The orchestrator is started here so that
// unfinished jobs from a previous run are recovered before the HTTP
// server accepts new submissions.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Stores
	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)
	app.articleStore = postgres.NewPostgresArticleStore(db, logger)

	// Article generator
	app.generator, err = gemini.NewGeminiGenerator(
		ctx,
		logger.With("component", "article_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize article generator: %w", err)
	}
	logger.Info("article generator initialized", "model", cfg.LLM.ModelName)

	// Orchestrator
	app.orchestrator, err = queue.NewOrchestrator(
		app.jobStore,
		app.articleStore,
		app.generator,
		queue.Config{
			JobWorkers:      cfg.Queue.JobWorkers,
			ItemConcurrency: cfg.Queue.ItemConcurrency,
			AdmitBuffer:     cfg.Queue.AdmitBuffer,
			ItemTimeout:     time.Duration(cfg.Queue.ItemTimeoutSeconds) * time.Second,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	if err := app.orchestrator.Start(); err != nil {
		return nil, fmt.Errorf("failed to start orchestrator: %w", err)
	}

	// Event emitter bridges job submission to admission
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(queue.NewAdmissionEventHandler(app.orchestrator, logger))
	app.eventEmitter = emitter

	// Services
	app.userService, err = service.NewUserService(
		app.userStore,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewBcryptVerifier(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.jobService, err = service.NewJobService(
		app.jobStore,
		app.articleStore,
		app.orchestrator,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. The
// orchestrator stops first so in-flight items finish persisting before
// the database connection closes.
func (app *application) cleanup() {
	if app.orchestrator != nil {
		app.orchestrator.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
