package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/app"
	"github.com/brickflow/brickflow/internal/observability"
	"github.com/brickflow/brickflow/internal/platform/db"
	"github.com/brickflow/brickflow/internal/rbac"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/storage/memstore"
	"github.com/brickflow/brickflow/internal/storage/postgres"
	"github.com/brickflow/brickflow/internal/workflow"
)

type repository interface {
	workflow.Repository
	reports.Repository
	app.BrickTypeSeeder
}

func main() {
	if app.InTestMode() {
		fmt.Fprintln(os.Stderr, "test mode detected, skipping runtime startup")
		return
	}

	// A local .env only fills variables the environment does not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	tokens := rbac.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(tokens, os.Args[2:]); err != nil {
			logger.Error("issue token", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg, logger, tokens); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func serve(cfg *app.Config, logger *zap.Logger, tokens *rbac.TokenService) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.CatalogFile != "" {
		n, err := app.SeedCatalog(ctx, repo, cfg.CatalogFile)
		if err != nil {
			return err
		}
		logger.Info("brick type catalog loaded", zap.Int("count", n), zap.String("file", cfg.CatalogFile))
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	workflowService := workflow.NewService(repo, logger.Named("workflow"))
	if metrics != nil {
		workflowService.SetObserver(metrics)
	}
	reportsService := reports.NewService(repo, logger.Named("reports"))

	rbacMiddleware := rbac.Middleware{Tokens: tokens, Logger: logger.Named("rbac")}
	router := app.NewRouter(app.RouterParams{
		Logger:          logger.Named("http"),
		Config:          cfg,
		RBACMiddleware:  rbacMiddleware,
		WorkflowHandler: workflow.NewHandler(logger, workflowService, rbacMiddleware),
		ReportsHandler:  reports.NewHandler(logger, reportsService, rbacMiddleware),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			zap.String("addr", cfg.AppAddr),
			zap.String("storage", cfg.StorageDriver),
			zap.String("env", cfg.AppEnv),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, cfg *app.Config, logger *zap.Logger) (repository, func(), error) {
	if cfg.StorageDriver == app.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{
		MaxConns:        cfg.PGMaxConns,
		MaxConnLifetime: cfg.PGMaxConnLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(pool)
	if cfg.PGMigrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return store, pool.Close, nil
}

// issueToken prints a bearer token for the given actor.
func issueToken(tokens *rbac.TokenService, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "", "role: Admin, Sales Executive, Logistics or Accounts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := tokens.Issue(shared.Actor{UserID: *userID, Name: *name, Role: shared.Role(*role)})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
