package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/inkwell/internal/api"
	"github.com/lalith-99/inkwell/internal/config"
	"github.com/lalith-99/inkwell/internal/db"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/lock"
	"github.com/lalith-99/inkwell/internal/observ"
	"github.com/lalith-99/inkwell/internal/repository/memory"
	"github.com/lalith-99/inkwell/internal/repository/postgres"
	"github.com/lalith-99/inkwell/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Storage: Postgres (with migrations) or in-process maps.
	//
	// Repositories are assigned to the interface types in service.Repos,
	// so a store missing a method fails to compile here.
	// ---------------------------------------------------------------
	var (
		repos  service.Repos
		health func(context.Context) error
	)
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		mem := memory.New()
		repos = service.Repos{
			Profiles:  mem.Profiles(),
			Works:     mem.Works(),
			Chapters:  mem.Chapters(),
			Revisions: mem.Revisions(),
			Shares:    mem.Shares(),
			Comments:  mem.Comments(),
			Feedback:  mem.Feedback(),
		}
	default:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close()

		if cfg.RunMigrations {
			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		pool := database.Pool()
		repos = service.Repos{
			Profiles:  postgres.NewProfileStore(pool),
			Works:     postgres.NewWorkStore(pool),
			Chapters:  postgres.NewChapterStore(pool),
			Revisions: postgres.NewRevisionStore(pool),
			Shares:    postgres.NewShareStore(pool),
			Comments:  postgres.NewCommentStore(pool),
			Feedback:  postgres.NewFeedbackStore(pool),
		}
		health = database.Health
	}

	// ---------------------------------------------------------------
	// 4. Per-work lock: Redis when configured, so several server
	//    instances serialize on the same key; in-process otherwise.
	// ---------------------------------------------------------------
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.LockTTL)
		logger.Info("using redis work lock", zap.Duration("ttl", cfg.LockTTL))
	}

	// ---------------------------------------------------------------
	// 5. Services and HTTP
	// ---------------------------------------------------------------
	hub := events.NewHub(32, logger)
	profiles := service.NewProfileService(repos.Profiles, logger)
	shares := service.NewShareService(repos, cfg.SiteURL, hub, logger)

	router := api.NewRouter(api.Deps{
		Profiles:  profiles,
		Works:     service.NewWorkService(repos, profiles, hub, logger),
		Chapters:  service.NewChapterService(repos, locker, hub, logger),
		Shares:    shares,
		Comments:  service.NewCommentService(repos, profiles, hub, logger),
		Feedback:  service.NewFeedbackService(repos, shares, hub, logger),
		Hub:       hub,
		JWTSecret: cfg.JWTSecret,
		SiteURL:   cfg.SiteURL,
		Health:    health,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting Inkwell",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
