package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/config"
	"io.winapps.meicho/internal/db"
	"io.winapps.meicho/internal/entries"
	firebaseutil "io.winapps.meicho/internal/firebase"
	"io.winapps.meicho/internal/geocoding"
	"io.winapps.meicho/internal/handlers"
	"io.winapps.meicho/internal/media"
	"io.winapps.meicho/internal/metrics"
	"io.winapps.meicho/internal/middleware"
	"io.winapps.meicho/internal/notifications"
	"io.winapps.meicho/internal/objectstore"
	"io.winapps.meicho/internal/prompt"
	"io.winapps.meicho/internal/repository"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the prompt scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.InitPostgres(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Infow("migrations applied")
	}

	redisClient, err := db.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	firebaseApp, err := firebaseutil.InitFirebase(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	authClient, err := firebaseutil.AuthClient(ctx, firebaseApp)
	if err != nil {
		return err
	}

	objects, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	gateway := repository.NewPostgres(pool, objects.PublicURL)
	limits := media.DefaultLimits()
	limits.MaxFileSize = cfg.Media.MaxFileSize
	orchestrator := media.NewOrchestrator(objects, gateway, limits, logger.Named("media"))

	manager := entries.NewManager(entries.Deps{
		Gateway:   gateway,
		Media:     orchestrator,
		Objects:   objects,
		Snapshots: entries.NewRedisSnapshots(redisClient, cfg.Redis.SnapshotTTL),
		Logger:    logger.Named("entries"),
		Location:  cfg.Location(),
		Prompt:    prompt.Options{HistorySize: cfg.Prompt.History},
	})

	registry := notifications.NewRegistry(pool)
	var notifier *notifications.Notifier
	if cfg.Notifications.Enabled {
		fcm, err := firebaseutil.MessagingClient(ctx, firebaseApp)
		if err != nil {
			return err
		}
		notifier = notifications.NewNotifier(fcm, registry, logger.Named("push"))
	}
	scheduler, err := notifications.NewScheduler(notifications.SchedulerConfig{
		SweepSpec:    cfg.Prompt.SweepSpec,
		ReminderSpec: cfg.Prompt.ReminderSpec,
		Location:     cfg.Location(),
		IdleTTL:      cfg.Redis.StoreIdleTTL,
	}, manager, notifier, logger.Named("scheduler"))
	if err != nil {
		return err
	}

	geocoder := geocoding.NewClient(geocoding.Config{
		BaseURL:   cfg.Geocoding.BaseURL,
		UserAgent: cfg.Geocoding.UserAgent,
		Language:  cfg.Geocoding.Language,
		RPS:       cfg.Geocoding.RPS,
		Timeout:   cfg.Geocoding.Timeout,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = cfg.Media.MaxMemory
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RequestLoggingMiddleware(logger.Named("http")),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if local, ok := objects.(*objectstore.Local); ok {
		router.Static("/media", local.Root())
	}

	handlers.Routes{
		Auth: middleware.AuthMiddleware(middleware.AuthConfig{
			Verifier: authClient,
			Cache:    redisClient,
			CacheTTL: cfg.Redis.AuthTTL,
			Logger:   logger.Named("auth"),
		}),
		Entries:       handlers.NewEntryHandler(manager, logger.Named("handlers")),
		Geocode:       handlers.NewGeocodeHandler(geocoder, logger.Named("geocode")),
		Notifications: handlers.NewNotificationsHandler(registry, logger.Named("handlers")),
	}.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server starting", "addr", cfg.HTTPAddr, "object_store", cfg.Storage.Backend, "push", cfg.Notifications.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			<-scheduler.Stop().Done()
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warnw("scheduler jobs still running at shutdown")
	}

	logger.Infow("server exited")
	return nil
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error) {
	switch cfg.Backend {
	case config.StorageS3:
		return objectstore.NewS3(ctx, objectstore.S3Config{
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			BaseEndpoint:  cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
	case config.StorageMemory:
		return objectstore.NewMemory(cfg.LocalBaseURL), nil
	default:
		return objectstore.NewLocal(cfg.LocalRoot, cfg.LocalBaseURL)
	}
}
