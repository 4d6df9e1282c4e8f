// cmd/botserver/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderbot/internal/bot/catalog"
	"orderbot/internal/bot/classifier"
	"orderbot/internal/bot/dialogue"
	"orderbot/internal/bot/store"
	"orderbot/internal/common/config"
	"orderbot/internal/common/database"
	"orderbot/internal/common/logger"
	"orderbot/internal/common/observability"
	"orderbot/internal/notify"
	"orderbot/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting bot server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("botserver")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Intent classifier (fallback routing only) ---
	var classifierCache redis.Cmdable
	if cfg.Classifier.CacheTTL > 0 {
		classifierCache = rdb.Client
	}
	intents := classifier.NewHTTPClassifier(
		&classifier.Config{
			BaseURL:    cfg.Classifier.BaseURL,
			APIKey:     cfg.Classifier.APIKey,
			Timeout:    config.GetDuration(cfg.Classifier.Timeout),
			MaxRetries: cfg.Classifier.MaxRetries,
			CacheTTL:   time.Duration(cfg.Classifier.CacheTTL) * time.Second,
		},
		classifierCache, log,
	)

	// --- Operator alerts ---
	var alerts notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		alerts, err = notify.NewOperatorNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("notifier setup failed", zap.Error(err))
		}
		zapLog.Info("Operator notifier initialized")
	} else {
		alerts = notify.NoopNotifier{}
		zapLog.Warn("No alert channel configured, handoff alerts disabled")
	}

	// --- Stores and dialogue controller ---
	conversations := store.NewConversationStore(pg.DB, log)
	locks := store.NewLockManager(rdb.Client)
	turns := store.NewTurnGuard(rdb.Client, config.GetDuration(cfg.Bot.TurnLeaseTTL))
	matcher := catalog.NewMatcher(pg.DB, log)

	controller := dialogue.NewController(
		conversations, matcher, intents, alerts,
		dialogue.Config{CatalogLimit: cfg.Bot.CatalogLimit},
		log,
	)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	srv := server.New(controller, locks, turns, conversations, obs, log)
	srv.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Bot server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down server", zap.Error(err))
	}

	zapLog.Info("Bot server stopped gracefully")
}
