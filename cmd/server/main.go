package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptmart-admin/internal/cache"
	"promptmart-admin/internal/category"
	"promptmart-admin/internal/config"
	"promptmart-admin/internal/db"
	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/metrics"
	"promptmart-admin/internal/middleware"
	"promptmart-admin/internal/rest"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.NewDatabase
	migrateFunc     = db.Migrate
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := migrateFunc(database); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, cleanup := newServer(ctx, cfg, database)
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return startServerFunc(ctx, srv)
}

// newServer wires the category stack. The returned func releases the cache
// connection.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func()) {
	reg := metrics.NewRegistry()
	opts := []category.Option{category.WithMetrics(reg)}
	cleanup := func() {}

	if cfg.CacheEnabled() {
		client, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.L().Warn("tree cache disabled", zap.Error(err))
		} else {
			opts = append(opts, category.WithCache(cache.NewTreeCache(client, cfg.TreeCacheTTL)))
			cleanup = func() { client.Close() }
		}
	}

	svc := category.NewService(category.NewRepository(database), opts...)

	router := rest.NewRouter(rest.NewHandler(svc, reg), rest.RouterConfig{
		JWTSecret:   []byte(cfg.JWTSecret),
		InternalKey: cfg.InternalKey,
		Limiter:     middleware.NewRateLimiter(ctx),
	})
	return router, cleanup
}

func startServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("🚀 admin API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
