package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"promptmart-admin/internal/cache"
	"promptmart-admin/internal/category"
	"promptmart-admin/internal/config"
	"promptmart-admin/internal/db"
	"promptmart-admin/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	JSON  bool
	Actor string

	// connect builds the service and a func releasing its connections.
	connect func(ctx context.Context) (category.Service, func(), error)
}

func newRootCmd(app *App) *cobra.Command {
	if app.connect == nil {
		app.connect = connectService
	}

	cmd := &cobra.Command{
		Use:          "catctl",
		Short:        "Inspect and maintain the category hierarchy",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Show the display tree
  catctl tree

  # Report sibling groups with duplicate or missing sort orders
  catctl check

  # Renumber every group from creation order
  catctl repair
`),
	}

	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Write JSON output")
	cmd.PersistentFlags().StringVar(&app.Actor, "actor", defaultActor(), "Operator name recorded in logs")

	cmd.AddCommand(
		newTreeCmd(app),
		newCheckCmd(app),
		newMoveCmd(app),
		newReorderCmd(app),
		newRepairCmd(app),
	)
	return cmd
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}

// connectService talks to the database directly. Mutations still invalidate
// the shared tree cache when Redis is configured.
func connectService(ctx context.Context) (category.Service, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.AppEnv)

	database, err := db.NewDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { database.Close() }}

	var opts []category.Option
	if cfg.CacheEnabled() {
		client, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.FromCtx(ctx).Warn("tree cache unavailable; server may serve stale trees until TTL", zap.Error(err))
		} else {
			opts = append(opts, category.WithCache(cache.NewTreeCache(client, cfg.TreeCacheTTL)))
			closers = append(closers, func() { client.Close() })
		}
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logger.Sync()
	}
	return category.NewService(category.NewRepository(database), opts...), closeAll, nil
}

// withService runs fn against a connected service with the operator recorded
// on the context.
func withService(cmd *cobra.Command, app *App, fn func(ctx context.Context, svc category.Service) error) error {
	ctx := logger.WithActor(cmd.Context(), app.Actor)

	svc, closeFn, err := app.connect(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeFn()

	if err := fn(ctx, svc); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
