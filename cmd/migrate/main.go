package main

import (
	"database/sql"
	"flag"
	"fmt"

	"promptmart-admin/internal/config"
	"promptmart-admin/internal/db"
	"promptmart-admin/internal/logger"

	"go.uber.org/zap"
)

var openDB = db.NewDatabase

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or status")
	flag.Parse()

	if err := run(*mode); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(mode string) error {
	migrate, err := migrationFor(mode)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return migrate(database)
}

func migrationFor(mode string) (func(*sql.DB) error, error) {
	switch mode {
	case "up":
		return db.Migrate, nil
	case "down":
		return db.Rollback, nil
	case "status":
		return db.Status, nil
	default:
		return nil, fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'status')", mode)
	}
}
