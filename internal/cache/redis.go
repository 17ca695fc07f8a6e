package cache

import (
	"context"
	"fmt"
	"time"

	"promptmart-admin/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.L().Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	return client, nil
}
