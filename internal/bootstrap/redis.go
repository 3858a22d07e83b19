package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/promptlab-backend/config"
)

// OpenRedis creates a Redis client and waits for it to answer PING.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, attempts int) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	if attempts < 1 {
		attempts = 1
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
