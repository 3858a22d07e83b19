package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DBOptions struct {
	DSN       string
	MaxConns  int
	MinConns  int
	Attempts  int
	ConnectTO time.Duration
	PingTO    time.Duration
	Logger    *slog.Logger
}

// OpenDB opens a pgx pool and retries the first ping. The database often
// comes up after the API in local compose setups.
func OpenDB(ctx context.Context, opt DBOptions) (*pgxpool.Pool, error) {
	if opt.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if opt.ConnectTO == 0 {
		opt.ConnectTO = 5 * time.Second
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}
	if opt.Attempts < 1 {
		opt.Attempts = 1
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	pcfg, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}
	if opt.MaxConns > 0 {
		pcfg.MaxConns = int32(opt.MaxConns)
	}
	if opt.MinConns > 0 {
		pcfg.MinConns = int32(opt.MinConns)
	}

	cctx, cancel := context.WithTimeout(ctx, opt.ConnectTO)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	err = retry.Do(
		func() error {
			pctx, pcancel := context.WithTimeout(ctx, opt.PingTO)
			defer pcancel()
			return pool.Ping(pctx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(opt.Attempts)),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			opt.Logger.Warn("database not ready", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return pool, nil
}
