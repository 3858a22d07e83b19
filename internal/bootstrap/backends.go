package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/promptlab-backend/config"
	httpapi "github.com/GoSim-25-26J-441/promptlab-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/autosave"
	prompthttp "github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/http"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/memstore"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/repository"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/service"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/versioning"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/storage/postgres"
)

// PromptBackend stores prompts and their versions.
type PromptBackend interface {
	service.PromptStore
	versioning.VersionStore
}

// DraftBackend stores auto-save records.
type DraftBackend interface {
	autosave.Store
	autosave.PurgeStore
	prompthttp.DraftStore
}

// Backends are the opened storage drivers plus their health probes.
type Backends struct {
	Prompts   PromptBackend
	Drafts    DraftBackend
	DBPing    httpapi.PingFunc
	RedisPing httpapi.PingFunc

	closers []func()
}

// OpenBackends opens the storage selected by cfg.Storage.Driver. The postgres
// driver keeps prompts in Postgres and drafts in Redis; the memory driver
// keeps everything in one process.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memstore.New()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &Backends{Prompts: store, Drafts: store}, nil

	case config.DriverPostgres:
		b := &Backends{}

		pool, err := OpenDB(ctx, DBOptions{
			DSN:      cfg.Database.PostgresDSN(),
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
			Attempts: cfg.Database.ConnectAttempts,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		db := postgres.NewConnection(pool)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			b.Close()
			return nil, err
		}

		rdb, err := OpenRedis(ctx, cfg.Redis, cfg.Database.ConnectAttempts)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })

		b.Prompts = repository.NewPromptRepository(db)
		b.Drafts = repository.NewAutoSaveRepository(rdb)
		b.DBPing = pool.Ping
		b.RedisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		logger.Info("storage connected", "driver", cfg.Storage.Driver, "redis", cfg.Redis.Addr)
		return b, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Close releases the drivers in reverse open order.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
