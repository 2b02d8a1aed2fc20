package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/parkour/internal/config"
)

var (
	// ErrNoState means nothing has been persisted yet.
	ErrNoState = errors.New("ledger: no persisted state")
	// ErrPersistLoad wraps failures reading or decoding persisted state.
	ErrPersistLoad = errors.New("ledger: load failed")
	// ErrPersistWrite wraps failures writing the ledger.
	ErrPersistWrite = errors.New("ledger: write failed")
)

// Persister stores the whole ledger as one unit.
type Persister interface {
	Load(ctx context.Context) ([]Slot, error)
	Save(ctx context.Context, slots []Slot) error
	Close() error
}

// Open returns the persister selected by cfg.Ledger.Backend. migrateUp
// applies the schema migrations for the postgres backend.
func Open(ctx context.Context, cfg config.Config, migrateUp bool) (Persister, error) {
	switch cfg.Ledger.Backend {
	case config.BackendFile, "":
		return NewFilePersister(cfg.Ledger.Path), nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.Ledger.SQLitePath)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.Ledger.DatabaseURL, migrateUp)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		return NewRedisPersister(client, cfg.Ledger.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func loadErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistLoad, err)
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistWrite, err)
}
