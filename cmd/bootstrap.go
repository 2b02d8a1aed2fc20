package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/parkour/internal/config"
	"github.com/example/parkour/internal/ledger"
	"github.com/example/parkour/internal/logging"
)

type app struct {
	cfg   config.Config
	log   *zap.SugaredLogger
	store *ledger.Store
}

func (r *app) Close() {
	if err := r.store.Close(); err != nil {
		r.log.Warnw("ledger: close failed", "err", err)
	}
	_ = r.log.Sync()
}

// bootstrap loads configuration, builds the logger and opens the ledger.
func bootstrap(ctx context.Context, migrateUp bool) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	zl, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log := zl.Sugar()

	p, err := ledger.Open(ctx, cfg, migrateUp)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open %s ledger: %w", cfg.Ledger.Backend, err)
	}
	store := ledger.NewStore(p, cfg.PoolSize, log)
	store.Load(ctx)

	return &app{cfg: cfg, log: log, store: store}, nil
}
