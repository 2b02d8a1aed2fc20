package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/parkour/internal/booking"
	"github.com/example/parkour/internal/notify"
	"github.com/example/parkour/internal/receipt"
	"github.com/example/parkour/internal/sweeper"
	"github.com/example/parkour/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking API, expiry sweeper and notification worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := bootstrap(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg, log := rt.cfg, rt.log

			queue := notify.QueueFromConfig(cfg)
			defer func() {
				if err := queue.Close(); err != nil {
					log.Warnw("notify: queue close failed", "err", err)
				}
			}()
			dispatcher := notify.NewDispatcher(queue, notify.SenderFromConfig(cfg, log), log)
			sw := sweeper.New(rt.store, cfg.SweepInterval, log)

			if len(cfg.ReceiptHashKey) == 0 {
				log.Warnw("receipts: RECEIPT_HASH_KEY not set, references will not survive a restart")
			}
			engine := booking.New(
				rt.store,
				receipt.New(cfg.ReceiptHashKey, cfg.ReceiptBlockKey),
				dispatcher,
				booking.Pricing{PerUnit: cfg.PricePerUnit, UnitMinutes: cfg.PriceUnitMinutes, Currency: cfg.Currency},
				log,
			)

			g, gctx := errgroup.WithContext(ctx)

			limiter := web.NewLimiter(cfg.RateRPS, cfg.RateBurst, cfg.TrustProxy)
			if limiter != nil {
				limiter.StartJanitor(gctx, 2*time.Minute)
			}
			ws := &web.Server{
				Engine:     engine,
				Contact:    dispatcher,
				OwnerEmail: cfg.Notify.OwnerEmail,
				Limiter:    limiter,
				Log:        log,
			}

			log.Infow("server: starting", "backend", cfg.Ledger.Backend, "pool", cfg.PoolSize, "sweep", cfg.SweepInterval)
			g.Go(func() error { return ignoreCanceled(dispatcher.Run(gctx)) })
			g.Go(func() error { return ignoreCanceled(sw.Run(gctx)) })
			g.Go(func() error { return web.Start(gctx, cfg.ListenAddr, ws.Routes(), log) })
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (postgres backend)")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
