package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/parkour/internal/sweeper"
)

func newSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Inspect and maintain the slot ledger (non-API)",
	}
	cmd.AddCommand(newSlotsListCmd())
	cmd.AddCommand(newSlotsSweepCmd())
	cmd.AddCommand(newSlotsResetCmd())
	return cmd
}

func newSlotsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every slot and its reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(context.Background(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			now := time.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tRESERVED UNTIL\tREMAINING")
			for _, s := range rt.store.Snapshot() {
				if s.IsAvailable {
					fmt.Fprintf(tw, "%d\tavailable\t-\t-\n", s.ID)
					continue
				}
				remaining := s.ReservedUntil.Sub(now).Round(time.Second)
				if remaining < 0 {
					remaining = 0
				}
				fmt.Fprintf(tw, "%d\treserved\t%s\t%s\n", s.ID, s.ReservedUntil.Format(time.RFC3339), remaining)
			}
			return tw.Flush()
		},
	}
}

func newSlotsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim lapsed reservations once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ids := sweeper.New(rt.store, rt.cfg.SweepInterval, rt.log).Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d slot(s) %v\n", len(ids), ids)
			return nil
		},
	}
}

func newSlotsResetCmd() *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "reset",
		Short: "Release every slot and persist a fresh ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			ctx := context.Background()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.store.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d slot(s)\n", rt.store.Size())
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return c
}
