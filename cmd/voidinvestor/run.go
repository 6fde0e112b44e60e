package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papaburgs/voidinvestor/internal/fleet"
	"github.com/papaburgs/voidinvestor/internal/session"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run cycles until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("starting fleet",
				"interval", a.cfg.Scheduler.Interval,
				"max_in_flight", a.cfg.Scheduler.MaxInFlight,
				"page_size", a.cfg.Fleet.PageSize,
			)
			fleet.NewScheduler(a.driver, a.cfg.Scheduler.Interval, a.cfg.Scheduler.MaxInFlight).Run(ctx)
			slog.Info("fleet stopped")
			return nil
		},
	}
}

func newOnceCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle against one page of ships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := a.driver.Cycle(cmd.Context(), page)
			if errors.Is(err, session.ErrSessionRenewed) {
				a.out.Note("account registered again, run once more to fly the ships")
				return nil
			}
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range reports {
				if r.Err != nil {
					failed++
				}
			}
			a.out.Note("cycle done: %d ships, %d failed", len(reports), failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page of ships to fly")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the agent and a page of ships without issuing commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.driver.Status(cmd.Context(), page)
			return err
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page of ships to show")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register a new agent and store its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.boot.Register(cmd.Context())
			if err != nil {
				return err
			}
			a.out.Agent(reg.Agent)
			return nil
		},
	}
}
