package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/tradequest/internal/dashboard"
	"github.com/abhisek/tradequest/internal/scheduler"
	"github.com/abhisek/tradequest/internal/ui/theme"
	"github.com/abhisek/tradequest/internal/ui/views"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local progress with the sync service",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if status, _ := cmd.Flags().GetBool("status"); status {
			return printSyncStatus(cmd, e)
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchSync(cmd.Context(), e)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Sync.Timeout)
		defer cancel()
		out, err := e.dash.Sync(ctx)
		if errors.Is(err, dashboard.ErrSyncDisabled) {
			return fmt.Errorf("%w: set TRADEQUEST_SYNC_URL or TRADEQUEST_FIRESTORE_PROJECT", err)
		}
		if err != nil {
			return err
		}
		e.println(views.Sync(out))
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("watch", false, "Keep running and sync on the configured interval")
	syncCmd.Flags().Bool("status", false, "Show this device's sync status")
}

// watchSync syncs every interval until interrupted, printing each result
// and any ledger changes in between.
func watchSync(parent context.Context, e *env) error {
	if e.reconciler == nil {
		return dashboard.ErrSyncDisabled
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(e.cfg.Sync.Interval, e.cfg.Sync.Timeout, func(ctx context.Context) error {
		out, err := e.dash.Sync(ctx)
		if err != nil {
			return err
		}
		e.println(views.Sync(out))
		return nil
	}, e.logger)
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	e.println(theme.Hint.Render(fmt.Sprintf("Syncing every %s. Press Ctrl+C to stop.", e.cfg.Sync.Interval)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-e.dash.Changes():
			e.logger.Debug("progress changed", "kind", string(c.Kind))
		}
	}
}

func printSyncStatus(cmd *cobra.Command, e *env) error {
	if e.reconciler == nil {
		e.println("Sync is not configured; progress is local only.")
		return nil
	}
	ds, err := e.reconciler.Status(cmd.Context())
	if err != nil {
		return err
	}
	e.println(fmt.Sprintf("Device:       %s", ds.DeviceID))
	e.println(fmt.Sprintf("Syncs:        %d", ds.SyncCount))
	if !ds.LastSyncAt.IsZero() {
		e.println(fmt.Sprintf("Last sync:    %s", ds.LastSyncAt.Local().Format("2006-01-02 15:04:05")))
	}
	if ds.PendingPush {
		e.println(theme.Warning.Render("Local changes are waiting to be pushed."))
	}
	if ds.LastError != "" {
		e.println(theme.Hint.Render("Last error: " + ds.LastError))
	}
	return nil
}
