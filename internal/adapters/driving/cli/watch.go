package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/core/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Keep a folder's files indexed",
	Long: `Imports every supported file below a folder as a document and indexes it,
then watches the folder: new and changed files are re-imported and
re-indexed, and deleted files are removed from the index.

A full rescan also runs periodically to catch changes missed while the
watcher was not running. Use --once to sync a single time and exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

const defaultRescan = 10 * time.Minute

var (
	watchOnce   bool
	watchRescan time.Duration
)

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "sync once and exit")
	watchCmd.Flags().DurationVar(&watchRescan, "rescan", defaultRescan, "interval between full rescans (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if folderSync == nil {
		return notConfigured("folder sync")
	}

	ctx := ctxOf(cmd)
	root := args[0]
	ownerID := owner()

	report, err := folderSync.Sync(ctx, ownerID, root)
	if report != nil {
		printSyncReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if watchOnce {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watchRescan > 0 {
		scheduler := services.NewScheduler(time.Minute)
		scheduler.Add(services.ScheduledTask{
			Name:     "rescan " + root,
			Interval: watchRescan,
			Run: func(ctx context.Context) (int, error) {
				r, err := folderSync.Sync(ctx, ownerID, root)
				if r == nil {
					return 0, err
				}
				return r.Added + r.Updated + r.Removed, err
			},
		}, false)
		go func() {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cmd.PrintErrf("scheduler stopped: %v\n", err)
			}
		}()
		defer scheduler.Stop()
	}

	cmd.Printf("Watching %s (ctrl+c to stop)\n", report.Root)
	err = folderSync.Watch(ctx, ownerID, root, func(ev driving.FolderEvent) {
		if ev.Err != nil {
			cmd.PrintErrf("%s %s: %v\n", ev.Change.Type, ev.Change.Path, ev.Err)
			return
		}
		cmd.Printf("%s %s\n", ev.Change.Type, ev.Change.Path)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func printSyncReport(cmd *cobra.Command, r *driving.FolderSyncReport) {
	cmd.Printf("Synced %s: %d added, %d updated, %d removed, %d unchanged, %d failed\n",
		r.Root, r.Added, r.Updated, r.Removed, r.Unchanged, r.Failed)
	for _, e := range r.Errors {
		cmd.PrintErrf("  %s\n", e)
	}
}
