package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/david/grantdesk/internal/app"
	"github.com/david/grantdesk/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full grant sync in this process",
	Long:  "Pages through the configured source, upserts every listing, and records the run in sync_runs. Refuses to start while another run holds the sync lock.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc, err := app.NewSyncService(cfg, pool)
		if err != nil {
			return err
		}

		result, err := svc.RunSync(ctx)
		if err != nil {
			return err
		}
		printSyncResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func printSyncResult(w io.Writer, r models.SyncResult) {
	fmt.Fprintf(w, "Sync complete: %d added, %d updated, %d total\n", r.Added, r.Updated, r.Total)
}
