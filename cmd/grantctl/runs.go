package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/models"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := db.NewSyncLog(pool).Recent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		renderRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 10, "number of runs to show")
}

func renderRuns(w io.Writer, runs []models.SyncRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Source", "Status", "Added", "Updated", "Total", "Duration", "Started At", "Error"})

	for _, r := range runs {
		duration := "Running..."
		if r.CompletedAt != nil {
			duration = r.Duration().Round(time.Second).String()
		}
		t.AppendRow(table.Row{r.ID, r.Source, r.Status, r.Added, r.Updated, r.Total, duration,
			r.StartedAt.Format("2006-01-02 15:04:05"), truncate(r.Error, 60)})
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
