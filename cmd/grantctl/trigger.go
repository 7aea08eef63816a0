package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/david/grantdesk/internal/models"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Call the deployed sync endpoint the way the scheduler does",
	RunE: func(cmd *cobra.Command, _ []string) error {
		baseURL, _ := cmd.Flags().GetString("url")
		if baseURL == "" {
			baseURL = cfg.Server.URL
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		secret := strings.TrimSpace(cfg.CronSecret)
		if secret == "" {
			return errors.New("CRON_SECRET is not set")
		}

		client := &http.Client{Timeout: timeout}
		result, err := triggerSync(cmd.Context(), client, baseURL, secret)
		if err != nil {
			return err
		}
		printSyncResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	triggerCmd.Flags().String("url", "", "server base URL (defaults to server.url)")
	triggerCmd.Flags().Duration("timeout", 15*time.Minute, "request timeout; a full sync can take minutes")
}

type cronResponse struct {
	Success bool   `json:"success"`
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
	Total   int    `json:"total"`
	Error   string `json:"error"`
}

func triggerSync(ctx context.Context, client *http.Client, baseURL, secret string) (models.SyncResult, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/sync-grants"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return models.SyncResult{}, eris.Wrap(err, "trigger: build request")
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := client.Do(req)
	if err != nil {
		return models.SyncResult{}, eris.Wrap(err, "trigger: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.SyncResult{}, eris.Wrap(err, "trigger: read response")
	}

	var out cronResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return models.SyncResult{}, fmt.Errorf("trigger: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return models.SyncResult{}, fmt.Errorf("trigger: %s: %s", resp.Status, out.Error)
	}
	return models.SyncResult{Added: out.Added, Updated: out.Updated, Total: out.Total}, nil
}
