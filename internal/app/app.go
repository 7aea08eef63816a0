// Package app assembles the services the binaries share from configuration.
package app

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/ai"
	"github.com/david/grantdesk/internal/config"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/ingest"
)

// NewSyncService wires the configured source to the grants store, the
// advisory run lock and the sync_runs log.
func NewSyncService(cfg *config.Config, pool db.Pool) (*ingest.SyncService, error) {
	reg, err := ingest.LoadRegistry(cfg.Ingest.SourcesFile)
	if err != nil {
		return nil, err
	}
	src, err := reg.Source(cfg.Ingest.Source)
	if err != nil {
		return nil, err
	}
	fetcher, err := ingest.NewStrategyFactory().Fetcher(src, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "app: fetcher for %s", src.ID)
	}

	classifier := ingest.NewClassifier(cfg.Sync.Classifier, cfg.Sync.FreshnessWindow)
	syncer := ingest.NewSyncer(src, fetcher, db.NewStore(pool), classifier)

	zap.L().Info("sync configured",
		zap.String("source", src.ID),
		zap.String("base_url", src.BaseURL),
		zap.Int("page_size", src.PageSize),
		zap.Int("max_records", src.MaxRecords),
		zap.String("classifier", cfg.Sync.Classifier),
	)
	return ingest.NewSyncService(syncer, db.NewAdvisoryLocker(pool), db.NewSyncLog(pool)), nil
}

// NewCompleter returns nil when no API key is configured.
func NewCompleter(cfg config.AnthropicConfig) ai.Completer {
	if cfg.Key == "" {
		zap.L().Warn("ANTHROPIC_API_KEY is not set; analysis endpoints are disabled")
		return nil
	}
	return ai.NewClient(cfg.Key, cfg.Model, cfg.MaxTokens)
}
