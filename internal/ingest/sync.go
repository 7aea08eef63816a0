package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/models"
)

// GrantUpserter persists a batch keyed on (source, source_id), touching only
// ingestion-owned columns, and reports one UpsertedGrant per stored row.
type GrantUpserter interface {
	UpsertGrants(ctx context.Context, batch []models.GrantUpsert) ([]models.UpsertedGrant, error)
}

// Syncer walks every page of one source and upserts what it finds.
type Syncer struct {
	Source     SourceConfig
	Fetcher    PageFetcher
	Store      GrantUpserter
	Classifier Classifier
}

func NewSyncer(src SourceConfig, fetcher PageFetcher, store GrantUpserter, classifier Classifier) *Syncer {
	if classifier == nil {
		classifier = NewClassifier(ClassifierProvenance, DefaultFreshnessWindow)
	}
	return &Syncer{Source: src, Fetcher: fetcher, Store: store, Classifier: classifier}
}

// Run performs a full refresh. The first error aborts the run; pages upserted
// before it stay committed.
func (s *Syncer) Run(ctx context.Context) (models.SyncResult, error) {
	var result models.SyncResult

	pageSize := s.Source.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)
	maxRecords := s.Source.MaxRecords
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	offset := 0
	total := -1 // unknown until the first page

	for (total < 0 || offset < total) && offset < maxRecords {
		page, err := s.Fetcher.FetchPage(ctx, offset, pageSize)
		if err != nil {
			return result, eris.Wrapf(err, "sync %s: fetch offset %d", s.Source.ID, offset)
		}
		total = page.TotalAvailable

		if len(page.Hits) == 0 {
			break
		}

		batch := dedupeBySourceID(MapHits(page.Hits, s.Source))
		rows, err := s.Store.UpsertGrants(ctx, batch)
		if err != nil {
			return result, &PersistenceError{Offset: offset, Err: err}
		}

		for _, row := range rows {
			if s.Classifier.Added(row) {
				result.Added++
			} else {
				result.Updated++
			}
		}

		offset += len(page.Hits)
		result.Total = offset

		zap.L().Info("sync: page stored",
			zap.String("source", s.Source.ID),
			zap.Int("offset", offset),
			zap.Int("total_available", total),
			zap.Int("added", result.Added),
			zap.Int("updated", result.Updated),
		)
	}

	return result, nil
}

// dedupeBySourceID keeps the last occurrence of each source id, in the
// position of its first occurrence. One upsert statement cannot touch the
// same conflict key twice.
func dedupeBySourceID(batch []models.GrantUpsert) []models.GrantUpsert {
	index := make(map[string]int, len(batch))
	out := make([]models.GrantUpsert, 0, len(batch))
	for _, g := range batch {
		if i, ok := index[g.SourceID]; ok {
			out[i] = g
			continue
		}
		index[g.SourceID] = len(out)
		out = append(out, g)
	}
	return out
}
