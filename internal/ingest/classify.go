package ingest

import (
	"time"

	"github.com/david/grantdesk/internal/models"
)

const (
	ClassifierProvenance = "provenance"
	ClassifierFreshness  = "freshness"

	// DefaultFreshnessWindow is how recent created_at must be for the
	// freshness classifier to count a row as added.
	DefaultFreshnessWindow = 10 * time.Second
)

// Classifier decides whether an upserted row was an insert.
type Classifier interface {
	Added(row models.UpsertedGrant) bool
}

// ProvenanceClassifier trusts the store's per-row insert flag and falls back
// to Fallback for rows without one.
type ProvenanceClassifier struct {
	Fallback Classifier
}

func (p ProvenanceClassifier) Added(row models.UpsertedGrant) bool {
	if row.Inserted != nil {
		return *row.Inserted
	}
	if p.Fallback != nil {
		return p.Fallback.Added(row)
	}
	return false
}

// FreshnessClassifier counts a row as added when created_at falls within
// Window of now. It misreports under clock skew, under runs slower than the
// window, and for rows re-synced within the window of their first insert.
type FreshnessClassifier struct {
	Window time.Duration
	Now    func() time.Time
}

func (f FreshnessClassifier) Added(row models.UpsertedGrant) bool {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	window := f.Window
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return now().Sub(row.CreatedAt) < window
}

// NewClassifier returns the classifier named by kind. Unknown kinds get the
// provenance classifier.
func NewClassifier(kind string, window time.Duration) Classifier {
	fresh := FreshnessClassifier{Window: window}
	if kind == ClassifierFreshness {
		return fresh
	}
	return ProvenanceClassifier{Fallback: fresh}
}
