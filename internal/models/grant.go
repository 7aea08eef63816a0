package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type GrantStatus string

const (
	GrantStatusOpen     GrantStatus = "open"
	GrantStatusUpcoming GrantStatus = "upcoming"
	GrantStatusClosed   GrantStatus = "closed"
)

// Valid reports whether s is one of the stored status values.
func (s GrantStatus) Valid() bool {
	switch s {
	case GrantStatusOpen, GrantStatusUpcoming, GrantStatusClosed:
		return true
	}
	return false
}

// Grant is a stored grant listing. Ingestion owns the listing columns,
// enrichment owns AISummary and EligibilityParsed.
type Grant struct {
	ID                uuid.UUID       `json:"id"`
	Source            string          `json:"source"`
	SourceID          string          `json:"source_id"`
	Title             string          `json:"title"`
	Agency            *string         `json:"agency"`
	Description       *string         `json:"description"`
	EligibilityRaw    *string         `json:"eligibility_raw"`
	AmountMin         *float64        `json:"amount_min"`
	AmountMax         *float64        `json:"amount_max"`
	Deadline          *time.Time      `json:"deadline"`
	PostedDate        *time.Time      `json:"posted_date"`
	Category          []string        `json:"category"`
	Status            GrantStatus     `json:"status"`
	SourceURL         string          `json:"source_url"`
	AISummary         json.RawMessage `json:"ai_summary,omitempty"`
	EligibilityParsed json.RawMessage `json:"eligibility_parsed,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GrantUpsert is the ingestion-owned subset of a Grant written by sync.
type GrantUpsert struct {
	Source     string
	SourceID   string
	Title      string
	Agency     *string
	AmountMin  *float64
	AmountMax  *float64
	Deadline   *time.Time
	PostedDate *time.Time
	Category   []string
	Status     GrantStatus
	SourceURL  string
}

// UpsertedGrant is what the store reports back for each row of an upsert batch.
// Inserted is nil when the store cannot tell an insert from an update.
type UpsertedGrant struct {
	SourceID  string
	CreatedAt time.Time
	Inserted  *bool
}

// SyncResult summarizes a sync run. Total is the number of source hits
// processed, not the number of distinct grants stored.
type SyncResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// GrantFilter narrows ListGrants.
type GrantFilter struct {
	Query    string
	Status   string
	Category string
	Limit    int
	Offset   int
}
