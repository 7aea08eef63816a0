package models

import "time"

// SyncRun is one row of the sync_runs log.
type SyncRun struct {
	ID          int64      `json:"id"`
	Source      string     `json:"source"`
	Status      string     `json:"status"` // running, completed, failed
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Added       int        `json:"added"`
	Updated     int        `json:"updated"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
}

// Duration is the run time, or zero while the run is still going.
func (r SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
