package ingest

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when another run already holds the sync lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// TransportError is a network failure or a non-2xx response from the source API.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("source request failed: %v", e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("source API returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("source API returned %s", e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SourceAPIError is a 2xx response whose payload reports a nonzero error code.
type SourceAPIError struct {
	Code    int
	Message string
}

func (e *SourceAPIError) Error() string {
	return fmt.Sprintf("source API error %d: %s", e.Code, e.Message)
}

// PersistenceError wraps a failed upsert of one page.
type PersistenceError struct {
	Offset int
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("upsert page at offset %d: %v", e.Offset, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
