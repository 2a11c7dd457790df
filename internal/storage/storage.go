// Package storage defines the run journal.
//
// The journal keeps the inputs of a simulation run (model, epoch, trial count
// and parameters) so the run can be recomputed bit for bit. Rows and summaries
// are never stored.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested run is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a run ID is already journaled.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidFilter indicates a list filter could not be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidPageToken indicates a page token is malformed or was issued
	// for another filter.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Run is one journaled simulation request.
type Run struct {
	ID     string
	Model  string
	Epoch  uint32
	Trials int
	// Params is the JSON object of request parameters.
	Params    []byte
	CreatedAt time.Time
}

// RunPage is one page of journaled runs.
type RunPage struct {
	Runs          []Run
	NextPageToken string
}

// RunStore persists run inputs.
type RunStore interface {
	PutRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns pages through runs in ID order. filter is an AIP-160 expression
	// over model, epoch, trials and created_at.
	ListRuns(ctx context.Context, filter string, pageSize int, pageToken string) (RunPage, error)
}
