// Package store provides the corpus storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/textgrid"
)

// ErrNotFound is returned when a requested session, TextGrid or run does
// not exist.
var ErrNotFound = errors.New("not found")

// RecordsParams selects records to load. Empty fields match everything.
type RecordsParams struct {
	Corpus  string
	Session string
	Speaker string
}

// PutTextGridParams holds parameters for storing a TextGrid.
type PutTextGridParams struct {
	Corpus  string
	Session string
	Name    string // empty means the session name
	Grid    *textgrid.TextGrid
}

// TextGridInfo describes a stored TextGrid.
type TextGridInfo struct {
	ID        string    `json:"id"`
	Corpus    string    `json:"corpus"`
	Session   string    `json:"session"`
	Name      string    `json:"name"`
	Tiers     int       `json:"tiers"`
	XMin      float64   `json:"xmin"`
	XMax      float64   `json:"xmax"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
	Unchanged bool      `json:"unchanged,omitempty"`
}

// Session summarizes one imported session.
type Session struct {
	Corpus    string `json:"corpus"`
	Name      string `json:"session"`
	Records   int    `json:"records"`
	Speakers  int    `json:"speakers"`
	TextGrids int    `json:"textgrids"`
}

// RunCounts are the totals of a finished query run.
type RunCounts struct {
	Records int `json:"records"`
	Matched int `json:"matched"`
	Results int `json:"results"`
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

// SaveRunParams holds parameters for saving a query run.
type SaveRunParams struct {
	Kind    string
	Tier    string
	Pattern string
	Corpus  string
	Session string
	Config  string
	Counts  RunCounts
	Results []model.QueryResult
}

// Run is a saved query run.
type Run struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Kind      string     `json:"kind"`
	Tier      string     `json:"tier"`
	Pattern   string     `json:"pattern"`
	Corpus    string     `json:"corpus,omitempty"`
	Session   string     `json:"session,omitempty"`
	Config    string     `json:"config,omitempty"`
	RunCounts
}

// StoredResult is a saved match with the record it was found in.
type StoredResult struct {
	RunID   string `json:"run_id"`
	Speaker string `json:"speaker,omitempty"`
	model.QueryResult
}

// RmRunParams holds parameters for deleting a run.
type RmRunParams struct {
	ID   string
	Hard bool
}

// Store defines the corpus storage interface.
type Store interface {
	// ImportCorpus stores a session's records, replacing any earlier import
	// of the same session.
	ImportCorpus(ctx context.Context, c *Corpus) (*ImportResult, error)

	// Records loads records in session order.
	Records(ctx context.Context, p RecordsParams) ([]*model.Record, error)

	// Sessions lists imported sessions.
	Sessions(ctx context.Context) ([]Session, error)

	// PutTextGrid stores or replaces a named TextGrid of a session.
	PutTextGrid(ctx context.Context, p PutTextGridParams) (*TextGridInfo, error)

	// GetTextGrid loads a session TextGrid. An empty name selects the
	// session default.
	GetTextGrid(ctx context.Context, corpus, session, name string) (*textgrid.TextGrid, error)

	// SaveRun stores a query run and its results.
	SaveRun(ctx context.Context, p SaveRunParams) (*Run, error)

	// ListRuns lists runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun loads a run with its results.
	GetRun(ctx context.Context, id string) (*Run, []StoredResult, error)

	// RmRun soft-deletes (or hard-deletes) a run.
	RmRun(ctx context.Context, p RmRunParams) error

	// Close closes the store.
	Close() error
}
