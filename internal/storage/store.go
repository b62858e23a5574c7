// Package storage defines the run history kept between invocations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// Run is one completed check run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string
	Config     config.CheckConfig
	Summary    checker.Summary

	// Results is only populated when saving; GetRun and ListRuns leave it nil.
	Results []checker.Result
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Storer persists runs and their results.
type Storer interface {
	// SaveRun stores run and its results. An empty ID is assigned.
	SaveRun(ctx context.Context, run *Run) error
	// GetRun returns one run without its results.
	GetRun(ctx context.Context, runID string) (Run, error)
	// ListRuns returns the newest runs first, at most limit of them.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// RunResults returns the results of one run in their original order.
	RunResults(ctx context.Context, runID string) ([]checker.Result, error)
	Close() error
}
