package session

import (
	"slices"
	"strconv"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/filter"
)

// Phase is the lifecycle stage of a session, derived from State.
type Phase int

const (
	// PhaseIdle means no run has been started yet.
	PhaseIdle Phase = iota
	// PhaseRunning means a run was accepted and has not completed.
	PhaseRunning
	// PhaseCompleted means the backend finished or the user stopped the run.
	PhaseCompleted
	// PhaseFailed means the last start attempt was rejected by the backend.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a copy of everything the UI renders. Snapshots handed to
// observers share Results and Ignored with the session; treat them as
// read-only. Snapshot returns a deep copy.
type State struct {
	// Form fields.
	Targets   string
	UserAgent string
	Cookie    string
	Timeout   string
	Headers   string

	// Results in arrival order.
	Results []checker.Result

	// Ignored lists targets skipped by ignore rules in the current run.
	Ignored []filter.IgnoreReason

	IsRunning bool
	Completed bool

	// LastError is the invocation error of the last start attempt.
	LastError error

	// Version increases with every change. Observers may receive snapshots
	// out of order and should drop ones older than what they have.
	Version uint64
}

// DefaultState is the form as shown before the user edits it.
func DefaultState() State {
	return State{
		UserAgent: config.DefaultUserAgent,
		Timeout:   strconv.Itoa(config.DefaultTimeout),
	}
}

// Phase derives the lifecycle stage.
func (s State) Phase() Phase {
	switch {
	case s.IsRunning:
		return PhaseRunning
	case s.Completed:
		return PhaseCompleted
	case s.LastError != nil:
		return PhaseFailed
	default:
		return PhaseIdle
	}
}

// Summary counts the results received so far.
func (s State) Summary() checker.Summary {
	return checker.Summarize(s.Results)
}

// shared limits the slices to their current length. The session only ever
// appends to Results or replaces it, so elements visible through a shared
// snapshot never change and an append on either side reallocates.
func (s State) shared() State {
	s.Results = s.Results[:len(s.Results):len(s.Results)]
	s.Ignored = s.Ignored[:len(s.Ignored):len(s.Ignored)]
	return s
}

func (s State) clone() State {
	s.Results = slices.Clone(s.Results)
	s.Ignored = slices.Clone(s.Ignored)
	return s
}
