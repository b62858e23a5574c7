// Package backend hosts the commands a checker session invokes. A command
// returns as soon as it is accepted; progress is reported as events.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/event"
	"go.uber.org/zap"
)

var (
	// ErrUnknownCommand is returned by Invoke for unregistered command names.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrClosed is returned by Invoke after Close.
	ErrClosed = errors.New("backend closed")
)

// Backend runs URL checks and publishes their results on an Emitter.
// At most one run is active; starting another cancels it first.
type Backend struct {
	emitter event.Emitter
	log     *zap.Logger

	concurrency int
	retries     int

	mu     sync.Mutex
	active *run
	runs   int
	closed bool
}

type run struct {
	id     int
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the backend logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// WithConcurrency sets the number of URLs checked in parallel per run.
func WithConcurrency(n int) Option {
	return func(b *Backend) { b.concurrency = n }
}

// WithRetries sets how often transient failures are retried per URL.
func WithRetries(n int) Option {
	return func(b *Backend) { b.retries = n }
}

// New creates a Backend that emits on e.
func New(e event.Emitter, opts ...Option) *Backend {
	b := &Backend{
		emitter:     e,
		log:         zap.NewNop(),
		concurrency: checker.DefaultConcurrency,
		retries:     checker.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Invoke dispatches a named command. args is marshalled to JSON and decoded
// into the command's argument type.
func (b *Backend) Invoke(ctx context.Context, command string, args any) error {
	switch command {
	case event.CommandBatchCheck:
		var in event.BatchCheckArgs
		if err := decodeArgs(args, &in); err != nil {
			return fmt.Errorf("%s: %w", command, err)
		}
		return b.start(ctx, in)
	case event.CommandCancelCheck:
		b.Cancel()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func decodeArgs(args any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}

// start cancels any active run, waits for it to stop emitting and launches
// a new one.
func (b *Backend) start(ctx context.Context, in event.BatchCheckArgs) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.active != nil {
		b.active.cancel()
		<-b.active.done
		b.active = nil
	}

	b.runs++
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{id: b.runs, cancel: cancel, done: make(chan struct{})}
	b.active = r

	opts := checker.FromConfig(in.Config).
		WithConcurrency(b.concurrency).
		WithMaxRetries(b.retries)

	b.log.Info("check started",
		zap.Int("run", r.id),
		zap.Int("urls", len(in.URLs)),
		zap.Duration("timeout", opts.Timeout))

	go b.execute(runCtx, r, checker.New(opts), in.URLs)
	return nil
}

// execute streams results as events. A canceled run stops emitting and
// never sends check_complete.
func (b *Backend) execute(ctx context.Context, r *run, chk *checker.Checker, urls []string) {
	defer close(r.done)
	defer r.cancel()

	emitted := 0
	for result := range chk.Check(ctx, urls) {
		if ctx.Err() != nil {
			continue
		}
		payload, err := event.EncodeResult(result)
		if err != nil {
			b.log.Error("encoding result", zap.String("url", result.OriginalURL), zap.Error(err))
			continue
		}
		if err := b.emitter.Emit(event.TopicCheckResult, payload); err != nil {
			b.log.Warn("emitting result", zap.String("url", result.OriginalURL), zap.Error(err))
			continue
		}
		emitted++
	}

	if ctx.Err() != nil {
		b.log.Info("check canceled", zap.Int("run", r.id), zap.Int("emitted", emitted))
		return
	}
	if err := b.emitter.Emit(event.TopicCheckComplete, nil); err != nil {
		b.log.Warn("emitting completion", zap.Error(err))
	}
	b.log.Info("check complete", zap.Int("run", r.id), zap.Int("emitted", emitted))
}

// Cancel stops the active run, if any, without waiting for it.
func (b *Backend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active != nil {
		b.active.cancel()
	}
}

// Running reports whether a run is still checking URLs.
func (b *Backend) Running() bool {
	b.mu.Lock()
	r := b.active
	b.mu.Unlock()
	if r == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the active run has finished.
func (b *Backend) Wait() {
	b.mu.Lock()
	r := b.active
	b.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

// Close cancels the active run and waits for it. Later Invoke calls fail.
func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	r := b.active
	b.mu.Unlock()

	if r != nil {
		r.cancel()
		<-r.done
	}
}
