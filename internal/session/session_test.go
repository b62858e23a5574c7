package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leonardomso/webcheck/internal/backend"
	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/event"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	command string
	args    any
}

// fakeInvoker records commands and fails those listed in errs.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []call
	errs  map[string]error

	// during runs inside Invoke, before it returns.
	during func(command string)
}

func (f *fakeInvoker) Invoke(_ context.Context, command string, args any) error {
	if f.during != nil {
		f.during(command)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{command: command, args: args})
	return f.errs[command]
}

func (f *fakeInvoker) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// alerts collects notifier messages.
type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *alerts) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

type fixture struct {
	bus     *event.Bus
	invoker *fakeInvoker
	alerts  *alerts
	session *Session
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		bus:     event.NewBus(),
		invoker: &fakeInvoker{errs: map[string]error{}},
		alerts:  &alerts{},
	}
	opts = append([]Option{WithNotifier(f.alerts)}, opts...)
	f.session = New(f.invoker, f.bus, opts...)
	require.NoError(t, f.session.SetupListeners())

	t.Cleanup(func() {
		f.session.Close()
		f.bus.Close()
	})
	return f
}

// flush waits until every event emitted so far has been handled.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	unlisten, err := f.bus.Listen("flush", func([]byte) { close(done) })
	require.NoError(t, err)
	defer unlisten()
	require.NoError(t, f.bus.Emit("flush", nil))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not drain")
	}
}

func (f *fixture) emitResult(t *testing.T, r checker.Result) {
	t.Helper()
	payload, err := event.EncodeResult(r)
	require.NoError(t, err)
	require.NoError(t, f.bus.Emit(event.TopicCheckResult, payload))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	st := f.session.Snapshot()

	assert.Equal(t, config.DefaultUserAgent, st.UserAgent)
	assert.Equal(t, "30", st.Timeout)
	assert.Empty(t, st.Targets)
	assert.Empty(t, st.Results)
	assert.False(t, st.IsRunning)
	assert.False(t, st.Completed)
	assert.Equal(t, PhaseIdle, st.Phase())
}

func TestStartCheckBlankTargets(t *testing.T) {
	t.Parallel()

	for _, targets := range []string{"", "   ", "\n\t\n"} {
		f := newFixture(t)
		f.session.SetTargets(targets)

		err := f.session.StartCheck(context.Background())
		require.ErrorIs(t, err, ErrNoTargets)

		st := f.session.Snapshot()
		assert.Empty(t, st.Results)
		assert.False(t, st.IsRunning)
		assert.False(t, st.Completed)
		assert.Equal(t, []string{AlertNoTargets}, f.alerts.all(), "exactly one notification")
		assert.Empty(t, f.invoker.recorded(), "backend not invoked")
	}
}

func TestStartCheckValidTargets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com\n\n  https://b.com  \n")
	f.session.SetUserAgent("UA")
	f.session.SetCookie("c")
	f.session.SetTimeout("5")
	f.session.SetHeaders("X-A: 1\nbad")

	var during State
	f.invoker.during = func(string) { during = f.session.Snapshot() }

	require.NoError(t, f.session.StartCheck(context.Background()))

	assert.True(t, during.IsRunning, "running before the backend acknowledges")
	assert.False(t, during.Completed)
	assert.Empty(t, during.Results)

	st := f.session.Snapshot()
	assert.True(t, st.IsRunning)
	assert.Empty(t, st.Results)
	assert.Equal(t, PhaseRunning, st.Phase())
	assert.Empty(t, f.alerts.all())

	calls := f.invoker.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, event.CommandBatchCheck, calls[0].command)
	assert.Equal(t, event.BatchCheckArgs{
		URLs: []string{"https://a.com", "https://b.com"},
		Config: config.CheckConfig{
			UserAgent: "UA",
			Cookie:    "c",
			Timeout:   5,
			Headers:   map[string]string{"X-A": "1"},
		},
	}, calls[0].args)
}

func TestStartCheckInvalidTimeoutDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	f.session.SetTimeout("abc")

	require.NoError(t, f.session.StartCheck(context.Background()))

	args := f.invoker.recorded()[0].args.(event.BatchCheckArgs)
	assert.Equal(t, 30, args.Config.Timeout)
	assert.Nil(t, args.Config.Headers)
}

func TestResultsAndCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com\nhttps://b.com")
	require.NoError(t, f.session.StartCheck(context.Background()))

	f.emitResult(t, checker.Result{OriginalURL: "https://b.com", StatusCode: 500})
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com", StatusCode: 200})
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com", StatusCode: 200})
	f.flush(t)

	st := f.session.Snapshot()
	require.Len(t, st.Results, 3, "no de-duplication")
	assert.Equal(t, "https://b.com", st.Results[0].OriginalURL, "arrival order")
	assert.True(t, st.IsRunning)

	require.NoError(t, f.bus.Emit(event.TopicCheckComplete, nil))
	f.flush(t)

	st = f.session.Snapshot()
	assert.False(t, st.IsRunning)
	assert.True(t, st.Completed)
	assert.Equal(t, PhaseCompleted, st.Phase())
	sum := st.Summary()
	assert.Equal(t, 2, sum.Alive)
	assert.Equal(t, 1, sum.ServerErrors)
}

func TestResultAfterCompletionIsAppended(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	require.NoError(t, f.session.StartCheck(context.Background()))

	require.NoError(t, f.bus.Emit(event.TopicCheckComplete, nil))
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com", StatusCode: 200})
	f.flush(t)

	st := f.session.Snapshot()
	assert.True(t, st.Completed)
	assert.Len(t, st.Results, 1)
}

func TestInvalidPayloadIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	require.NoError(t, f.session.StartCheck(context.Background()))

	require.NoError(t, f.bus.Emit(event.TopicCheckResult, []byte(`{"status_code":"oops"}`)))
	f.flush(t)

	assert.Empty(t, f.session.Snapshot().Results)
}

func TestStartCheckInvocationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	f.invoker.errs[event.CommandBatchCheck] = errors.New("backend unreachable")

	err := f.session.StartCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unreachable")

	st := f.session.Snapshot()
	assert.False(t, st.IsRunning)
	assert.False(t, st.Completed)
	require.Error(t, st.LastError)
	assert.Equal(t, PhaseFailed, st.Phase())
	assert.Equal(t, []string{"check failed: backend unreachable"}, f.alerts.all())

	// A later successful start clears the failure.
	delete(f.invoker.errs, event.CommandBatchCheck)
	require.NoError(t, f.session.StartCheck(context.Background()))
	st = f.session.Snapshot()
	assert.NoError(t, st.LastError)
	assert.Equal(t, PhaseRunning, st.Phase())
}

func TestObserverSnapshotsStayStable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var (
		mu   sync.Mutex
		seen []State
	)
	f.session.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	f.session.SetTargets("https://a.com\nhttps://b.com\nhttps://c.com")
	require.NoError(t, f.session.StartCheck(context.Background()))
	for _, u := range []string{"https://a.com", "https://b.com", "https://c.com"} {
		f.emitResult(t, checker.Result{OriginalURL: u})
	}
	f.flush(t)

	mu.Lock()
	defer mu.Unlock()
	// SetTargets, StartCheck and one per result.
	require.Len(t, seen, 5)
	for i, st := range seen[2:] {
		require.Len(t, st.Results, i+1)
		assert.Equal(t, len(st.Results), cap(st.Results))
	}
	assert.Equal(t, "https://a.com", seen[2].Results[0].OriginalURL)

	// Appending to an old snapshot must not leak into newer ones.
	grown := append(seen[2].Results, checker.Result{OriginalURL: "local"})
	assert.Equal(t, "local", grown[1].OriginalURL)
	assert.Equal(t, "https://b.com", seen[4].Results[1].OriginalURL)
}

func TestStartCheckClearsPreviousResults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	require.NoError(t, f.session.StartCheck(context.Background()))
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com"})
	require.NoError(t, f.bus.Emit(event.TopicCheckComplete, nil))
	f.flush(t)
	require.Len(t, f.session.Snapshot().Results, 1)

	require.NoError(t, f.session.StartCheck(context.Background()))

	st := f.session.Snapshot()
	assert.Empty(t, st.Results)
	assert.True(t, st.IsRunning)
	assert.False(t, st.Completed)
}

func TestStopCheck(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com\nhttps://b.com")
	require.NoError(t, f.session.StartCheck(context.Background()))

	f.session.StopCheck(context.Background())

	st := f.session.Snapshot()
	assert.False(t, st.IsRunning)
	assert.True(t, st.Completed)

	calls := f.invoker.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, event.CommandCancelCheck, calls[1].command)

	// Late results are still appended.
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com", StatusCode: 200})
	f.flush(t)
	assert.Len(t, f.session.Snapshot().Results, 1)
}

func TestStopCheckCancelFailureIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.invoker.errs[event.CommandCancelCheck] = errors.New("nope")

	f.session.StopCheck(context.Background())

	st := f.session.Snapshot()
	assert.True(t, st.Completed)
	assert.Empty(t, f.alerts.all())
}

func TestIgnoreRules(t *testing.T) {
	t.Parallel()

	flt, err := filter.New(filter.Config{Domains: []string{"skip.com"}})
	require.NoError(t, err)

	f := newFixture(t, WithFilter(flt))
	f.session.SetTargets("https://a.com\nhttps://skip.com/x")
	require.NoError(t, f.session.StartCheck(context.Background()))

	args := f.invoker.recorded()[0].args.(event.BatchCheckArgs)
	assert.Equal(t, []string{"https://a.com"}, args.URLs)

	st := f.session.Snapshot()
	require.Len(t, st.Ignored, 1)
	assert.Equal(t, "https://skip.com/x", st.Ignored[0].URL)
}

func TestWithState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithState(State{
		Targets:   "https://a.com",
		UserAgent: "seeded",
		Timeout:   "7",
		Headers:   "X: 1",
		IsRunning: true,
	}))

	st := f.session.Snapshot()
	assert.Equal(t, "seeded", st.UserAgent)
	assert.Equal(t, "7", st.Timeout)
	assert.False(t, st.IsRunning, "only form fields are seeded")
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var (
		mu   sync.Mutex
		seen []State
	)
	cancel := f.session.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	f.session.SetTargets("https://a.com")
	require.NoError(t, f.session.StartCheck(context.Background()))

	mu.Lock()
	require.Len(t, seen, 2)
	assert.Equal(t, "https://a.com", seen[0].Targets)
	assert.True(t, seen[1].IsRunning)
	assert.Greater(t, seen[1].Version, seen[0].Version)
	mu.Unlock()

	cancel()
	cancel()
	f.session.SetCookie("x")

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.SetTargets("https://a.com")
	require.NoError(t, f.session.StartCheck(context.Background()))
	f.emitResult(t, checker.Result{OriginalURL: "https://a.com"})
	f.flush(t)

	st := f.session.Snapshot()
	st.Results[0].OriginalURL = "mutated"

	assert.Equal(t, "https://a.com", f.session.Snapshot().Results[0].OriginalURL)
}

func TestClose(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	defer bus.Close()

	s := New(&fakeInvoker{}, bus)
	require.NoError(t, s.SetupListeners())
	assert.Equal(t, 1, bus.Subscribers(event.TopicCheckResult))

	s.Close()
	s.Close()

	assert.Equal(t, 0, bus.Subscribers(event.TopicCheckResult))
	assert.Equal(t, 0, bus.Subscribers(event.TopicCheckComplete))
	assert.ErrorIs(t, s.StartCheck(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.SetupListeners(), ErrClosed)
}

func TestSetupListenersTwice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.ErrorIs(t, f.session.SetupListeners(), event.ErrAlreadySubscribed)
}

func TestEndToEndWithBackend(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	b := backend.New(bus)
	s := New(b, bus)
	require.NoError(t, s.SetupListeners())
	defer func() {
		s.Close()
		b.Close()
		bus.Close()
	}()

	done := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(st State) {
		if st.Completed {
			once.Do(func() { close(done) })
		}
	})

	// Nothing listens on port 1, so both checks fail fast.
	s.SetTargets("http://127.0.0.1:1/a\nhttp://127.0.0.1:1/b")
	s.SetTimeout("2")
	require.NoError(t, s.StartCheck(context.Background()))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not complete")
	}

	st := s.Snapshot()
	assert.Len(t, st.Results, 2)
	for _, r := range st.Results {
		assert.NotEmpty(t, r.Error)
		assert.True(t, r.IsFailure())
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	tests := map[Phase]string{
		PhaseIdle:      "idle",
		PhaseRunning:   "running",
		PhaseCompleted: "completed",
		PhaseFailed:    "failed",
		Phase(42):      "unknown",
	}
	for p, want := range tests {
		assert.Equal(t, want, p.String())
	}
}
