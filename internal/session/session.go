// Package session is the controller behind the checker form. It owns the
// form fields and the run state, starts and stops runs through an Invoker
// and folds backend events into the result list.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/event"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/urlutil"
	"go.uber.org/zap"
)

// Messages shown to the user through the Notifier.
const (
	AlertNoTargets   = "please enter the URLs to check"
	alertCheckFailed = "check failed: "
)

var (
	// ErrNoTargets is returned by StartCheck when the target text is blank.
	ErrNoTargets = errors.New("no targets to check")

	// ErrClosed is returned by operations on a closed Session.
	ErrClosed = errors.New("session closed")
)

// Invoker sends a named command to the backend. It returns once the command
// is accepted; outcomes arrive later as events.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any) error
}

// Notifier shows blocking messages to the user.
type Notifier interface {
	Alert(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Alert calls f(message).
func (f NotifierFunc) Alert(message string) { f(message) }

type nopNotifier struct{}

func (nopNotifier) Alert(string) {}

// Session holds one checker form and its run state. All methods are safe
// for concurrent use; event callbacks arrive on the bus dispatcher.
type Session struct {
	invoker   Invoker
	notifier  Notifier
	listeners *event.Listeners
	filter    *filter.Filter
	log       *zap.Logger

	mu        sync.Mutex
	state     State
	observers map[int]func(State)
	nextObs   int
	closed    bool
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where alerts go. The default discards them.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFilter skips matching targets before invoking the backend.
func WithFilter(f *filter.Filter) Option {
	return func(s *Session) { s.filter = f }
}

// WithState seeds the form fields, e.g. from a config file.
func WithState(st State) Option {
	return func(s *Session) {
		s.state.Targets = st.Targets
		s.state.UserAgent = st.UserAgent
		s.state.Cookie = st.Cookie
		s.state.Timeout = st.Timeout
		s.state.Headers = st.Headers
	}
}

// New creates an idle session that invokes commands on inv and receives
// events from src. Call SetupListeners before the first StartCheck.
func New(inv Invoker, src event.Source, opts ...Option) *Session {
	s := &Session{
		invoker:   inv,
		notifier:  nopNotifier{},
		log:       zap.NewNop(),
		state:     DefaultState(),
		observers: map[int]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.listeners = event.NewListeners(src, s.log)
	return s
}

// SetupListeners subscribes the session to check_result and check_complete.
func (s *Session) SetupListeners() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.listeners.Setup(s.onResult, s.onComplete)
}

// StartCheck validates the form, resets the run state and asks the backend
// to check every target line.
func (s *Session) StartCheck(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if strings.TrimSpace(s.state.Targets) == "" {
		s.mu.Unlock()
		s.notifier.Alert(AlertNoTargets)
		return ErrNoTargets
	}

	s.state.IsRunning = true
	s.state.Completed = false
	s.state.Results = nil
	s.state.LastError = nil

	cfg := config.Build(s.state.UserAgent, s.state.Cookie, s.state.Timeout, s.state.Headers)
	urls, ignored := s.filter.Apply(urlutil.ParseURLList(s.state.Targets))
	s.state.Ignored = ignored
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	if len(ignored) > 0 {
		s.log.Info("targets ignored", zap.Int("count", len(ignored)))
	}
	s.log.Debug("invoking batch check", zap.Int("urls", len(urls)), zap.Int("timeout", cfg.Timeout))

	err := s.invoker.Invoke(ctx, event.CommandBatchCheck, event.BatchCheckArgs{URLs: urls, Config: cfg})
	if err == nil {
		return nil
	}

	s.log.Error("batch check failed", zap.Error(err))

	s.mu.Lock()
	s.state.IsRunning = false
	s.state.LastError = err
	snap = s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	s.notifier.Alert(alertCheckFailed + err.Error())
	return fmt.Errorf("starting check: %w", err)
}

// StopCheck marks the run finished at once. Results that are already on
// their way are still appended. The backend is asked to stop dispatching
// new requests; a failure to do so is only logged.
func (s *Session) StopCheck(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.IsRunning = false
	s.state.Completed = true
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	if err := s.invoker.Invoke(ctx, event.CommandCancelCheck, nil); err != nil {
		s.log.Warn("cancel check", zap.Error(err))
	}
}

func (s *Session) onResult(r checker.Result) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Results = append(s.state.Results, r)
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Session) onComplete() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Completed = true
	s.state.IsRunning = false
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// SetTargets sets the newline separated target list.
func (s *Session) SetTargets(v string) { s.update(func(st *State) { st.Targets = v }) }

// SetUserAgent sets the User-Agent sent with each request.
func (s *Session) SetUserAgent(v string) { s.update(func(st *State) { st.UserAgent = v }) }

// SetCookie sets the Cookie header value.
func (s *Session) SetCookie(v string) { s.update(func(st *State) { st.Cookie = v }) }

// SetTimeout sets the timeout text, in seconds.
func (s *Session) SetTimeout(v string) { s.update(func(st *State) { st.Timeout = v }) }

// SetHeaders sets the raw "Key: Value" header lines.
func (s *Session) SetHeaders(v string) { s.update(func(st *State) { st.Headers = v }) }

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn(&s.state)
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// on whichever goroutine made the change and must not block.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Close releases the event subscriptions and drops all observers. Later
// calls do nothing.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.observers = map[int]func(State){}
	s.mu.Unlock()

	s.listeners.Cleanup()
}

type notification struct {
	state     State
	observers []func(State)
}

// changedLocked bumps the version and captures what to publish.
// s.mu must be held.
func (s *Session) changedLocked() notification {
	s.state.Version++
	n := notification{state: s.state.shared()}
	for _, fn := range s.observers {
		n.observers = append(n.observers, fn)
	}
	return n
}

func (s *Session) publish(n notification) {
	for _, fn := range n.observers {
		fn(n.state)
	}
}
