package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leonardomso/webcheck/internal/session"
)

// Controller is the part of session.Session the UI drives.
type Controller interface {
	Snapshot() session.State
	SetTargets(v string)
	SetUserAgent(v string)
	SetCookie(v string)
	SetTimeout(v string)
	SetHeaders(v string)
	StartCheck(ctx context.Context) error
	StopCheck(ctx context.Context)
	Subscribe(fn func(session.State)) (cancel func())
}

// formValues is the text of every form field at the moment of a start.
type formValues struct {
	targets   string
	userAgent string
	cookie    string
	timeout   string
	headers   string
}

func (f formValues) apply(c Controller) {
	c.SetTargets(f.targets)
	c.SetUserAgent(f.userAgent)
	c.SetCookie(f.cookie)
	c.SetTimeout(f.timeout)
	c.SetHeaders(f.headers)
}

// startCheckCmd copies the form into the controller and starts a run.
// It runs off the event loop since the controller publishes synchronously.
func startCheckCmd(c Controller, f formValues) tea.Cmd {
	return func() tea.Msg {
		f.apply(c)
		return checkStartedMsg{Err: c.StartCheck(context.Background())}
	}
}

// stopCheckCmd stops the current run.
func stopCheckCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		c.StopCheck(context.Background())
		return checkStoppedMsg{}
	}
}

// Alerts is a session.Notifier that forwards messages to a running
// program. Messages raised before Bind are held and sent on Bind.
type Alerts struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []string
}

// Alert implements session.Notifier. It never blocks the caller.
func (a *Alerts) Alert(message string) {
	a.mu.Lock()
	send := a.send
	if send == nil {
		a.pending = append(a.pending, message)
	}
	a.mu.Unlock()

	if send != nil {
		go send(AlertMsg{Message: message})
	}
}

// Bind starts forwarding alerts through send.
func (a *Alerts) Bind(send func(tea.Msg)) {
	a.mu.Lock()
	a.send = send
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, m := range pending {
		go send(AlertMsg{Message: m})
	}
}

// Run starts the terminal UI for c and blocks until the user quits.
// alerts may be nil when the session was built without one.
func Run(ctx context.Context, c Controller, alerts *Alerts, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(c), opts...)

	if alerts != nil {
		alerts.Bind(p.Send)
	}
	relay := newStateRelay()
	cancel := c.Subscribe(relay.Offer)
	defer cancel()

	relayCtx, stop := context.WithCancel(ctx)
	defer stop()
	go relay.Forward(relayCtx, p.Send)

	_, err := p.Run()
	return err
}

// stateRelay hands session snapshots to the program from one goroutine.
// Offer never blocks, and only the newest pending snapshot is kept, so a
// burst of results turns into a single message.
type stateRelay struct {
	mu      sync.Mutex
	latest  session.State
	pending bool
	wake    chan struct{}
}

func newStateRelay() *stateRelay {
	return &stateRelay{wake: make(chan struct{}, 1)}
}

// Offer queues st unless a newer snapshot has already been seen.
func (r *stateRelay) Offer(st session.State) {
	r.mu.Lock()
	if st.Version <= r.latest.Version {
		r.mu.Unlock()
		return
	}
	r.latest, r.pending = st, true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *stateRelay) take() (session.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return session.State{}, false
	}
	r.pending = false
	return r.latest, true
}

// Forward sends pending snapshots as StateChangedMsg until ctx is done.
func (r *stateRelay) Forward(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}
		if st, ok := r.take(); ok {
			send(StateChangedMsg{State: st})
		}
	}
}
