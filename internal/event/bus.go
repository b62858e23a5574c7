// Package event carries backend notifications to the UI. A Bus delivers
// named topics on a single dispatcher goroutine, one event at a time, and
// Listeners manages the two subscriptions a checker session needs.
package event

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when emitting to or listening on a closed Bus.
var ErrClosed = errors.New("event bus closed")

// Handler receives the raw payload of one event.
type Handler func(payload []byte)

// Unlisten releases a subscription. Calling it more than once is a no-op.
type Unlisten func()

// Emitter publishes events.
type Emitter interface {
	Emit(topic string, payload []byte) error
}

// Source registers handlers for topics.
type Source interface {
	Listen(topic string, h Handler) (Unlisten, error)
}

type envelope struct {
	topic   string
	payload []byte
}

// Bus is an in-process topic bus. Handlers never run concurrently with each
// other; events are delivered in the order they were emitted.
type Bus struct {
	log *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []envelope
	handlers map[string]map[uint64]Handler
	nextID   uint64
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dropped events and handler panics.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBus creates a Bus and starts its dispatcher.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		log:      zap.NewNop(),
		handlers: map[string]map[uint64]Handler{},
		done:     make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}

	go b.dispatch()
	return b
}

// Listen registers h for topic. The handler only sees events dispatched
// after Listen returns.
func (b *Bus) Listen(topic string, h Handler) (Unlisten, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	id := b.nextID
	if b.handlers[topic] == nil {
		b.handlers[topic] = map[uint64]Handler{}
	}
	b.handlers[topic][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers[topic], id)
			b.mu.Unlock()
		})
	}, nil
}

// Emit queues an event for delivery. It never blocks on handlers.
func (b *Bus) Emit(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.queue = append(b.queue, envelope{topic: topic, payload: payload})
	b.cond.Signal()
	return nil
}

// Close stops accepting events, delivers the ones already queued and waits
// for the dispatcher to exit. Safe to call more than once.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	<-b.done
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[topic])
}

func (b *Bus) dispatch() {
	defer close(b.done)

	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue[0] = envelope{}
		b.queue = b.queue[1:]

		handlers := make([]Handler, 0, len(b.handlers[ev.topic]))
		for _, h := range b.handlers[ev.topic] {
			handlers = append(handlers, h)
		}
		b.mu.Unlock()

		if len(handlers) == 0 {
			b.log.Debug("event dropped, no listeners", zap.String("topic", ev.topic))
			continue
		}
		for _, h := range handlers {
			b.deliver(ev, h)
		}
	}
}

func (b *Bus) deliver(ev envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("topic", ev.topic),
				zap.Any("panic", r))
		}
	}()
	h(ev.payload)
}
