package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/leonardomso/webcheck/internal/checker"
	"go.uber.org/zap"
)

// ErrAlreadySubscribed is returned by Setup when subscriptions are still held.
var ErrAlreadySubscribed = errors.New("listeners already subscribed")

// Listeners owns the check_result and check_complete subscriptions of one
// session. Each handle is released at most once.
type Listeners struct {
	src Source
	log *zap.Logger

	mu               sync.Mutex
	unlistenResult   Unlisten
	unlistenComplete Unlisten
}

// NewListeners returns an unsubscribed manager reading from src.
func NewListeners(src Source, log *zap.Logger) *Listeners {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listeners{src: src, log: log}
}

// Setup subscribes onResult to check_result and onComplete to check_complete.
// Result payloads are decoded and validated before onResult sees them;
// payloads that fail are logged and dropped. If the second subscription
// fails the first is released again.
func (l *Listeners) Setup(onResult func(checker.Result), onComplete func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unlistenResult != nil || l.unlistenComplete != nil {
		return ErrAlreadySubscribed
	}

	unlistenResult, err := l.src.Listen(TopicCheckResult, func(payload []byte) {
		result, err := DecodeResult(payload)
		if err != nil {
			l.log.Warn("dropping check result", zap.Error(err))
			return
		}
		onResult(result)
	})
	if err != nil {
		return fmt.Errorf("listening on %s: %w", TopicCheckResult, err)
	}

	unlistenComplete, err := l.src.Listen(TopicCheckComplete, func([]byte) {
		onComplete()
	})
	if err != nil {
		unlistenResult()
		return fmt.Errorf("listening on %s: %w", TopicCheckComplete, err)
	}

	l.unlistenResult = unlistenResult
	l.unlistenComplete = unlistenComplete
	return nil
}

// Cleanup releases whichever subscriptions are held and clears them.
// Calling it again, or before Setup, does nothing.
func (l *Listeners) Cleanup() {
	l.mu.Lock()
	unlistenResult, unlistenComplete := l.unlistenResult, l.unlistenComplete
	l.unlistenResult, l.unlistenComplete = nil, nil
	l.mu.Unlock()

	if unlistenResult != nil {
		unlistenResult()
	}
	if unlistenComplete != nil {
		unlistenComplete()
	}
}

// Subscribed reports which subscriptions are currently held.
func (l *Listeners) Subscribed() (result, complete bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlistenResult != nil, l.unlistenComplete != nil
}

// DecodeResult parses and validates a check_result payload.
func DecodeResult(payload []byte) (checker.Result, error) {
	var r checker.Result
	if err := json.Unmarshal(payload, &r); err != nil {
		return checker.Result{}, fmt.Errorf("%w: %w", checker.ErrInvalidResult, err)
	}
	if err := r.Validate(); err != nil {
		return checker.Result{}, err
	}
	return r, nil
}

// EncodeResult is the inverse of DecodeResult.
func EncodeResult(r checker.Result) ([]byte, error) {
	return json.Marshal(r)
}
