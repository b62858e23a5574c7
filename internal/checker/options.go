package checker

import (
	"time"

	"github.com/leonardomso/webcheck/internal/config"
)

// Default values for checker options.
const (
	// DefaultConcurrency is the number of concurrent workers.
	DefaultConcurrency = 20

	// DefaultTimeout is the maximum time to wait for a single HTTP request.
	DefaultTimeout = config.DefaultTimeout * time.Second

	// DefaultMaxRetries is the number of times to retry a failed request.
	// Each URL gets a single attempt unless configured otherwise.
	DefaultMaxRetries = 0

	// DefaultMaxBodySize bounds how much of a response body is read for the
	// title and content length.
	DefaultMaxBodySize = 10 << 20
)

// Options configures the behavior of the checker.
type Options struct {
	// UserAgent is sent with every request. Empty means config.DefaultUserAgent.
	UserAgent string

	// Cookie is sent as the Cookie header when non-empty.
	Cookie string

	// Headers are extra request headers, applied after User-Agent and Cookie.
	Headers map[string]string

	// Concurrency is the number of concurrent workers.
	Concurrency int

	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// MaxRetries is the number of times to retry a failed request.
	// Only transient errors (network errors, 5xx, 429) are retried.
	MaxRetries int

	// MaxBodySize is the number of body bytes read per response.
	MaxBodySize int64
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		UserAgent:   config.DefaultUserAgent,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// FromConfig returns DefaultOptions overlaid with a backend CheckConfig.
func FromConfig(cfg config.CheckConfig) Options {
	o := DefaultOptions().
		WithUserAgent(cfg.UserAgent).
		WithTimeout(time.Duration(cfg.Timeout) * time.Second)
	o.Cookie = cfg.Cookie
	if len(cfg.Headers) > 0 {
		o.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			o.Headers[k] = v
		}
	}
	return o
}

// WithConcurrency sets the number of concurrent workers.
func (o Options) WithConcurrency(n int) Options {
	if n > 0 {
		o.Concurrency = n
	}
	return o
}

// WithTimeout sets the request timeout.
func (o Options) WithTimeout(d time.Duration) Options {
	if d > 0 {
		o.Timeout = d
	}
	return o
}

// WithMaxRetries sets the maximum retry count.
func (o Options) WithMaxRetries(n int) Options {
	if n >= 0 {
		o.MaxRetries = n
	}
	return o
}

// WithUserAgent sets the User-Agent header.
func (o Options) WithUserAgent(ua string) Options {
	if ua != "" {
		o.UserAgent = ua
	}
	return o
}
