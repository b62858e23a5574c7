package config

import (
	"strings"

	"github.com/leonardomso/webcheck/internal/urlutil"
)

// Defaults used when the form or config file leaves a value unset.
const (
	// DefaultTimeout is the per-request timeout in seconds.
	DefaultTimeout = 30

	// DefaultUserAgent is the User-Agent sent when none is configured.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// CheckConfig is the configuration handed to the backend with every
// batch_check_urls call. The JSON field names are part of the wire contract.
type CheckConfig struct {
	UserAgent string `json:"user_agent"`
	Cookie    string `json:"cookie"`
	Timeout   int    `json:"timeout"`

	// Headers is nil when no custom headers are set, so the key is omitted.
	Headers map[string]string `json:"headers,omitempty"`
}

// RedactedValue stands in for secrets in reports and saved runs.
const RedactedValue = "[redacted]"

// Redacted returns a copy that is safe to write to disk. A non-empty cookie
// and every header value are replaced by RedactedValue; header names stay.
func (c CheckConfig) Redacted() CheckConfig {
	out := c
	if out.Cookie != "" {
		out.Cookie = RedactedValue
	}
	if len(c.Headers) > 0 {
		out.Headers = make(map[string]string, len(c.Headers))
		for name := range c.Headers {
			out.Headers[name] = RedactedValue
		}
	}
	return out
}

// Build assembles a CheckConfig from raw form values.
// A timeout that does not parse to a positive integer becomes DefaultTimeout.
// userAgent and cookie are used verbatim, including empty strings.
func Build(userAgent, cookie, timeout, headersText string) CheckConfig {
	cfg := CheckConfig{
		UserAgent: userAgent,
		Cookie:    cookie,
		Timeout:   ParseTimeout(timeout),
	}

	if headers := urlutil.ParseHeaders(headersText); len(headers) > 0 {
		cfg.Headers = headers
	}

	return cfg
}

// ParseTimeout reads the leading integer of s the way a lenient form field
// would: surrounding whitespace and trailing garbage are ignored ("12s" is 12).
// Anything that yields no digits, zero or a negative number returns DefaultTimeout.
func ParseTimeout(s string) int {
	s = strings.TrimSpace(s)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
		if n > maxTimeout {
			n = maxTimeout
		}
	}

	if digits == 0 || n == 0 || negative {
		return DefaultTimeout
	}
	return n
}

// maxTimeout caps absurd inputs at one day.
const maxTimeout = 24 * 60 * 60
