package checker

import (
	"errors"
	"fmt"
)

// ErrInvalidResult is returned by Validate for payloads that cannot be
// attributed to a URL.
var ErrInvalidResult = errors.New("invalid check result")

// Placeholder values used when a response carries no title or banner.
const (
	NoTitle       = "no title"
	UnknownBanner = "unknown"
)

// Result is the outcome of checking a single URL. It is the payload of the
// check_result event, so the JSON field names are part of the wire contract.
type Result struct {
	OriginalURL   string `json:"original_url"`
	StatusCode    int    `json:"status_code"`
	Title         string `json:"title"`
	Banner        string `json:"banner"`
	ContentLength int    `json:"content_length"`
	RedirectURL   string `json:"redirect_url"`
	Error         string `json:"error,omitempty"`
}

// Validate checks that a decoded payload is usable.
func (r Result) Validate() error {
	if r.OriginalURL == "" {
		return fmt.Errorf("%w: missing original_url", ErrInvalidResult)
	}
	if r.StatusCode < 0 || r.StatusCode > 999 {
		return fmt.Errorf("%w: status_code %d out of range", ErrInvalidResult, r.StatusCode)
	}
	if r.ContentLength < 0 {
		return fmt.Errorf("%w: negative content_length", ErrInvalidResult)
	}
	return nil
}

// LinkStatus classifies a result for display and summaries.
type LinkStatus int

const (
	// StatusAlive is a 2xx response.
	StatusAlive LinkStatus = iota
	// StatusRedirect is a 3xx response.
	StatusRedirect
	// StatusClientError is a 4xx response.
	StatusClientError
	// StatusServerError is a 5xx response.
	StatusServerError
	// StatusError means no usable response (network error, timeout, bad URL).
	StatusError
)

// String returns the lowercase name used in reports.
func (s LinkStatus) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusRedirect:
		return "redirect"
	case StatusClientError:
		return "client_error"
	case StatusServerError:
		return "server_error"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Label returns a short uppercase label for terminal output.
func (s LinkStatus) Label() string {
	switch s {
	case StatusAlive:
		return "OK"
	case StatusRedirect:
		return "REDIRECT"
	case StatusClientError:
		return "4XX"
	case StatusServerError:
		return "5XX"
	case StatusError:
		return "ERROR"
	default:
		return "???"
	}
}

// Status classifies the result by error and status code.
// Informational (1xx) and other codes outside 2xx-5xx count as errors.
func (r Result) Status() LinkStatus {
	switch {
	case r.Error != "" && r.StatusCode == 0:
		return StatusError
	case r.StatusCode >= 200 && r.StatusCode < 300:
		return StatusAlive
	case r.StatusCode >= 300 && r.StatusCode < 400:
		return StatusRedirect
	case r.StatusCode >= 400 && r.StatusCode < 500:
		return StatusClientError
	case r.StatusCode >= 500 && r.StatusCode < 600:
		return StatusServerError
	default:
		return StatusError
	}
}

// IsFailure reports whether the result should fail a CI run.
func (r Result) IsFailure() bool {
	switch r.Status() {
	case StatusClientError, StatusServerError, StatusError:
		return true
	default:
		return r.Error != ""
	}
}

// StatusDisplay returns the bracketed status used in text output.
func (r Result) StatusDisplay() string {
	if r.StatusCode > 0 {
		return fmt.Sprintf("[%d]", r.StatusCode)
	}
	return "[" + r.Status().Label() + "]"
}

// Summary provides statistics about check results.
type Summary struct {
	Total        int // Total URLs checked
	Alive        int // 2xx
	Redirects    int // 3xx
	ClientErrors int // 4xx
	ServerErrors int // 5xx
	Errors       int // No response
}

// Summarize creates a summary from a slice of results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status() {
		case StatusAlive:
			s.Alive++
		case StatusRedirect:
			s.Redirects++
		case StatusClientError:
			s.ClientErrors++
		case StatusServerError:
			s.ServerErrors++
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// Failures returns the number of results counted by IsFailure.
func (s Summary) Failures() int {
	return s.ClientErrors + s.ServerErrors + s.Errors
}

// HasFailures returns true if any result failed.
func (s Summary) HasFailures() bool {
	return s.Failures() > 0
}

// FilterByStatus returns results with any of the given statuses.
func FilterByStatus(results []Result, statuses ...LinkStatus) []Result {
	var filtered []Result
	for _, r := range results {
		for _, st := range statuses {
			if r.Status() == st {
				filtered = append(filtered, r)
				break
			}
		}
	}
	return filtered
}

// FilterFailures returns only the failed results.
func FilterFailures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.IsFailure() {
			failed = append(failed, r)
		}
	}
	return failed
}
