// Package checker fetches URLs and reports status, title, server banner and
// redirect target for each. It uses a worker pool for bounded concurrency and
// streams results as they complete.
package checker

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/leonardomso/webcheck/internal/config"
)

// Checker performs concurrent URL checking with configurable options.
type Checker struct {
	opts   Options
	client *http.Client
}

// New creates a new Checker with the given options.
func New(opts Options) *Checker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	return &Checker{
		opts:   opts,
		client: newHTTPClient(opts),
	}
}

// newHTTPClient creates an HTTP client with per-phase timeouts and
// connection pooling. Redirects are not followed so the Location header
// can be reported.
func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Check checks URLs concurrently using a worker pool and streams results.
// The returned channel is closed when every URL has been reported.
// Canceling ctx stops new requests; URLs not yet started are reported as canceled.
func (c *Checker) Check(ctx context.Context, urls []string) <-chan Result {
	results := make(chan Result, c.opts.Concurrency)

	go func() {
		defer close(results)

		jobs := make(chan string, len(urls))
		for _, u := range urls {
			jobs <- u
		}
		close(jobs)

		workers := min(c.opts.Concurrency, len(urls))
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.worker(ctx, jobs, results)
			}()
		}
		wg.Wait()
	}()

	return results
}

// worker processes URLs from the jobs channel and sends results.
func (c *Checker) worker(ctx context.Context, jobs <-chan string, results chan<- Result) {
	for url := range jobs {
		select {
		case <-ctx.Done():
			results <- Result{OriginalURL: url, Title: NoTitle, Error: "check canceled"}
		default:
			results <- c.checkWithRetry(ctx, url)
		}
	}
}

// checkWithRetry attempts to check a URL with exponential backoff retry.
func (c *Checker) checkWithRetry(ctx context.Context, url string) Result {
	var lastResult Result

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return Result{OriginalURL: url, Title: NoTitle, Error: "check canceled during retry"}
			}
		}

		result := c.CheckOne(ctx, url)
		if !isRetryable(result) {
			return result
		}
		lastResult = result
	}

	if lastResult.Error != "" && c.opts.MaxRetries > 0 {
		lastResult.Error = fmt.Sprintf("%s (after %d retries)", lastResult.Error, c.opts.MaxRetries)
	}
	return lastResult
}

// backoffDelay calculates delay for retry with exponential backoff and jitter.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := time.Second * time.Duration(1<<uint(attempt-1)) //nolint:gosec // attempt is bounded

	if base > 30*time.Second {
		base = 30 * time.Second
	}

	// Jitter of 0-25% of base.
	maxJitter := int64(base / 4)
	if maxJitter > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err == nil {
			return base + time.Duration(n.Int64())
		}
	}

	return base
}

// isRetryable determines if a result should trigger a retry.
func isRetryable(result Result) bool {
	if result.StatusCode == 0 && result.Error != "" {
		return true
	}
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	return result.StatusCode == http.StatusTooManyRequests
}

// CheckOne performs a single GET against url and inspects the response.
// Failures are reported in Result.Error, never as a Go error.
func (c *Checker) CheckOne(ctx context.Context, url string) Result {
	result := Result{OriginalURL: url, Title: NoTitle}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		result.Title = "invalid request"
		result.Error = fmt.Sprintf("building request: %v", err)
		return result
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		result.Title = "request failed"
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	result.RedirectURL = resp.Header.Get("Location")
	result.Banner = extractBanner(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize))
	if err != nil {
		result.Title = "reading body failed"
		result.Error = fmt.Sprintf("reading body: %v", err)
		return result
	}

	result.Title = extractTitle(body)
	result.ContentLength = len(body)
	return result
}

// setHeaders applies User-Agent, Cookie and custom headers, in that order,
// so a custom header can override either.
func (c *Checker) setHeaders(req *http.Request) {
	ua := c.opts.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if c.opts.Cookie != "" {
		req.Header.Set("Cookie", c.opts.Cookie)
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
}
