package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/session"
	"github.com/leonardomso/webcheck/internal/storage"
	"github.com/leonardomso/webcheck/internal/storage/sqlite"
)

func loaded(cfg *config.Config) *LoadedConfig {
	return &LoadedConfig{cfg: cfg}
}

func TestLoadedConfigGetters(t *testing.T) {
	t.Parallel()

	withFile := loaded(&config.Config{
		Check: config.CheckSection{
			UserAgent:   "file-agent",
			Cookie:      "file=1",
			Timeout:     12,
			Concurrency: 7,
			Retries:     2,
		},
		Output:  config.OutputConfig{Format: "yaml"},
		History: config.HistoryConfig{Path: "file.db"},
	})
	empty := loaded(&config.Config{})

	// CLI wins when it differs from the default
	assert.Equal(t, 50, withFile.GetConcurrency(50, checker.DefaultConcurrency))
	assert.Equal(t, 7, withFile.GetConcurrency(checker.DefaultConcurrency, checker.DefaultConcurrency))
	assert.Equal(t, checker.DefaultConcurrency, empty.GetConcurrency(checker.DefaultConcurrency, checker.DefaultConcurrency))

	assert.Equal(t, 5, withFile.GetTimeout(5, config.DefaultTimeout))
	assert.Equal(t, 12, withFile.GetTimeout(config.DefaultTimeout, config.DefaultTimeout))
	assert.Equal(t, config.DefaultTimeout, empty.GetTimeout(config.DefaultTimeout, config.DefaultTimeout))

	assert.Equal(t, 2, withFile.GetRetries(0, 0))
	assert.Equal(t, 3, withFile.GetRetries(3, 0))

	assert.Equal(t, "cli-agent", withFile.GetUserAgent("cli-agent", config.DefaultUserAgent))
	assert.Equal(t, "file-agent", withFile.GetUserAgent(config.DefaultUserAgent, config.DefaultUserAgent))
	assert.Equal(t, config.DefaultUserAgent, empty.GetUserAgent(config.DefaultUserAgent, config.DefaultUserAgent))

	assert.Equal(t, "file=1", withFile.GetCookie(""))
	assert.Equal(t, "cli=1", withFile.GetCookie("cli=1"))

	assert.Equal(t, "yaml", withFile.GetOutputFormat(""))
	assert.Equal(t, "json", withFile.GetOutputFormat("json"))

	assert.Equal(t, "file.db", withFile.GetHistoryPath(""))
	assert.Equal(t, "cli.db", withFile.GetHistoryPath("cli.db"))
	assert.Empty(t, empty.GetHistoryPath(""))
}

func TestGetHeadersText(t *testing.T) {
	t.Parallel()

	lc := loaded(&config.Config{Check: config.CheckSection{
		Headers: map[string]string{"X-B": "file", "X-A": "file"},
	}})

	text := lc.GetHeadersText([]string{"X-B: cli"})
	assert.Equal(t, "X-A: file\nX-B: file\nX-B: cli", text)

	cfg := config.Build("", "", "", text)
	assert.Equal(t, map[string]string{"X-A": "file", "X-B": "cli"}, cfg.Headers, "CLI header wins")

	assert.Empty(t, loaded(&config.Config{}).GetHeadersText(nil))
}

func TestFormState(t *testing.T) {
	t.Parallel()

	lc := loaded(&config.Config{Check: config.CheckSection{Timeout: 9, Cookie: "a=b"}})
	st := lc.FormState("https://a.com", FormOptions{
		UserAgent: config.DefaultUserAgent,
		Timeout:   config.DefaultTimeout,
		Headers:   []string{"X-Test: 1"},
	})

	assert.Equal(t, "https://a.com", st.Targets)
	assert.Equal(t, config.DefaultUserAgent, st.UserAgent)
	assert.Equal(t, "a=b", st.Cookie)
	assert.Equal(t, "9", st.Timeout)
	assert.Equal(t, "X-Test: 1", st.Headers)
}

func TestCreateFilterWithConfig(t *testing.T) {
	t.Parallel()

	f, err := CreateFilterWithConfig(&config.Config{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, f, "no rules means no filter")

	cfg := &config.Config{Ignore: config.IgnoreConfig{Domains: []string{"skip.com"}}}
	f, err = CreateFilterWithConfig(cfg, []string{"other.org"}, []string{"*.local/*"}, nil)
	require.NoError(t, err)
	require.NotNil(t, f)

	_, ignored := f.Match("https://sub.skip.com/x")
	assert.True(t, ignored)
	_, ignored = f.Match("https://other.org")
	assert.True(t, ignored)
	_, ignored = f.Match("https://keep.com")
	assert.False(t, ignored)

	assert.Equal(t, []string{"skip.com"}, cfg.Ignore.Domains, "config not mutated")

	_, err = CreateFilterWithConfig(&config.Config{}, nil, nil, []string{"[bad"})
	assert.Error(t, err)
}

func TestLogSettings(t *testing.T) {
	t.Parallel()

	t.Run("Defaults", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zapcore.DebugLevel)
		logSettings(zap.New(core), loaded(&config.Config{}), nil)

		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "using defaults")
	})

	t.Run("SkippedWithRules", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zapcore.DebugLevel)
		lc := &LoadedConfig{cfg: &config.Config{}, noConfig: true}
		urlFilter, err := CreateFilterWithConfig(lc.Config(), []string{"a.com", "b.com"}, []string{"*.local/*"}, nil)
		require.NoError(t, err)

		logSettings(zap.New(core), lc, urlFilter)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "config file skipped", logs.All()[0].Message)
		fields := logs.All()[1].ContextMap()
		assert.Equal(t, int64(2), fields["domains"])
		assert.Equal(t, int64(1), fields["patterns"])
		assert.Equal(t, int64(0), fields["regex"])
	})

	t.Run("ConfiguredWithoutRules", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zapcore.DebugLevel)
		logSettings(zap.New(core), loaded(&config.Config{Check: config.CheckSection{Timeout: 5}}), nil)
		assert.Equal(t, 0, logs.Len())
	})
}

func TestCollectTargets(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(file, []byte("https://b.com\n\nhttps://a.com\nhttps://c.com\n"), 0o600))

	urls, err := CollectTargets([]string{"https://a.com"}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, urls)

	urls, err = CollectTargets([]string{"https://a.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com"}, urls)

	_, err = CollectTargets(nil, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading targets")
}

func TestSummaryLine(t *testing.T) {
	t.Parallel()

	s := checker.Summary{Total: 6, Alive: 2, Redirects: 1, ClientErrors: 1, ServerErrors: 1, Errors: 1}
	assert.Equal(t, "Summary: 2 alive | 1 redirects | 1 4xx | 1 5xx | 1 errors", summaryLine(s, 0))
	assert.True(t, strings.HasSuffix(summaryLine(s, 3), "| 3 ignored"))
}

func TestPrintRuns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Equal(t, "No runs saved yet.\n", buf.String())

	buf.Reset()
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	printRuns(&buf, []storage.Run{{
		ID:         "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Summary:    checker.Summary{Total: 3, Alive: 2, Errors: 1},
	}})
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2.0s")
	assert.True(t, strings.HasSuffix(out, "  -\n"), "empty source shown as dash")
}

func TestShowRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	results := []checker.Result{
		{OriginalURL: "https://a.com", StatusCode: 200, Title: "A", Banner: "Server: x"},
		{OriginalURL: "https://b.com", StatusCode: 404, Title: "B", Banner: "Server: x"},
	}
	run := &storage.Run{
		ID:         "abc",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Source:     "urls.txt",
		Config:     config.CheckConfig{UserAgent: "UA", Timeout: 30},
		Summary:    checker.Summarize(results),
		Results:    results,
	}
	require.NoError(t, store.SaveRun(ctx, run))

	var text bytes.Buffer
	require.NoError(t, showRun(ctx, store, "abc", "", &text))
	assert.Contains(t, text.String(), "Run abc")
	assert.Contains(t, text.String(), "[404] https://b.com")

	var js bytes.Buffer
	require.NoError(t, showRun(ctx, store, "abc", "json", &js))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &doc))
	assert.Equal(t, "abc", doc["run_id"])
	assert.Equal(t, "urls.txt", doc["source"])

	err = showRun(ctx, store, "nope", "", &text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveHistoryRedactsCredentials(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "h.db")
	lc := loaded(&config.Config{History: config.HistoryConfig{Path: path}})

	results := []checker.Result{{OriginalURL: "https://a.com", StatusCode: 200}}
	run := &sessionRun{
		state:      session.State{Results: results},
		config:     config.Build("UA", "session=SECRET", "5", "Authorization: Bearer TOKEN"),
		startedAt:  time.Now(),
		finishedAt: time.Now(),
	}
	report := buildReport(run, "inline", nil)
	saveHistory(lc, report, run, zap.NewNop())
	require.NotEmpty(t, report.RunID)

	ctx := context.Background()
	store, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	saved, err := store.GetRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, config.RedactedValue, saved.Config.Cookie)
	assert.Equal(t, map[string]string{"Authorization": config.RedactedValue}, saved.Config.Headers)
	assert.Equal(t, "session=SECRET", run.config.Cookie, "run config untouched")
}

func TestRunSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		_, _ = w.Write([]byte("<html><title>OK</title></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	flags := &requestFlags{
		userAgent:   "test-agent",
		timeout:     5,
		headers:     []string{"X-Test: 1"},
		concurrency: 4,
	}
	lc := loaded(&config.Config{})
	urlFilter, err := CreateFilterWithConfig(lc.Config(), []string{"ignored.example"}, nil, nil)
	require.NoError(t, err)

	targets := strings.Join([]string{"https://ignored.example/x", srv.URL + "/ok", srv.URL + "/missing"}, "\n")
	run, err := runSession(lc, flags, urlFilter, targets, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, run.state.Completed)
	assert.False(t, run.state.IsRunning)
	require.Len(t, run.state.Results, 2)
	require.Len(t, run.state.Ignored, 1)
	assert.Equal(t, "https://ignored.example/x", run.state.Ignored[0].URL)

	codes := []int{run.state.Results[0].StatusCode, run.state.Results[1].StatusCode}
	assert.ElementsMatch(t, []int{200, 404}, codes)

	assert.Equal(t, "test-agent", run.config.UserAgent)
	assert.Equal(t, 5, run.config.Timeout)
	assert.False(t, run.finishedAt.Before(run.startedAt))

	report := buildReport(run, "inline", nil)
	assert.Equal(t, 2, report.Summary.Total)
	assert.True(t, report.Summary.HasFailures())
	assert.Equal(t, "inline", report.Source)
}
