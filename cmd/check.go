package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leonardomso/webcheck/internal/backend"
	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/event"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/output"
	"github.com/leonardomso/webcheck/internal/session"
	"github.com/leonardomso/webcheck/internal/stats"
)

// requestFlags are the form and engine flags shared by check and interactive.
type requestFlags struct {
	file        string
	userAgent   string
	cookie      string
	timeout     int
	headers     []string
	concurrency int
	retries     int

	ignoreDomains  []string
	ignorePatterns []string
	ignoreRegex    []string
	noConfig       bool
}

func addRequestFlags(c *cobra.Command, f *requestFlags) {
	c.Flags().StringVarP(&f.file, "file", "F", "",
		"Read targets from a file (.txt, .md, .json, .yaml, .toml)")
	c.Flags().StringVarP(&f.userAgent, "user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with each request")
	c.Flags().StringVar(&f.cookie, "cookie", "",
		"Cookie header sent with each request")
	c.Flags().IntVarP(&f.timeout, "timeout", "t", config.DefaultTimeout,
		"Timeout per request in seconds")
	c.Flags().StringArrayVarP(&f.headers, "header", "H", nil,
		`Extra request header as "Key: Value" (can be repeated)`)
	c.Flags().IntVarP(&f.concurrency, "concurrency", "c", checker.DefaultConcurrency,
		"Number of concurrent workers")
	c.Flags().IntVarP(&f.retries, "retries", "r", checker.DefaultMaxRetries,
		"Number of retries for failed requests")

	c.Flags().StringSliceVar(&f.ignoreDomains, "ignore-domain", nil,
		"Domains to ignore, includes subdomains (can be repeated or comma-separated)")
	c.Flags().StringSliceVar(&f.ignorePatterns, "ignore-pattern", nil,
		"Glob patterns to ignore (can be repeated)")
	c.Flags().StringSliceVar(&f.ignoreRegex, "ignore-regex", nil,
		"Regex patterns to ignore (can be repeated)")
	c.Flags().BoolVar(&f.noConfig, "no-config", false,
		"Skip loading .webcheckrc.yaml / .webcheckrc.toml")
}

func (f *requestFlags) formOptions() FormOptions {
	return FormOptions{
		UserAgent: f.userAgent,
		Cookie:    f.cookie,
		Timeout:   f.timeout,
		Headers:   f.headers,
	}
}

// Flag variables for the check command.
var (
	checkFlags   requestFlags
	outputFormat string
	outputFile   string
	historyPath  string
	showAll      bool
	showStats    bool
	showIgnored  bool
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check [url...]",
	Short: "Check a list of URLs",
	Long: `Request every target URL and report its status code, title, server
banner, body size and redirect target.

Targets come from the arguments and from --file. Redirects are reported,
not followed.

By default, shows failures (4xx, 5xx, errors) and redirects.
Use --all to include alive URLs.

Exit codes:
  0 - Every URL answered with 2xx or 3xx
  1 - At least one 4xx, 5xx or request error

Examples:
  webcheck check https://example.com
  webcheck check --file urls.txt
  webcheck check --file README.md             # Every http(s) link in the file
  webcheck check -H "Accept-Language: en" -H "X-Token: t" https://a.com
  webcheck check --format=json                # Output JSON to stdout
  webcheck check --output=report.junit.xml    # Write JUnit XML for CI/CD
  webcheck check --history=runs.db            # Save the run to a history database
  webcheck check --stats                      # Show performance statistics

Note: --format and --output are mutually exclusive.

Ignore patterns:
  webcheck check --ignore-domain=localhost,example.com
  webcheck check --ignore-pattern="*.local/*"
  webcheck check --ignore-regex=".*\\.test$"

Config file (.webcheckrc.yaml):
  check:
    user_agent: my-bot/1.0
    timeout: 10
    headers:
      Accept-Language: en
  ignore:
    domains: [localhost]`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addRequestFlags(checkCmd, &checkFlags)

	checkCmd.Flags().StringVarP(&outputFormat, "format", "f", "",
		"Output format for stdout: "+strings.Join(output.ValidFormats(), ", "))
	checkCmd.Flags().StringVarP(&outputFile, "output", "o", "",
		"Write report to file (format inferred from extension: .json, .yaml, .xml, .junit.xml, .md)")
	checkCmd.Flags().StringVar(&historyPath, "history", "",
		"Save the run to this SQLite database")
	checkCmd.Flags().BoolVarP(&showAll, "all", "a", false,
		"Show all results including alive URLs")
	checkCmd.Flags().BoolVar(&showStats, "stats", false,
		"Show detailed performance statistics")
	checkCmd.Flags().BoolVar(&showIgnored, "show-ignored", false,
		"Show which URLs were ignored and why")
}

// runCheck is the main entry point for the check command.
// It drives the same session controller as the interactive form.
func runCheck(_ *cobra.Command, args []string) {
	log, err := newLogger()
	exitOnError(err, "")
	defer func() { _ = log.Sync() }()

	exitOnError(validateCheckFlags(), "Invalid flags")

	lc, err := LoadConfig(checkFlags.noConfig)
	exitOnError(err, "")

	format := lc.GetOutputFormat(outputFormat)
	if outputFile != "" {
		format = ""
	}
	useStructuredOutput := format != ""

	// Phase 1: Load targets
	perf := stats.New()
	perf.StartLoad()
	urls, err := CollectTargets(args, checkFlags.file)
	exitOnError(err, "")
	perf.EndLoad(len(urls), 0)

	if len(urls) == 0 {
		exitOnError(errors.New("no targets: pass URLs as arguments or use --file"), "")
	}

	urlFilter, err := CreateFilterWithConfig(lc.Config(), checkFlags.ignoreDomains,
		checkFlags.ignorePatterns, checkFlags.ignoreRegex)
	exitOnError(err, "Error creating filter")
	logSettings(log, lc, urlFilter)

	if !useStructuredOutput {
		fmt.Printf("Checking %s...\n", helpers.Plural(len(urls), "URL"))
	}

	// Phase 2: Check
	perf.StartCheck()
	run, err := runSession(lc, &checkFlags, urlFilter, strings.Join(urls, "\n"), log)
	exitOnError(err, "Error running check")
	perf.Ignored = len(run.state.Ignored)
	perf.EndCheck(len(run.state.Results), checker.Summarize(run.state.Results).Failures())

	// Phase 3: Report
	report := buildReport(run, checkFlags.file, perf)
	saveHistory(lc, report, run, log)
	routeOutput(report, format)

	if report.Summary.HasFailures() {
		os.Exit(1)
	}
}

// sessionRun is the outcome of one headless session run.
type sessionRun struct {
	state      session.State
	config     config.CheckConfig
	startedAt  time.Time
	finishedAt time.Time
}

// runSession wires a bus, a backend and a session, starts one check and
// waits for it to complete. An interrupt stops the run and keeps the
// results received so far.
func runSession(
	lc *LoadedConfig, flags *requestFlags, urlFilter *filter.Filter, targetText string, log *zap.Logger,
) (*sessionRun, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus(event.WithLogger(log))
	defer bus.Close()

	be := backend.New(bus,
		backend.WithLogger(log),
		backend.WithConcurrency(lc.GetConcurrency(flags.concurrency, checker.DefaultConcurrency)),
		backend.WithRetries(lc.GetRetries(flags.retries, checker.DefaultMaxRetries)),
	)
	defer be.Close()

	form := lc.FormState(targetText, flags.formOptions())
	sess := session.New(be, bus,
		session.WithState(form),
		session.WithFilter(urlFilter),
		session.WithLogger(log),
		session.WithNotifier(session.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		})),
	)
	defer sess.Close()

	done := make(chan struct{})
	var once sync.Once
	cancel := sess.Subscribe(func(st session.State) {
		if st.Phase() == session.PhaseCompleted {
			once.Do(func() { close(done) })
		}
	})
	defer cancel()

	if err := sess.SetupListeners(); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	if err := sess.StartCheck(ctx); err != nil {
		return nil, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "Interrupted, stopping check...")
		sess.StopCheck(context.Background())
		if be.Running() {
			log.Info("waiting for in-flight requests")
			be.Wait()
		}
	}

	st := sess.Snapshot()
	return &sessionRun{
		state:      st,
		config:     config.Build(st.UserAgent, st.Cookie, st.Timeout, st.Headers),
		startedAt:  startedAt,
		finishedAt: time.Now(),
	}, nil
}

// exitOnError prints an error message and exits if err is not nil.
func exitOnError(err error, message string) {
	if err != nil {
		if message != "" {
			fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}

// validateCheckFlags checks for invalid flag combinations.
func validateCheckFlags() error {
	// Validate mutually exclusive flags
	if outputFormat != "" && outputFile != "" {
		return errors.New("--format and --output are mutually exclusive; " +
			"use --format for stdout output, or --output for file output")
	}

	// Validate format if specified
	if outputFormat != "" && !output.IsValidFormat(outputFormat) {
		return fmt.Errorf("invalid format %q; valid formats: %s",
			outputFormat, strings.Join(output.ValidFormats(), ", "))
	}

	if checkFlags.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", checkFlags.concurrency)
	}
	if checkFlags.retries < 0 {
		return fmt.Errorf("--retries must not be negative, got %d", checkFlags.retries)
	}
	return nil
}
