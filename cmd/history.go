package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leonardomso/webcheck/internal/output"
	"github.com/leonardomso/webcheck/internal/stats"
	"github.com/leonardomso/webcheck/internal/storage"
	"github.com/leonardomso/webcheck/internal/storage/sqlite"
)

// DefaultHistoryFile is used by the history command when neither the flag
// nor the config names a database.
const DefaultHistoryFile = "webcheck.db"

var (
	historyDB       string
	historyLimit    int
	historyFormat   string
	historyNoConfig bool
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List saved runs or show one of them",
	Long: `Without arguments, list the most recent runs saved with
'webcheck check --history'. With a run id, print that run's results.

Examples:
  webcheck history
  webcheck history --limit=5
  webcheck history 4f1c... --format=markdown`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "",
		"History database (default from config, WEBCHECK_HISTORY or "+DefaultHistoryFile+")")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", sqlite.DefaultListLimit,
		"Number of runs to list")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "",
		"Print a run as a report in this format instead of text")
	historyCmd.Flags().BoolVar(&historyNoConfig, "no-config", false,
		"Skip loading .webcheckrc.yaml / .webcheckrc.toml")
}

func runHistory(_ *cobra.Command, args []string) {
	if historyFormat != "" && !output.IsValidFormat(historyFormat) {
		exitOnError(fmt.Errorf("invalid format %q", historyFormat), "Invalid flags")
	}

	lc, err := LoadConfig(historyNoConfig)
	exitOnError(err, "")

	path := lc.GetHistoryPath(historyDB)
	if path == "" {
		path = DefaultHistoryFile
	}
	if _, err := os.Stat(path); err != nil {
		exitOnError(fmt.Errorf("no history at %s", path), "")
	}

	ctx := context.Background()
	store, err := sqlite.New(ctx, path)
	exitOnError(err, "Error opening history")
	defer func() { _ = store.Close() }()

	if len(args) == 0 {
		runs, err := store.ListRuns(ctx, historyLimit)
		exitOnError(err, "Error listing runs")
		printRuns(os.Stdout, runs)
		return
	}

	exitOnError(showRun(ctx, store, args[0], historyFormat, os.Stdout), "")
}

// printRuns renders runs as an aligned table.
func printRuns(w io.Writer, runs []storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs saved yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tTOTAL\tALIVE\tFAILED\tSOURCE")
	for _, r := range runs {
		source := r.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			stats.FormatDuration(r.Duration()),
			r.Summary.Total,
			r.Summary.Alive,
			r.Summary.Failures(),
			source)
	}
	_ = tw.Flush()
}

// showRun prints one stored run, as text or as a report in format.
func showRun(ctx context.Context, store storage.Storer, id, format string, w io.Writer) error {
	meta, err := store.GetRun(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	results, err := store.RunResults(ctx, id)
	if err != nil {
		return fmt.Errorf("loading results of run %s: %w", id, err)
	}

	report := output.NewReport(meta.Config, results, nil)
	report.RunID = id
	report.Source = meta.Source
	report.GeneratedAt = meta.StartedAt

	if format != "" {
		data, err := output.FormatReport(report, output.Format(format))
		if err != nil {
			return fmt.Errorf("formatting run: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprintf(w, "Run %s (%s)\n", id, report.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, summaryLine(report.Summary, 0))
	for _, r := range results {
		fmt.Fprintf(w, "  %s %s\n", r.StatusDisplay(), r.OriginalURL)
	}
	return nil
}
