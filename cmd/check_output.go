package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/output"
	"github.com/leonardomso/webcheck/internal/stats"
	"github.com/leonardomso/webcheck/internal/storage"
	"github.com/leonardomso/webcheck/internal/storage/sqlite"
)

// buildReport creates an output.Report from a finished session run.
func buildReport(run *sessionRun, source string, perf *stats.Stats) *output.Report {
	report := output.NewReport(run.config, run.state.Results, run.state.Ignored)
	report.Source = source

	if showStats && perf != nil {
		report.Stats = perf
	}
	return report
}

// saveHistory stores the run when a history database is configured and
// records the assigned id on the report. Failures are reported but do not
// change the exit code.
func saveHistory(lc *LoadedConfig, report *output.Report, run *sessionRun, log *zap.Logger) {
	path := lc.GetHistoryPath(historyPath)
	if path == "" {
		return
	}

	ctx := context.Background()
	store, err := sqlite.New(ctx, path)
	if err != nil {
		log.Error("opening history", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Warning: could not open history %s: %v\n", path, err)
		return
	}
	defer func() { _ = store.Close() }()

	record := &storage.Run{
		StartedAt:  run.startedAt,
		FinishedAt: run.finishedAt,
		Source:     report.Source,
		Config:     run.config.Redacted(),
		Summary:    report.Summary,
		Results:    run.state.Results,
	}
	if err := store.SaveRun(ctx, record); err != nil {
		log.Error("saving run", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Warning: could not save run: %v\n", err)
		return
	}
	report.RunID = record.ID
	log.Debug("run saved", zap.String("id", record.ID), zap.String("path", path))
}

// routeOutput handles output based on format flags.
func routeOutput(report *output.Report, format string) {
	switch {
	case format != "":
		handleStructuredOutput(report, format)
	case outputFile != "":
		handleFileOutput(report)
	default:
		outputText(report)
		if report.RunID != "" {
			fmt.Printf("Saved as run %s\n", report.RunID)
		}
		if showStats {
			fmt.Print(report.Stats.String())
		}
	}
}

// handleStructuredOutput writes the formatted report to stdout.
func handleStructuredOutput(report *output.Report, format string) {
	data, err := output.FormatReport(report, output.Format(format))
	exitOnError(err, "Error formatting output")

	fmt.Print(string(data))
}

// handleFileOutput writes the report to --output and a summary to stdout.
func handleFileOutput(report *output.Report) {
	exitOnError(output.WriteToFile(report, outputFile), "Error writing file")

	fmt.Printf("Wrote report to %s\n", outputFile)
	fmt.Println()
	fmt.Println(summaryLine(report.Summary, len(report.Ignored)))

	if showStats {
		fmt.Print(report.Stats.String())
	}
}

// summaryLine renders the one-line status breakdown.
func summaryLine(s checker.Summary, ignored int) string {
	line := fmt.Sprintf("Summary: %d alive | %d redirects | %d 4xx | %d 5xx | %d errors",
		s.Alive, s.Redirects, s.ClientErrors, s.ServerErrors, s.Errors)
	if ignored > 0 {
		line += fmt.Sprintf(" | %d ignored", ignored)
	}
	return line
}
