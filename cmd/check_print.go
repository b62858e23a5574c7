package cmd

import (
	"fmt"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/output"
)

// outputText prints results as human-readable text to stdout.
// This is the default output mode when no format flag is specified.
func outputText(report *output.Report) {
	fmt.Println()
	fmt.Println(summaryLine(report.Summary, len(report.Ignored)))
	fmt.Println()

	printSection("Failures", checker.FilterFailures(report.Results), printFailedResult)
	printSection("Redirects", checker.FilterByStatus(report.Results, checker.StatusRedirect), printRedirectResult)
	if showAll {
		printSection("Alive", checker.FilterByStatus(report.Results, checker.StatusAlive), printAliveResult)
	}

	if !report.Summary.HasFailures() && report.Summary.Redirects == 0 && report.Summary.Total > 0 {
		fmt.Println("All URLs are alive!")
	}

	if showIgnored {
		printIgnoredURLs(report.Ignored)
	}
}

// printSection prints a titled section of results if any exist.
// Uses the provided printer function to format each individual result.
func printSection(title string, results []checker.Result, printer func(checker.Result)) {
	if len(results) == 0 {
		return
	}
	fmt.Printf("=== %s (%d) ===\n\n", title, len(results))
	for _, r := range results {
		printer(r)
	}
	fmt.Println()
}

// printAliveResult formats and prints a 2xx result.
func printAliveResult(r checker.Result) {
	fmt.Printf("  %s %s\n", r.StatusDisplay(), r.OriginalURL)
	printPageDetails(r)
	fmt.Println()
}

// printRedirectResult formats and prints a 3xx result.
func printRedirectResult(r checker.Result) {
	fmt.Printf("  %s %s\n", r.StatusDisplay(), r.OriginalURL)
	if r.RedirectURL != "" {
		fmt.Printf("       Location: %s\n", r.RedirectURL)
	}
	printPageDetails(r)
	fmt.Println()
}

// printFailedResult formats and prints a 4xx, 5xx or error result.
func printFailedResult(r checker.Result) {
	fmt.Printf("  %s %s\n", r.StatusDisplay(), r.OriginalURL)
	if r.Error != "" {
		fmt.Printf("       Error: %s\n", r.Error)
	} else {
		printPageDetails(r)
	}
	fmt.Println()
}

func printPageDetails(r checker.Result) {
	fmt.Printf("       Title: %s\n", helpers.TruncateText(r.Title, 60))
	fmt.Printf("       Server: %s\n", helpers.TruncateText(r.Banner, 60))
	fmt.Printf("       Length: %d bytes\n", r.ContentLength)
}

// printIgnoredURLs displays the list of URLs that were ignored by filter rules.
func printIgnoredURLs(ignored []filter.IgnoreReason) {
	if len(ignored) == 0 {
		return
	}

	fmt.Printf("\n=== Ignored URLs (%d) ===\n\n", len(ignored))
	for _, ig := range ignored {
		fmt.Printf("  [IGNORED] %s\n", ig.URL)
		fmt.Printf("            Reason: %s %q\n\n", ig.Type, ig.Rule)
	}
}
