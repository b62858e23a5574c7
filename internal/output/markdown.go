package output

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/stats"
	"github.com/leonardomso/webcheck/internal/urlutil"
)

// MarkdownFormatter formats reports as Markdown.
type MarkdownFormatter struct{}

// Format implements Formatter.
func (*MarkdownFormatter) Format(report *Report) ([]byte, error) {
	// Pre-grow builder: ~200 bytes per result plus the header.
	var b strings.Builder
	b.Grow(len(report.Results)*200 + 500)

	b.WriteString("# Web Check Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s  \n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	if report.RunID != "" {
		fmt.Fprintf(&b, "**Run:** `%s`  \n", report.RunID)
	}
	if report.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s  \n", escapeMarkdown(report.Source))
	}
	fmt.Fprintf(&b, "**User-Agent:** %s  \n", escapeMarkdown(report.Config.UserAgent))
	fmt.Fprintf(&b, "**Timeout:** %ds\n\n", report.Config.Timeout)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| 2xx | %d |\n", report.Summary.Alive)
	fmt.Fprintf(&b, "| 3xx | %d |\n", report.Summary.Redirects)
	fmt.Fprintf(&b, "| 4xx | %d |\n", report.Summary.ClientErrors)
	fmt.Fprintf(&b, "| 5xx | %d |\n", report.Summary.ServerErrors)
	fmt.Fprintf(&b, "| Errors | %d |\n", report.Summary.Errors)
	if len(report.Ignored) > 0 {
		fmt.Fprintf(&b, "| Ignored | %d |\n", len(report.Ignored))
	}
	fmt.Fprintf(&b, "| **Total** | %d |\n\n", report.Summary.Total)

	if len(report.Results) > 0 {
		fmt.Fprintf(&b, "## Results (%d)\n\n", len(report.Results))
		b.WriteString("| Status | Protocol | Target | Title | Server | Length |\n")
		b.WriteString("|--------|----------|--------|-------|--------|--------|\n")
		for _, r := range report.Results {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n",
				formatStatusForMarkdown(r),
				urlutil.Protocol(r.OriginalURL),
				escapeMarkdown(helpers.TruncateURL(urlutil.OriginalInput(r.OriginalURL), 60)),
				escapeMarkdown(helpers.TruncateText(r.Title, 40)),
				escapeMarkdown(helpers.TruncateText(r.Banner, 40)),
				r.ContentLength)
		}
		b.WriteString("\n")
	}

	if failed := checker.FilterFailures(report.Results); len(failed) > 0 {
		fmt.Fprintf(&b, "## Failures (%d)\n\n", len(failed))
		for _, r := range failed {
			fmt.Fprintf(&b, "#### %s\n\n", escapeMarkdown(r.OriginalURL))
			fmt.Fprintf(&b, "- **Status:** %s\n", formatStatusForMarkdown(r))
			if r.Error != "" {
				fmt.Fprintf(&b, "- **Error:** %s\n", escapeMarkdown(r.Error))
			}
			b.WriteString("\n")
		}
	}

	if redirects := checker.FilterByStatus(report.Results, checker.StatusRedirect); len(redirects) > 0 {
		fmt.Fprintf(&b, "## Redirects (%d)\n\n", len(redirects))
		b.WriteString("| Status | URL | Location |\n")
		b.WriteString("|--------|-----|----------|\n")
		for _, r := range redirects {
			fmt.Fprintf(&b, "| `%d` | %s | %s |\n",
				r.StatusCode,
				escapeMarkdown(helpers.TruncateURL(r.OriginalURL, 60)),
				escapeMarkdown(helpers.TruncateURL(r.RedirectURL, 60)))
		}
		b.WriteString("\n")
	}

	if len(report.Ignored) > 0 {
		fmt.Fprintf(&b, "## Ignored URLs (%d)\n\n", len(report.Ignored))
		b.WriteString("| URL | Reason | Rule |\n")
		b.WriteString("|-----|--------|------|\n")
		for _, ig := range report.Ignored {
			fmt.Fprintf(&b, "| %s | %s | `%s` |\n",
				escapeMarkdown(helpers.TruncateURL(ig.URL, 60)), ig.Type, ig.Rule)
		}
		b.WriteString("\n")
	}

	if report.Stats != nil {
		fmt.Fprintf(&b, "## Statistics\n\n- **Checked:** %d URLs in %s\n- **Throughput:** %.1f URLs/s\n",
			report.Stats.URLsChecked,
			stats.FormatDuration(report.Stats.CheckDuration()),
			report.Stats.URLsPerSecond())
	}

	return []byte(b.String()), nil
}

func formatStatusForMarkdown(r checker.Result) string {
	if r.StatusCode > 0 {
		return fmt.Sprintf("`%d`", r.StatusCode)
	}
	return r.Status().Label()
}

// escapeMarkdown escapes characters that break tables and inline code.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "`", "\\`")
	return s
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
