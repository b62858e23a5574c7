package ui

import (
	"fmt"
	"strings"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/urlutil"
)

// ResultItem wraps a checker.Result to implement list.Item interface.
type ResultItem struct {
	Result checker.Result
}

// FilterValue returns the string used for filtering.
// Implements list.Item interface.
func (i ResultItem) FilterValue() string {
	return i.Result.OriginalURL
}

// Title returns the main display text for the item.
// Implements list.DefaultItem interface.
func (i ResultItem) Title() string {
	return helpers.TruncateURL(urlutil.OriginalInput(i.Result.OriginalURL), 70)
}

// Description returns secondary text for the item.
// Implements list.DefaultItem interface.
func (i ResultItem) Description() string {
	r := i.Result

	switch r.Status() {
	case checker.StatusRedirect:
		return fmt.Sprintf("%s → %s", r.StatusDisplay(), helpers.TruncateURL(r.RedirectURL, 50))
	case checker.StatusError:
		return fmt.Sprintf("%s %s", r.StatusDisplay(), helpers.TruncateText(r.Error, 50))
	default:
		return fmt.Sprintf("%s %s | %s", r.StatusDisplay(), helpers.TruncateText(r.Title, 40), helpers.TruncateText(r.Banner, 30))
	}
}

// DetailView returns an expanded detail view for the selected item.
func (i ResultItem) DetailView() string {
	r := i.Result
	var b strings.Builder

	row := func(label, value string) {
		fmt.Fprintf(&b, "│ %s %s\n", DetailLabelStyle.Render(label), value)
	}

	b.WriteString("┌─ Details ─────────────────────────────────────────────────────────────\n")
	row("Status:", StatusBadge(r.Status()))
	if r.StatusCode > 0 {
		row("HTTP Code:", fmt.Sprintf("%d", r.StatusCode))
	}
	row("Protocol:", urlutil.Protocol(r.OriginalURL))
	row("Target:", urlutil.OriginalInput(r.OriginalURL))
	row("Title:", helpers.TruncateText(r.Title, 60))
	row("Server:", helpers.TruncateText(r.Banner, 60))
	row("Length:", fmt.Sprintf("%d bytes", r.ContentLength))
	if r.RedirectURL != "" {
		row("Redirect:", r.RedirectURL)
	}
	if r.Error != "" {
		row("Error:", ErrorStyle.Render(r.Error))
	}
	b.WriteString("└────────────────────────────────────────────────────────────────────────\n")

	return b.String()
}

// ResultsToItems converts a slice of checker.Result to ResultItems.
func ResultsToItems(results []checker.Result) []ResultItem {
	items := make([]ResultItem, len(results))
	for i, r := range results {
		items[i] = ResultItem{Result: r}
	}
	return items
}
