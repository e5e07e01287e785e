// Package termui renders ingestion reports and article listings for the CLI.
package termui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matheuskafuri/newsdesk/internal/classify"
	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/store"
)

const minHeadlineWidth = 20

// RenderReport summarises one ingestion run, one block per feed.
func RenderReport(r feed.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Ingestion run %s", r.RunID)))
	b.WriteString("\n")

	for _, f := range r.Feeds {
		b.WriteString(feedNameStyle.Render(f.Feed.Name))
		if f.Err != nil {
			b.WriteString("  " + errorStyle.Render("failed: "+f.Err.Error()) + "\n")
			continue
		}
		counts := fmt.Sprintf("  fetched %d · stored %d · skipped %d", f.Fetched, len(f.Stored), f.Skipped)
		b.WriteString(dimStyle.Render(counts))
		if f.Malformed > 0 {
			b.WriteString(" · " + warnStyle.Render(fmt.Sprintf("malformed %d", f.Malformed)))
		}
		b.WriteString("\n")
		for _, h := range f.Stored {
			b.WriteString("  " + storedStyle.Render("+") + " " + h + "\n")
		}
	}

	summary := fmt.Sprintf("%d stored, %d feed(s) failed in %s",
		r.StoredCount(), r.FailedCount(), r.Duration.Round(time.Millisecond))
	b.WriteString(dimStyle.Render(summary))
	b.WriteString("\n")
	return b.String()
}

// RenderArticles prints a page as an aligned table no wider than width.
func RenderArticles(p store.Page, width int) string {
	if len(p.Articles) == 0 {
		return dimStyle.Render("No articles.") + "\n"
	}

	idWidth := 0
	for _, a := range p.Articles {
		idWidth = max(idWidth, len(fmt.Sprint(a.ID)))
	}
	const timeWidth = len(store.TimestampLayout)
	const labelWidth = 14

	// id, time, two labels, headline, separated by two spaces each
	headlineWidth := width - idWidth - timeWidth - 2*labelWidth - 8
	if headlineWidth < minHeadlineWidth {
		headlineWidth = minHeadlineWidth
	}

	var b strings.Builder
	for _, a := range p.Articles {
		ts := ""
		if !a.Timestamp.IsZero() {
			ts = a.Timestamp.Format(store.TimestampLayout)
		}
		row := []string{
			pad(fmt.Sprint(a.ID), idWidth),
			dimStyle.Render(pad(ts, timeWidth)),
			labelStyle.Render(pad(Truncate(classify.Label(a.Category), labelWidth), labelWidth)),
			labelStyle.Render(pad(Truncate(classify.Label(a.Bias), labelWidth), labelWidth)),
			Truncate(a.Headline, headlineWidth),
		}
		b.WriteString(strings.Join(row, "  "))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d article(s)", len(p.Articles), p.Total)))
	b.WriteString("\n")
	return b.String()
}

// Truncate shortens s to at most width terminal cells, ending in "...".
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
