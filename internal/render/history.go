package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tuannvm/impactlens/internal/models"
)

// HistoryPageSize is the fixed number of analyses fetched per history page.
const HistoryPageSize = 20

const (
	EmptyHistory       = "No analysis history found"
	HistoryLoading     = "Loading analysis history..."
	HistoryLoadFailed  = "Failed to load analysis history"
	FallbackNoSummary  = "No summary available"
	FallbackNoTime     = "unknown"
	FallbackNoDuration = "-"

	summaryWidth = 60
)

// History writes one row per analysis, newest timestamps shown relative to
// now.
func History(w io.Writer, items []models.AnalysisResponse, now time.Time) error {
	_, err := io.WriteString(w, HistoryString(items, now, -1))
	return err
}

// HistoryString renders the history table. selected marks one row with a
// cursor; pass -1 for none.
func HistoryString(items []models.AnalysisResponse, now time.Time, selected int) string {
	if len(items) == 0 {
		return MutedStyle.Render(EmptyHistory) + "\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-2s%-14s %-11s %-16s %-10s %s", "", "TICKET ID", "STATUS", "CREATED", "TIME", "SUMMARY")
	b.WriteString(MutedStyle.Render(header) + "\n")
	for i, item := range items {
		cursor := "  "
		if i == selected {
			cursor = KeyStyle.Render(">") + " "
		}
		fmt.Fprintf(&b, "%s%s %-14s %-11s %-16s %-10s %s\n",
			cursor,
			StatusMarker(item.Status),
			item.TicketID,
			item.Status,
			RelativeTime(&item, now),
			processingTime(item.Metadata),
			truncate(summaryOf(item.Report), summaryWidth),
		)
	}
	return b.String()
}

// RelativeTime formats when an analysis was created, e.g. "3 minutes ago".
func RelativeTime(item *models.AnalysisResponse, now time.Time) string {
	created, ok := item.Created()
	if !ok {
		return FallbackNoTime
	}
	return humanize.RelTime(created, now, "ago", "from now")
}

func processingTime(meta *models.Metadata) string {
	if meta == nil || meta.ProcessingTime == 0 {
		return FallbackNoDuration
	}
	return fmt.Sprintf("%dms", meta.ProcessingTime)
}

func summaryOf(r *models.Report) string {
	if r == nil || r.Summary == "" {
		return FallbackNoSummary
	}
	return r.Summary
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
