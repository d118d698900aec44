package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tuannvm/impactlens/internal/models"
)

// Fallback text for fields the backend left out.
const (
	FallbackSummary  = "Analysis completed successfully."
	FallbackNA       = "N/A"
	FallbackSeverity = "Unknown"
)

// Report writes a full analysis report. Any part of resp may be missing,
// including resp itself.
func Report(w io.Writer, resp *models.AnalysisResponse) error {
	_, err := io.WriteString(w, ReportString(resp))
	return err
}

// ReportString is Report into a string, for the dashboard viewport.
func ReportString(resp *models.AnalysisResponse) string {
	if resp == nil {
		resp = &models.AnalysisResponse{}
	}
	var report models.Report
	if resp.Report != nil {
		report = *resp.Report
	}

	var b strings.Builder

	if resp.TicketID != "" || resp.ID != "" {
		parts := []string{}
		if resp.TicketID != "" {
			parts = append(parts, TitleStyle.Render(resp.TicketID))
		}
		if resp.Status != "" {
			parts = append(parts, StatusMarker(resp.Status)+" "+resp.Status)
		}
		if resp.ID != "" {
			parts = append(parts, MutedStyle.Render("id "+resp.ID))
		}
		b.WriteString(strings.Join(parts, "  ") + "\n\n")
	}

	writeSummary(&b, resp.Metadata, report.Summary)
	if report.Metrics != nil {
		writeMetrics(&b, report.Metrics)
	}
	if len(report.RelatedTickets) > 0 {
		writeRelated(&b, report.RelatedTickets)
	}
	if report.RiskAssessment != nil {
		writeRisks(&b, report.RiskAssessment)
	}
	if len(report.Recommendations) > 0 {
		writeRecommendations(&b, report.Recommendations)
	}
	return b.String()
}

func writeSummary(b *strings.Builder, meta *models.Metadata, summary string) {
	var processing int64
	var analyzed int
	if meta != nil {
		processing = meta.ProcessingTime
		analyzed = meta.TicketsAnalyzed
	}
	if summary == "" {
		summary = FallbackSummary
	}

	b.WriteString(HeadingStyle.Render("Analysis Summary") + "\n")
	fmt.Fprintf(b, "  %s  %s\n", MutedStyle.Render(fmt.Sprintf("%dms", processing)), MutedStyle.Render(fmt.Sprintf("%d tickets analyzed", analyzed)))
	fmt.Fprintf(b, "  %s\n\n", summary)
}

func writeMetrics(b *strings.Builder, m *models.Metrics) {
	impact := FallbackNA
	if m.ImpactScore != 0 {
		impact = strconv.FormatFloat(m.ImpactScore, 'f', -1, 64)
	}
	timeline := m.TimelineImpact
	if timeline == "" {
		timeline = FallbackNA
	}

	b.WriteString(HeadingStyle.Render("Key Metrics") + "\n")
	fmt.Fprintf(b, "  %-16s %s\n", "Impact Score", MetricStyle.Render(impact))
	fmt.Fprintf(b, "  %-16s %s\n", "Affected Teams", MetricStyle.Render(strconv.Itoa(m.AffectedTeams)))
	fmt.Fprintf(b, "  %-16s %s\n\n", "Timeline Impact", MetricStyle.Render(timeline))
}

func writeRelated(b *strings.Builder, tickets []models.RelatedTicket) {
	b.WriteString(HeadingStyle.Render(fmt.Sprintf("Related Tickets (%d)", len(tickets))) + "\n")
	for _, t := range tickets {
		severity := t.Severity
		if severity == "" {
			severity = FallbackSeverity
		}
		line := "  " + KeyStyle.Render(t.TicketKey) + " " + Badge(severity)
		if t.RelevanceScore != 0 {
			line += " " + MutedStyle.Render(fmt.Sprintf("Relevance: %.1f%%", t.RelevanceScore*100))
		}
		b.WriteString(line + "\n")
		if t.Summary != "" {
			fmt.Fprintf(b, "    %s\n", TitleStyle.Render(t.Summary))
		}
		if t.Description != "" {
			fmt.Fprintf(b, "    %s\n", t.Description)
		}
		if t.URL != "" {
			fmt.Fprintf(b, "    %s\n", MutedStyle.Render(t.URL))
		}
	}
	b.WriteString("\n")
}

func writeRisks(b *strings.Builder, ra *models.RiskAssessment) {
	b.WriteString(HeadingStyle.Render("Risk Assessment") + "\n")
	if len(ra.Risks) == 0 {
		b.WriteString("  " + MutedStyle.Render("No risks identified") + "\n\n")
		return
	}
	for _, r := range ra.Risks {
		level := r.Level
		if level == "" {
			level = FallbackSeverity
		}
		fmt.Fprintf(b, "  %s %s\n", Badge(level), TitleStyle.Render(r.Title))
		if r.Description != "" {
			fmt.Fprintf(b, "    %s\n", r.Description)
		}
		if r.Mitigation != "" {
			fmt.Fprintf(b, "    %s %s\n", SuccessStyle.Render("Mitigation:"), r.Mitigation)
		}
	}
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, recs []models.Recommendation) {
	b.WriteString(HeadingStyle.Render("Recommendations") + "\n")
	for i, r := range recs {
		fmt.Fprintf(b, "  %d. %s\n", i+1, TitleStyle.Render(r.Title))
		if r.Description != "" {
			fmt.Fprintf(b, "     %s\n", r.Description)
		}
	}
	b.WriteString("\n")
}

// ErrorBanner writes the error view for a failed request.
func ErrorBanner(w io.Writer, msg string) error {
	_, err := io.WriteString(w, ErrorBannerString(msg))
	return err
}

// ErrorBannerString is ErrorBanner into a string.
func ErrorBannerString(msg string) string {
	if strings.TrimSpace(msg) == "" {
		msg = "Analysis failed"
	}
	return ErrorTitle.Render("Analysis Error") + "\n  " + ErrorStyle.Render(msg) + "\n"
}
