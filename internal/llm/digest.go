package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/tuannvm/impactlens/internal/models"
)

const digestInstructions = `You are helping an engineer decide whether a change is safe to ship.
Condense the impact analysis below into a markdown brief with three sections:
"## Verdict" (one sentence), "## Top risks" (at most three bullets) and
"## Next steps" (at most three numbered items). Do not invent tickets or risks
that are not in the analysis.`

// Digester turns an analysis into a short markdown brief.
type Digester struct {
	llm LLMClient
}

func NewDigester(client LLMClient) *Digester {
	return &Digester{llm: client}
}

// Digest asks the model for a brief of resp.
func (d *Digester) Digest(ctx context.Context, resp *models.AnalysisResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no analysis to digest")
	}
	out, err := d.llm.Complete(ctx, BuildPrompt(resp))
	if err != nil {
		return "", fmt.Errorf("failed to generate digest for %s: %w", resp.TicketID, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model returned an empty digest for %s", resp.TicketID)
	}
	return out, nil
}

// BuildPrompt lays the analysis out as plain text under the instructions.
func BuildPrompt(resp *models.AnalysisResponse) string {
	var b strings.Builder
	b.WriteString(digestInstructions)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Ticket: %s\nStatus: %s\n", resp.TicketID, resp.Status)

	r := resp.Report
	if r == nil {
		b.WriteString("The analysis has no report.\n")
		return b.String()
	}
	if r.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", r.Summary)
	}
	if m := r.Metrics; m != nil {
		fmt.Fprintf(&b, "Impact score: %g, affected teams: %d, timeline impact: %s\n", m.ImpactScore, m.AffectedTeams, m.TimelineImpact)
	}
	if len(r.RelatedTickets) > 0 {
		b.WriteString("Related tickets:\n")
		for _, t := range r.RelatedTickets {
			fmt.Fprintf(&b, "- %s (%s, relevance %.2f): %s\n", t.TicketKey, t.Severity, t.RelevanceScore, t.Summary)
		}
	}
	if r.RiskAssessment != nil && len(r.RiskAssessment.Risks) > 0 {
		b.WriteString("Risks:\n")
		for _, risk := range r.RiskAssessment.Risks {
			fmt.Fprintf(&b, "- [%s] %s: %s", risk.Level, risk.Title, risk.Description)
			if risk.Mitigation != "" {
				fmt.Fprintf(&b, " (mitigation: %s)", risk.Mitigation)
			}
			b.WriteString("\n")
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s: %s\n", rec.Title, rec.Description)
		}
	}
	return b.String()
}

// RenderMarkdown styles a markdown brief for the terminal. It falls back to
// the raw text if glamour cannot render it.
func RenderMarkdown(md, style string) string {
	if style == "" {
		style = "dark"
	}
	out, err := glamour.Render(md, style)
	if err != nil {
		return md
	}
	return out
}
