package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tuannvm/impactlens/internal/analysis"
	"github.com/tuannvm/impactlens/internal/jira"
	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

var (
	brandStyle     = lipgloss.NewStyle().Bold(true).Foreground(render.ColorAccent)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(render.ColorNeutral).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Width(22)
	focusMark      = lipgloss.NewStyle().Foreground(render.ColorAccent).Render("›")
	previewBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(render.ColorNeutral).Padding(0, 1)
	noticeStyle    = lipgloss.NewStyle().Foreground(render.ColorMedium)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	switch m.screen {
	case ScreenHistory:
		b.WriteString(m.historyView())
	case ScreenLogin:
		b.WriteString(m.loginView())
	default:
		b.WriteString(m.analyzeView())
	}
	b.WriteString("\n")
	b.WriteString(render.MutedStyle.Render(m.helpView()))
	return b.String()
}

func (m Model) headerView() string {
	tabs := make([]string, len(screenNames))
	for i, name := range screenNames {
		if Screen(i) == m.screen {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}

	status := render.ErrorStyle.Render("not logged in")
	if m.loggedIn {
		status = render.SuccessStyle.Render("logged in")
	}
	baseURL := ""
	if m.deps.Backend != nil {
		baseURL = m.deps.Backend.BaseURL()
	}

	left := brandStyle.Render("ImpactLens") + "  " + strings.Join(tabs, "")
	right := render.MutedStyle.Render(baseURL) + "  " + status
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) analyzeView() string {
	var b strings.Builder
	st := m.store.Snapshot()
	opts := m.form.Options()

	b.WriteString(m.fieldRow(fieldTicket, "Ticket ID", m.inputs[fieldTicket].View(), models.FieldTicketID))

	if m.form.Advanced() {
		b.WriteString(render.MutedStyle.Render("▾ Advanced options") + "\n")
		b.WriteString(m.fieldRow(fieldMaxRelated, "Max related tickets", m.inputs[fieldMaxRelated].View(), models.FieldMaxRelatedTickets))
		b.WriteString(m.fieldRow(fieldMinRelevance, "Min relevance score", m.inputs[fieldMinRelevance].View(), models.FieldMinRelevanceScore))
		b.WriteString(m.fieldRow(fieldComments, "Include comments", checkbox(opts.IncludeComments), ""))
		b.WriteString(m.fieldRow(fieldAttachments, "Include attachments", checkbox(opts.IncludeAttachments), ""))
		b.WriteString(m.fieldRow(fieldDepth, "Analysis depth", "< "+string(opts.AnalysisDepth)+" >", models.FieldAnalysisDepth))
	} else {
		b.WriteString(render.MutedStyle.Render("▸ Advanced options (ctrl+a)") + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	if m.preview != nil {
		b.WriteString("\n" + previewBox.Render(strings.TrimRight(jira.PreviewString(m.preview), "\n")) + "\n")
	}

	b.WriteString("\n")
	switch st.Phase {
	case analysis.Loading:
		b.WriteString(m.spinner.View() + " Analyzing ticket and finding related issues...\n")
	case analysis.Failed:
		b.WriteString(render.ErrorBannerString(st.Err))
	case analysis.Success:
		b.WriteString(m.results.View() + "\n")
	}
	return b.String()
}

func (m Model) fieldRow(field int, label, value, errField string) string {
	mark := " "
	if m.focus == field && m.screen == ScreenAnalyze {
		mark = focusMark
	}
	row := fmt.Sprintf("%s %s%s\n", mark, labelStyle.Render(label), value)
	if errField != "" {
		if msg := m.form.ErrorFor(errField); msg != "" {
			row += "  " + labelStyle.Render("") + render.ErrorStyle.Render(msg) + "\n"
		}
	}
	return row
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) historyView() string {
	var b strings.Builder
	b.WriteString(render.HeadingStyle.Render(fmt.Sprintf("Analysis History · page %d", m.history.page+1)) + "\n\n")

	switch {
	case m.history.loading:
		b.WriteString(m.spinner.View() + " " + render.HistoryLoading + "\n")
	case m.history.err != "":
		b.WriteString(render.ErrorStyle.Render(m.history.err) + "\n")
	default:
		b.WriteString(render.HistoryString(m.history.items, m.deps.Now(), m.history.selected))
	}
	if m.history.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.history.notice) + "\n")
	}
	return b.String()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(render.HeadingStyle.Render("Log in") + "\n\n")
	if m.loginNotice != "" {
		b.WriteString(noticeStyle.Render(m.loginNotice) + "\n\n")
	}
	b.WriteString("  " + labelStyle.Render("Bearer token") + m.tokenInput.View() + "\n")
	return b.String()
}

func (m Model) helpView() string {
	switch m.screen {
	case ScreenHistory:
		return "tab switch · ↑/↓ select · n/p page · r reload · d delete · ctrl+c quit"
	case ScreenLogin:
		return "tab switch · enter save token · ctrl+x log out · ctrl+c quit"
	default:
		if m.store.Snapshot().Loading() {
			return "esc cancel · ctrl+c quit"
		}
		return "tab switch · enter analyze · ↑/↓ field · ctrl+a advanced · ctrl+r reset · ctrl+p preview · pgup/pgdn scroll · ctrl+c quit"
	}
}
