package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuannvm/impactlens/internal/analysis"
	"github.com/tuannvm/impactlens/internal/api"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

// chromeHeight is the number of lines the header, form and help take up
// around the results viewport.
const chromeHeight = 16

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.results.Width = msg.Width
		m.results.Height = max(msg.Height-chromeHeight, 5)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case navigateMsg:
		if msg.route == api.LoginRoute {
			return m.gotoLogin(SessionExpiredNotice)
		}
		return m, nil

	case analysisDoneMsg:
		return m.handleAnalysisDone(msg), nil

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg), nil

	case deletedMsg:
		return m.handleDeleted(msg)

	case previewMsg:
		return m.handlePreview(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.store.Reset()
		return m, tea.Quit
	case "tab":
		return m.switchScreen((m.screen + 1) % Screen(len(screenNames)))
	case "shift+tab":
		return m.switchScreen((m.screen + Screen(len(screenNames)) - 1) % Screen(len(screenNames)))
	}

	switch m.screen {
	case ScreenHistory:
		return m.handleHistoryKey(msg)
	case ScreenLogin:
		return m.handleLoginKey(msg)
	default:
		return m.handleAnalyzeKey(msg)
	}
}

func (m Model) switchScreen(s Screen) (tea.Model, tea.Cmd) {
	m.screen = s
	m.blurAll()
	switch s {
	case ScreenHistory:
		return m.loadHistory(m.history.page)
	case ScreenLogin:
		cmd := m.tokenInput.Focus()
		return m, cmd
	default:
		cmd := m.refocus()
		return m, cmd
	}
}

// --- Analyze screen ---

func (m Model) handleAnalyzeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	st := m.store.Snapshot()

	switch key {
	case "esc":
		if st.Loading() {
			m.store.Reset()
			m.form.SetDisabled(false)
			m.notice = "Analysis cancelled"
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	// Inputs are locked while a request is in flight.
	if st.Loading() {
		return m, nil
	}

	switch key {
	case "enter":
		return m.submit()
	case "ctrl+a":
		m.form.ToggleAdvanced()
		if !m.form.Advanced() {
			m.focus = fieldTicket
		}
		cmd := m.refocus()
		return m, cmd
	case "ctrl+r":
		if err := m.form.Reset(); err == nil {
			m.inputs[fieldTicket].SetValue("")
			m.syncOptionInputs()
			m.preview = nil
			m.notice = ""
		}
		return m, nil
	case "ctrl+p":
		return m.requestPreview()
	case "up":
		m.moveFocus(-1)
		cmd := m.refocus()
		return m, cmd
	case "down":
		m.moveFocus(1)
		cmd := m.refocus()
		return m, cmd
	}

	switch m.focus {
	case fieldComments, fieldAttachments:
		if key == " " || key == "space" {
			field := models.FieldIncludeComments
			if m.focus == fieldAttachments {
				field = models.FieldIncludeAttachments
			}
			_ = m.form.Toggle(field)
		}
		return m, nil
	case fieldDepth:
		switch key {
		case "left", "h":
			_ = m.form.CycleDepth(-1)
		case "right", "l", " ":
			_ = m.form.CycleDepth(1)
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

// submit copies the inputs into the form and, if it validates, starts a new
// analysis generation.
func (m Model) submit() (tea.Model, tea.Cmd) {
	_ = m.form.SetTicketID(m.inputs[fieldTicket].Value())
	maxErr := m.form.SetOption(models.FieldMaxRelatedTickets, m.inputs[fieldMaxRelated].Value())
	minErr := m.form.SetOption(models.FieldMinRelevanceScore, m.inputs[fieldMinRelevance].Value())
	if maxErr != nil || minErr != nil {
		if !m.form.Advanced() {
			m.form.ToggleAdvanced()
		}
		return m, nil
	}

	var cmd tea.Cmd
	fieldErrs, err := m.form.Submit(func(ticketID string, opts models.AnalysisOptions) error {
		req := models.AnalysisRequest{TicketID: ticketID, Options: opts}
		ctx, gen := m.store.Begin(m.ctx, ticketID)
		cmd = analyzeCmd(ctx, m.deps.Backend, gen, req)
		return nil
	})
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	if len(fieldErrs) > 0 {
		for _, fe := range fieldErrs {
			if fe.Field != models.FieldTicketID && !m.form.Advanced() {
				m.form.ToggleAdvanced()
				break
			}
		}
		return m, nil
	}

	m.form.SetDisabled(true)
	m.notice = ""
	m.results.SetContent("")
	log.Infof("Submitted analysis for %s", m.form.TicketID())
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) handleAnalysisDone(msg analysisDoneMsg) Model {
	if !m.store.Resolve(msg.gen, msg.resp, msg.err) {
		return m
	}
	m.form.SetDisabled(false)

	st := m.store.Snapshot()
	if st.Phase == analysis.Success {
		m.results.SetContent(render.ReportString(st.Result))
		m.results.GotoTop()
	}
	if errors.Is(msg.err, api.ErrUnauthorized) {
		m.loggedIn = false
	}
	return m
}

func (m Model) requestPreview() (tea.Model, tea.Cmd) {
	if m.deps.Tickets == nil {
		m.notice = "Ticket preview needs Jira: set jira.base_url, jira.username and jira.api_token"
		return m, nil
	}
	key := m.inputs[fieldTicket].Value()
	if fe := models.ValidateTicketID(key); fe != nil {
		_ = m.form.SetTicketID(key)
		m.form.Validate()
		return m, nil
	}
	m.notice = fmt.Sprintf("Fetching %s from Jira...", key)
	return m, previewCmd(m.ctx, m, key)
}

func (m Model) handlePreview(msg previewMsg) Model {
	if msg.err != nil {
		m.preview = nil
		m.notice = "Preview failed: " + msg.err.Error()
		return m
	}
	m.preview = msg.ticket
	m.notice = ""
	return m
}

func (m *Model) moveFocus(step int) {
	last := fieldTicket
	if m.form.Advanced() {
		last = fieldCount - 1
	}
	n := last + 1
	m.focus = ((m.focus+step)%n + n) % n
}

func (m *Model) blurAll() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.tokenInput.Blur()
}

func (m *Model) refocus() tea.Cmd {
	m.blurAll()
	if m.focus < len(m.inputs) {
		return m.inputs[m.focus].Focus()
	}
	return nil
}

// updateInputs forwards msg to whichever text input has focus.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.screen == ScreenLogin:
		m.tokenInput, cmd = m.tokenInput.Update(msg)
	case m.screen == ScreenAnalyze && m.focus < len(m.inputs):
		if m.form.Disabled() {
			return m, nil
		}
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		if m.focus == fieldTicket {
			_ = m.form.SetTicketID(m.inputs[fieldTicket].Value())
		}
	}
	return m, cmd
}

// --- History screen ---

func (m Model) loadHistory(page int) (tea.Model, tea.Cmd) {
	if page < 0 {
		page = 0
	}
	m.history.page = page
	m.history.loading = true
	m.history.err = ""
	return m, tea.Batch(historyCmd(m.ctx, m.deps.Backend, page), m.spinner.Tick)
}

func (m Model) handleHistoryLoaded(msg historyLoadedMsg) Model {
	if msg.page != m.history.page {
		return m
	}
	m.history.loading = false
	if msg.err != nil {
		m.history.items = nil
		if errors.Is(msg.err, api.ErrUnauthorized) {
			m.loggedIn = false
			return m
		}
		m.history.err = render.HistoryLoadFailed + ": " + api.ErrorMessage(msg.err)
		return m
	}
	m.history.items = msg.items
	if m.history.selected >= len(msg.items) {
		m.history.selected = max(len(msg.items)-1, 0)
	}
	return m
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.history.loading {
		return m, nil
	}
	switch msg.String() {
	case "n":
		if len(m.history.items) == render.HistoryPageSize {
			m.history.selected = 0
			return m.loadHistory(m.history.page + 1)
		}
	case "p":
		if m.history.page > 0 {
			m.history.selected = 0
			return m.loadHistory(m.history.page - 1)
		}
	case "r":
		m.history.notice = ""
		return m.loadHistory(m.history.page)
	case "up", "k":
		if m.history.selected > 0 {
			m.history.selected--
		}
	case "down", "j":
		if m.history.selected < len(m.history.items)-1 {
			m.history.selected++
		}
	case "d":
		if len(m.history.items) == 0 {
			return m, nil
		}
		item := m.history.items[m.history.selected]
		m.history.notice = fmt.Sprintf("Deleting %s...", item.TicketID)
		return m, deleteCmd(m.ctx, m.deps.Backend, item.ID)
	}
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			m.loggedIn = false
			return m, nil
		}
		m.history.notice = "Delete failed: " + api.ErrorMessage(msg.err)
		return m, nil
	}
	m.history.notice = "Deleted analysis " + msg.id
	return m.loadHistory(m.history.page)
}

// --- Login screen ---

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		token := strings.TrimSpace(m.tokenInput.Value())
		if token == "" {
			m.loginNotice = "Token is required"
			return m, nil
		}
		if err := m.deps.Tokens.SetToken(token); err != nil {
			m.loginNotice = "Could not save token: " + err.Error()
			return m, nil
		}
		m.tokenInput.Reset()
		m.loggedIn = true
		m.loginNotice = ""
		m.notice = "Logged in"
		return m.switchScreen(ScreenAnalyze)
	case "ctrl+x":
		if err := m.deps.Tokens.Clear(); err != nil {
			m.loginNotice = "Could not clear token: " + err.Error()
			return m, nil
		}
		m.loggedIn = false
		m.loginNotice = "Logged out"
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m Model) gotoLogin(notice string) (tea.Model, tea.Cmd) {
	m.loggedIn = false
	m.loginNotice = notice
	m.screen = ScreenLogin
	m.blurAll()
	cmd := m.tokenInput.Focus()
	return m, cmd
}
