// Package tui is the interactive dashboard: an analysis form with results, a
// paginated history and a login screen, behind one tabbed header.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuannvm/impactlens/internal/analysis"
	"github.com/tuannvm/impactlens/internal/auth"
	"github.com/tuannvm/impactlens/internal/form"
	"github.com/tuannvm/impactlens/internal/jira"
	"github.com/tuannvm/impactlens/internal/models"
)

// Screen is one of the dashboard tabs.
type Screen int

const (
	ScreenAnalyze Screen = iota
	ScreenHistory
	ScreenLogin
)

var screenNames = []string{"Analyze", "History", "Login"}

func (s Screen) String() string {
	if int(s) < len(screenNames) {
		return screenNames[s]
	}
	return "Unknown"
}

// Form fields in focus order. The option fields only take focus while the
// advanced panel is open.
const (
	fieldTicket = iota
	fieldMaxRelated
	fieldMinRelevance
	fieldComments
	fieldAttachments
	fieldDepth
	fieldCount
)

// SessionExpiredNotice is shown on the login screen after a 401.
const SessionExpiredNotice = "Session expired, please log in"

// Backend is the part of the API client the dashboard uses.
type Backend interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
	History(ctx context.Context, page, size int) ([]models.AnalysisResponse, error)
	Delete(ctx context.Context, id string) error
	BaseURL() string
}

// Deps are the collaborators a Model needs.
type Deps struct {
	Backend Backend
	Tokens  auth.TokenStore
	// Tickets is optional; without it ctrl+p reports that Jira is not configured.
	Tickets jira.TicketFetcher
	Now     func() time.Time
}

type historyState struct {
	page     int
	items    []models.AnalysisResponse
	loading  bool
	err      string
	selected int
	notice   string
}

// Model is the root bubbletea model.
type Model struct {
	deps  Deps
	ctx   context.Context
	store *analysis.Store

	screen   Screen
	loggedIn bool

	form   *form.Form
	inputs [3]textinput.Model // ticket, max related, min relevance
	focus  int

	spinner  spinner.Model
	results  viewport.Model
	preview  *models.JiraTicket
	notice   string
	quitting bool

	history historyState

	tokenInput  textinput.Model
	loginNotice string

	width, height int
}

// NewModel builds the dashboard on the Analyze screen.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ticket := textinput.New()
	ticket.Placeholder = "PROJ-123"
	ticket.CharLimit = 32
	ticket.Prompt = ""
	ticket.Focus()

	maxRelated := textinput.New()
	maxRelated.CharLimit = 2
	maxRelated.Prompt = ""

	minRelevance := textinput.New()
	minRelevance.CharLimit = 4
	minRelevance.Prompt = ""

	token := textinput.New()
	token.Placeholder = "paste bearer token"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		deps:       deps,
		ctx:        ctx,
		store:      analysis.NewStore(deps.Backend),
		form:       form.New(),
		inputs:     [3]textinput.Model{ticket, maxRelated, minRelevance},
		spinner:    sp,
		results:    viewport.New(80, 20),
		tokenInput: token,
		width:      80,
		height:     30,
	}
	m.syncOptionInputs()
	m.loggedIn = m.hasToken()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Screen returns the active tab.
func (m Model) Screen() Screen { return m.screen }

// State returns the analysis store's current state.
func (m Model) State() analysis.State { return m.store.Snapshot() }

// Form exposes the form for inspection.
func (m Model) Form() *form.Form { return m.form }

func (m Model) hasToken() bool {
	if m.deps.Tokens == nil {
		return false
	}
	token, err := m.deps.Tokens.Token()
	return err == nil && token != ""
}

// syncOptionInputs copies the form's numeric options into their inputs.
func (m *Model) syncOptionInputs() {
	opts := m.form.Options()
	m.inputs[fieldMaxRelated].SetValue(itoa(opts.MaxRelatedTickets))
	m.inputs[fieldMinRelevance].SetValue(ftoa(opts.MinRelevanceScore))
}
