package tui

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

type analysisDoneMsg struct {
	gen  uint64
	resp *models.AnalysisResponse
	err  error
}

type historyLoadedMsg struct {
	page  int
	items []models.AnalysisResponse
	err   error
}

type deletedMsg struct {
	id  string
	err error
}

type previewMsg struct {
	key    string
	ticket *models.JiraTicket
	err    error
}

type navigateMsg struct {
	route string
}

func analyzeCmd(ctx context.Context, b Backend, gen uint64, req models.AnalysisRequest) tea.Cmd {
	return func() tea.Msg {
		resp, err := b.Analyze(ctx, req)
		return analysisDoneMsg{gen: gen, resp: resp, err: err}
	}
}

func historyCmd(ctx context.Context, b Backend, page int) tea.Cmd {
	return func() tea.Msg {
		items, err := b.History(ctx, page, render.HistoryPageSize)
		return historyLoadedMsg{page: page, items: items, err: err}
	}
}

func deleteCmd(ctx context.Context, b Backend, id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, err: b.Delete(ctx, id)}
	}
}

func previewCmd(ctx context.Context, m Model, key string) tea.Cmd {
	fetcher := m.deps.Tickets
	return func() tea.Msg {
		ticket, err := fetcher.GetTicket(ctx, key)
		return previewMsg{key: key, ticket: ticket, err: err}
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
