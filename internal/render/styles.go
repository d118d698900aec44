package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by the CLI output and the dashboard.
var (
	ColorHigh    = lipgloss.Color("#e53935")
	ColorMedium  = lipgloss.Color("#FFC107")
	ColorLow     = lipgloss.Color("#8BC34A")
	ColorNeutral = lipgloss.Color("#9e9e9e")
	ColorAccent  = lipgloss.Color("#2196F3")
	ColorMetric  = lipgloss.Color("#7e57c2")
)

var (
	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	TitleStyle   = lipgloss.NewStyle().Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorNeutral)
	KeyStyle     = lipgloss.NewStyle().Foreground(ColorAccent)
	MetricStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorMetric)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorHigh)
	ErrorTitle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHigh)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorLow)
)

// LevelColor maps a severity or risk level to its display colour.
func LevelColor(level string) lipgloss.Color {
	switch strings.ToLower(level) {
	case "high", "critical":
		return ColorHigh
	case "medium":
		return ColorMedium
	case "low":
		return ColorLow
	default:
		return ColorNeutral
	}
}

// Badge renders a bracketed, level-coloured label.
func Badge(level string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(LevelColor(level)).Render("[" + level + "]")
}

// StatusColor maps an analysis status to its display colour.
func StatusColor(status string) lipgloss.Color {
	switch strings.ToLower(status) {
	case "completed":
		return ColorLow
	case "processing":
		return ColorMedium
	case "failed":
		return ColorHigh
	default:
		return ColorNeutral
	}
}

// StatusMarker is the one-glyph icon shown next to a status.
func StatusMarker(status string) string {
	var glyph string
	switch strings.ToLower(status) {
	case "completed":
		glyph = "✓"
	case "processing":
		glyph = "◷"
	case "failed":
		glyph = "✗"
	default:
		glyph = "•"
	}
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render(glyph)
}
