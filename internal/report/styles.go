package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// Severity palette
var (
	colorCritical = lipgloss.Color("#FF5555") // red
	colorHigh     = lipgloss.Color("#FF8700") // orange
	colorMedium   = lipgloss.Color("#FFD700") // yellow
	colorLow      = lipgloss.Color("#00D7FF") // cyan
	colorInfo     = lipgloss.Color("#555577") // dim gray
)

var (
	criticalStyle = lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	highStyle     = lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	mediumStyle   = lipgloss.NewStyle().Foreground(colorMedium)
	lowStyle      = lipgloss.NewStyle().Foreground(colorLow)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo)
)

func severityStyle(s schema.Severity) lipgloss.Style {
	switch s {
	case schema.SeverityCritical:
		return criticalStyle
	case schema.SeverityHigh:
		return highStyle
	case schema.SeverityMedium:
		return mediumStyle
	case schema.SeverityLow:
		return lowStyle
	default:
		return infoStyle
	}
}
