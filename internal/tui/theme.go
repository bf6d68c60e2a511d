package tui

import (
	"github.com/charmbracelet/lipgloss"

	"sprintlens/internal/models"
)

type Theme struct {
	Name      string
	Base      lipgloss.Style
	Border    lipgloss.Color
	Header    lipgloss.Style
	TabActive lipgloss.Style
	TabIdle   lipgloss.Style
	Grey      lipgloss.Style
	Amber     lipgloss.Style
	Green     lipgloss.Style
	Red       lipgloss.Style
	Dim       lipgloss.Style
	Focused   lipgloss.Style
}

var Themes = map[string]Theme{
	"default": {
		Name:      "Default",
		Base:      lipgloss.NewStyle().Margin(1, 2),
		Border:    lipgloss.Color("63"),
		Header:    lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		TabActive: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Underline(true),
		TabIdle:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Grey:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Amber:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Green:     lipgloss.NewStyle().Foreground(lipgloss.Color("120")),
		Red:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Focused:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
	},
}

// CurrentTheme holds the currently active theme.
var CurrentTheme = Themes["default"]

func SetTheme(name string) {
	if t, ok := Themes[name]; ok {
		CurrentTheme = t
	}
}

// BucketStyle maps a heatmap bucket onto its theme style.
func BucketStyle(b models.Bucket) lipgloss.Style {
	switch b {
	case models.BucketAmber:
		return CurrentTheme.Amber
	case models.BucketGreen:
		return CurrentTheme.Green
	case models.BucketRed:
		return CurrentTheme.Red
	default:
		return CurrentTheme.Grey
	}
}
