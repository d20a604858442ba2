package tui

import (
	"github.com/charmbracelet/lipgloss"

	"operator-dashboard/src/contracts"
)

// StyleConfig holds all customizable style colors for the dashboard viewer.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	CardBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Run status colors
	SuccessColor lipgloss.Color
	FailureColor lipgloss.Color
	AbortedColor lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		CardBackground: lipgloss.Color("#2D2D2D"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		SuccessColor:   lipgloss.Color("#34A853"),
		FailureColor:   lipgloss.Color("#EA4335"),
		AbortedColor:   lipgloss.Color("#9E9E9E"),
	}
}

// StatusColor maps a run status to its color.
func (s *StyleConfig) StatusColor(status string) lipgloss.Color {
	switch contracts.Status(status) {
	case contracts.StatusSuccess:
		return s.SuccessColor
	case contracts.StatusFailure:
		return s.FailureColor
	default:
		return s.AbortedColor
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// SectionStyle returns the style of section labels in the detail panel.
func (s *StyleConfig) SectionStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Bold(true)
}
