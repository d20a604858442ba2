package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Bucket filters cycled with the filter key.
const (
	FilterAll     = "ALL"
	FilterFailing = "FAILING"
	FilterPassing = "PASSING"
)

var filters = []string{FilterAll, FilterFailing, FilterPassing}

// Header represents the top status bar component.
type Header struct {
	title          string
	summary        string
	selectedFilter string
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a new header with custom styles
func NewHeader(title string, styles *StyleConfig) Header {
	return Header{
		title:          title,
		selectedFilter: FilterAll,
		styles:         styles,
	}
}

// SetSummary sets the text shown next to the title.
func (h *Header) SetSummary(summary string) {
	h.summary = summary
}

// GetFilter returns the current filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	next := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			next = (i + 1) % len(filters)
			break
		}
	}
	h.selectedFilter = filters[next]
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	bold := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	title := h.title
	if h.summary != "" {
		title = fmt.Sprintf("%s (%s)", h.title, h.summary)
	}
	status := bold.Render(title)
	filter := bold.Render(fmt.Sprintf("Filter: %s", h.selectedFilter))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, status, filter, searchStyle.Render(searchText))
	content = TruncateStyled(content, width)

	return lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		Render(content)
}
