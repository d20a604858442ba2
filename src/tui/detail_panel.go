package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

func formatEpoch(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(timeLayout)
}

// renderDetail renders the notes, bundle history and release matrix of a bucket.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	var content strings.Builder
	section := m.styles.SectionStyle()
	dim := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	if len(item.Bucket.Notes) > 0 {
		fmt.Fprintln(&content, section.Render("Notes:"))
		for _, note := range item.Bucket.Notes {
			fmt.Fprintln(&content, Wrap("• "+note, maxWidth))
		}
		fmt.Fprintln(&content)
	}

	fmt.Fprintln(&content, section.Render("Bundle history (main branch):"))
	if latest, ok := item.LatestBundle(); ok {
		fmt.Fprintln(&content, dim.Render("Last bundle job: "+formatEpoch(latest.Timestamp)))
		for _, sq := range item.Bucket.Bundles {
			status := lipgloss.NewStyle().Foreground(m.styles.StatusColor(sq.Status)).Render(fmt.Sprintf("%-8s", sq.Status))
			fmt.Fprintf(&content, "%s %s\n", status, dim.Render(formatEpoch(sq.Timestamp)))
			fmt.Fprintln(&content, dim.Faint(true).Render(Wrap(sq.URL, maxWidth)))
		}
	} else {
		fmt.Fprintln(&content, dim.Render("No bundle runs"))
	}
	fmt.Fprintln(&content)

	fmt.Fprintln(&content, section.Render("Release matrix (operator catalog):"))
	if len(item.Bucket.Rows) == 0 {
		fmt.Fprintln(&content, dim.Render("No release tests"))
	}
	for _, row := range item.Bucket.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			if c.Success {
				cells = append(cells, c.Component)
			} else {
				cells = append(cells, c.Component+" (Failed)")
			}
		}
		line := Wrap(row.Platform+": "+strings.Join(cells, ", "), maxWidth)
		for i, part := range strings.Split(line, "\n") {
			if i == 0 {
				fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.TextPrimary).Render(part))
				continue
			}
			fmt.Fprintln(&content, part)
		}
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	borderColor := m.styles.BorderColor
	if m.detailFocused {
		borderColor = m.styles.AccentBlue
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(width - 2).
		Height(height)

	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := m.styles.TitleStyle().Render(selectedItem.Title())
		return lipgloss.JoinVertical(lipgloss.Left, headerRow, box.Render(m.detailViewport.View()))
	}

	placeholderRow := lipgloss.NewStyle().Padding(0, 1).Render(" ")
	empty := box.
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true).
		Render("No matching buckets")
	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, empty)
}
