package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 10

	// historyWidth is the number of bundle runs shown per row.
	historyWidth = 10
)

// Delegate renders bucket items as table rows.
type Delegate struct {
	NameWidth    int
	ReleaseWidth int
	styles       *StyleConfig
}

// NewDelegate creates a new bucket table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		NameWidth:    4,
		ReleaseWidth: 3,
		styles:       styles,
	}
}

// SetColumnWidths sizes the name and release columns to fit items.
func (d *Delegate) SetColumnWidths(items []Item) {
	d.NameWidth, d.ReleaseWidth = 4, 3
	for _, item := range items {
		if w := VisualWidth(item.Bucket.Name); w > d.NameWidth {
			d.NameWidth = w
		}
		if w := VisualWidth(releaseColumn(item)); w > d.ReleaseWidth {
			d.ReleaseWidth = w
		}
	}
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func releaseColumn(item Item) string {
	passed, total := item.CellCounts()
	return fmt.Sprintf("%d/%d", passed, total)
}

// historyStrip renders up to historyWidth bundle runs, newest first, as
// colored blocks padded to a fixed width.
func (d Delegate) historyStrip(item Item) string {
	var b strings.Builder
	n := 0
	for _, sq := range item.Bucket.Bundles {
		if n == historyWidth {
			break
		}
		b.WriteString(lipgloss.NewStyle().Foreground(d.styles.StatusColor(sq.Status)).Render("■"))
		n++
	}
	return b.String() + strings.Repeat(" ", historyWidth-n)
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	nameCol := TruncateAndPad(entry.Bucket.Name, d.NameWidth, false)
	releaseCol := fmt.Sprintf("%*s", d.ReleaseWidth, releaseColumn(entry))

	// Fixed columns: name + history + release + separators (9)
	fixedWidth := d.NameWidth + historyWidth + d.ReleaseWidth + 9
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var notes string
	if availableWidth > 0 && len(entry.Bucket.Notes) > 0 {
		notes = TruncateAndPad(entry.Bucket.Notes[0], availableWidth, true)
	}

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if isSelected {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	line := style.Render(nameCol+" │ ") + d.historyStrip(entry) + style.Render(" │ "+releaseCol+" │ "+notes)
	fmt.Fprint(w, line)
}
