// Package tui provides the terminal viewer for a dashboard: a list of
// platform buckets on the left and the selected bucket's bundle history and
// release matrix on the right.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/report"
)

// Status is the loading state of the viewer.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

// Loader fetches the dashboard to display.
type Loader func(ctx context.Context) (contracts.Dashboard, error)

// ReloadMsg asks the viewer to load the dashboard again.
type ReloadMsg struct{}

// Option configures the viewer.
type Option func(*MainModel)

// WithReload reloads the dashboard every time ch receives.
func WithReload(ch <-chan struct{}) Option {
	return func(m *MainModel) { m.reload = ch }
}

// LoadedMsg carries the result of a Loader call.
type LoadedMsg struct {
	Dashboard contracts.Dashboard
	Err       error
}

// MainModel is the Bubble Tea model of the viewer.
type MainModel struct {
	ctx      context.Context
	operator operator.Config
	load     Loader
	reload   <-chan struct{}
	now      func() time.Time

	status Status
	err    error
	items  []Item

	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel
	styles         *StyleConfig

	width         int
	height        int
	ready         bool
	detailFocused bool
	searchMode    bool
	searchQuery   string
}

// NewModel creates the viewer. load is called on start and on refresh.
func NewModel(ctx context.Context, op operator.Config, load Loader, opts ...Option) MainModel {
	styles := DefaultStyles()
	title := op.Label() + " Dashboard"
	m := MainModel{
		ctx:            ctx,
		operator:       op,
		load:           load,
		now:            time.Now,
		status:         StatusLoading,
		header:         NewHeader(title, styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(title),
		styles:         styles,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Start runs the viewer until the user quits.
func Start(ctx context.Context, op operator.Config, load Loader, opts ...Option) error {
	p := tea.NewProgram(NewModel(ctx, op, load, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts loading. Required by tea.Model interface.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(SpinnerTick(), m.loadCmd(), m.waitForReload())
}

func (m MainModel) waitForReload() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	ch := m.reload
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return ReloadMsg{}
	}
}

// refresh starts a load unless one is running.
func (m MainModel) refresh() (MainModel, tea.Cmd) {
	if m.status == StatusLoading {
		return m, nil
	}
	m.status = StatusLoading
	m.progress = m.progress.Reset()
	return m, tea.Batch(SpinnerTick(), m.loadCmd())
}

func (m MainModel) loadCmd() tea.Cmd {
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		d, err := load(ctx)
		return LoadedMsg{Dashboard: d, Err: err}
	}
}

// SetDashboard replaces the displayed dashboard.
func (m *MainModel) SetDashboard(d contracts.Dashboard) {
	page := report.Build(d, m.operator, m.now())
	m.items = make([]Item, 0, len(page.Buckets))
	for _, b := range page.Buckets {
		m.items = append(m.items, Item{Bucket: b})
	}
	m.header.SetSummary(fmt.Sprintf("%d versions", len(m.items)))
	m.applyFilter()
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case LoadedMsg:
		if msg.Err != nil {
			m.status = StatusError
			m.err = msg.Err
			return m, nil
		}
		m.status = StatusReady
		m.err = nil
		m.SetDashboard(msg.Dashboard)
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "complete"})
		return m, nil

	case ReloadMsg:
		var cmd tea.Cmd
		m, cmd = m.refresh()
		return m, tea.Batch(cmd, m.waitForReload())

	case SpinnerTickMsg, ProgressMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += msg.String()
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

func (m MainModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m.refresh()
	}

	if m.detailFocused {
		switch msg.String() {
		case "esc", "tab", "enter":
			m.detailFocused = false
			return m, nil
		}
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter", "tab":
		if _, ok := m.listView.GetSelectedItem(); ok {
			m.detailFocused = true
		}
		return m, nil
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "f":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.header.SetSearch("", false)
			m.applyFilter()
		}
		return m, nil
	}

	before, _ := m.listView.GetSelectedItem()
	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	if after, ok := m.listView.GetSelectedItem(); ok && after.Bucket.Name != before.Bucket.Name {
		m.updateDetailContent(after)
	}
	return m, cmd
}
