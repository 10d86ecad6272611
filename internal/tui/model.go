// Package tui renders the ranked per-domain view in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/sitetime/internal/clock"
	"github.com/runnerr0/sitetime/internal/display"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// ActiveFunc reports the domain currently accruing time, or "".
type ActiveFunc func(ctx context.Context) string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4A90E2")).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#874BFD")).
			Width(3).
			Align(lipgloss.Center)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	durationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)
)

const emptyText = "No data for this period"

type tickMsg time.Time

type loadedMsg struct {
	records []storage.DomainRecord
	active  string
	err     error
}

// Model is the bubbletea model for the watch view.
type Model struct {
	store   storage.Store
	active  ActiveFunc
	agg     *display.Aggregator
	refresh time.Duration

	records      []storage.DomainRecord
	activeDomain string
	entries      []display.Entry
	err          error
	quitting     bool
}

// New returns a Model showing p, reloading every refresh. A nil active
// func means no live delta is ever added.
func New(store storage.Store, active ActiveFunc, p period.Period, refresh time.Duration, c clock.Clock) Model {
	if active == nil {
		active = func(context.Context) string { return "" }
	}
	if refresh <= 0 {
		refresh = time.Second
	}
	return Model{
		store:   store,
		active:  active,
		agg:     display.NewAggregator(p, c),
		refresh: refresh,
	}
}

// Entries returns the rows of the last render.
func (m Model) Entries() []display.Entry {
	return m.entries
}

// Period returns the selected period.
func (m Model) Period() period.Period {
	return m.agg.Period()
}

func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	ctx := context.Background()
	records, err := m.store.All(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{records: records, active: m.active(ctx)}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "d":
			return m.selectPeriod(period.Daily), nil
		case "w":
			return m.selectPeriod(period.Weekly), nil
		case "m":
			return m.selectPeriod(period.Monthly), nil
		case "tab":
			return m.selectPeriod(m.agg.Period().Next()), nil
		}
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, m.load
	case loadedMsg:
		if m.quitting {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.records = msg.records
			m.activeDomain = msg.active
			m.entries = m.agg.Snapshot(m.records, m.activeDomain)
		}
		return m, m.tick()
	}
	return m, nil
}

// selectPeriod switches the period and re-renders from the last load.
func (m Model) selectPeriod(p period.Period) Model {
	m.agg.SetPeriod(p)
	m.entries = m.agg.Snapshot(m.records, m.activeDomain)
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sitetime"))
	b.WriteString("\n\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	if len(m.entries) == 0 {
		b.WriteString(emptyStyle.Render(emptyText))
	} else {
		width := 0
		for _, e := range m.entries {
			width = max(width, len(e.Domain))
		}
		for _, e := range m.entries {
			b.WriteString(m.row(e, width))
			b.WriteString("\n")
		}
	}

	b.WriteString(footerStyle.Render("d/w/m or tab: period • q: quit"))
	return b.String()
}

func (m Model) tabs() string {
	current := m.agg.Period()
	var tabs []string
	for _, p := range period.All() {
		label := strings.ToUpper(string(p[:1])) + string(p[1:])
		if p == current {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) row(e display.Entry, width int) string {
	name := fmt.Sprintf("%-*s", width, e.Domain)
	if e.Domain == m.activeDomain {
		name = liveStyle.Render(name)
	}
	return fmt.Sprintf("%s %s  %s",
		badgeStyle.Render(display.Placeholder(e.Domain)),
		name,
		durationStyle.Render(display.FormatDuration(e.Millis)),
	)
}

// Run starts the view and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
