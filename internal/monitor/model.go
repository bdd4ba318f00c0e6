package monitor

import (
	"fmt"
	"strings"
	"time"

	"http1server/internal/admission"
	"http1server/internal/registry"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	ColorPrimary   = "#7D56F4"
	ColorSecondary = "#04B575"
	ColorGray      = "#888888"
	ColorWarning   = "#FFA500"
	ColorError     = "#FF0000"
)

const (
	refreshInterval = 500 * time.Millisecond
	minTableHeight  = 5
	chromeHeight    = 8
)

// Source is what the dashboard polls. admission.Pool satisfies it.
type Source interface {
	Stats() admission.Stats
	Registry() registry.Registry
}

type tickMsg time.Time

type keymap struct {
	quit key.Binding
	up   key.Binding
	down key.Binding
}

func (k keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.quit}
}

func (k keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type model struct {
	source   Source
	title    string
	stats    admission.Stats
	entries  []registry.Entry
	table    table.Model
	keymap   keymap
	help     help.Model
	now      func() time.Time
	width    int
	height   int
	quitting bool
}

var columns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Remote", Width: 22},
	{Title: "State", Width: 11},
	{Title: "Method", Width: 7},
	{Title: "Path", Width: 24},
	{Title: "Age", Width: 8},
}

func newModel(source Source, title string) *model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(minTableHeight),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorGray)).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(ColorPrimary))
	t.SetStyles(styles)

	return &model{
		source: source,
		title:  title,
		table:  t,
		keymap: keymap{
			quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
			up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
			down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
		},
		help: help.New(),
		now:  time.Now,
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	m.refresh()
	return tea.Batch(tickCmd(refreshInterval), tea.WindowSize())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tickCmd(refreshInterval)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(msg.Height-chromeHeight, minTableHeight))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	m.stats = m.source.Stats()
	m.entries = m.source.Registry().Snapshot()

	now := m.now()
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, table.Row{
			e.ID,
			e.Remote,
			string(e.State),
			e.Method,
			truncateString(e.Path, columns[4].Width),
			formatAge(now.Sub(e.Started)),
		})
	}
	m.table.SetRows(rows)
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimary)).
		PaddingTop(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorGray))

	valueStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorSecondary))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorPrimary)).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	stat := func(label string, value any, style lipgloss.Style) string {
		return labelStyle.Render(label+" ") + style.Render(fmt.Sprint(value))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		stat("active", fmt.Sprintf("%d/%d", m.stats.Active, m.stats.Capacity), loadStyle(m.stats)),
		"   ",
		stat("warm", m.stats.Warm, valueStyle),
		"   ",
		stat("admitted", m.stats.Admitted, valueStyle),
		"   ",
		stat("rejected", m.stats.Rejected, rejectedStyle(m.stats.Rejected)),
	))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(boxStyle.Render(labelStyle.Italic(true).Render("no active connections")))
	} else {
		b.WriteString(boxStyle.Render(m.table.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func loadStyle(s admission.Stats) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorSecondary))
	switch {
	case s.Capacity > 0 && s.Active >= s.Capacity:
		return style.Foreground(lipgloss.Color(ColorError))
	case s.Capacity > 0 && s.Active*4 >= s.Capacity*3:
		return style.Foreground(lipgloss.Color(ColorWarning))
	}
	return style
}

func rejectedStyle(n uint64) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorSecondary))
	if n > 0 {
		return style.Foreground(lipgloss.Color(ColorWarning))
	}
	return style
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength < 4 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}

func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Truncate(time.Second).String()
}
