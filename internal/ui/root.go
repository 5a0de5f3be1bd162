package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/workscope/internal/app"
	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/ui/theme"
	"github.com/dori/workscope/internal/ui/views"
)

// RootModel is the report browser: one tab per report kind
type RootModel struct {
	keys   KeyMap
	help   help.Model
	width  int
	height int
	who    string

	currentView View
	reports     []views.ReportView
	loaded      []bool
	helpVisible bool

	// Status message
	statusMsg string
	errorMsg  string
}

// NewRootModel creates a browser for v with fixed filters p
func NewRootModel(application *app.App, v scope.Viewer, p filter.Params) RootModel {
	load := func(ctx context.Context, kind report.Kind) (report.Payload, error) {
		return application.Reports.Compute(ctx, kind, v, p)
	}
	who := fmt.Sprintf("user %d", v.UserID)
	if v.Admin {
		who += " (admin)"
	}
	return newRootModel(load, who)
}

func newRootModel(load views.Loader, who string) RootModel {
	h := help.New()
	h.ShowAll = false

	kinds := report.Kinds()
	reports := make([]views.ReportView, len(kinds))
	for i, k := range kinds {
		reports[i] = views.NewReportView(k, load)
	}

	return RootModel{
		keys:        DefaultKeyMap(),
		help:        h,
		who:         who,
		currentView: ViewLoggedTime,
		reports:     reports,
		loaded:      make([]bool, len(kinds)),
	}
}

// Init loads the first report
func (m RootModel) Init() tea.Cmd {
	m.loaded[m.currentView] = true
	return m.reports[m.currentView].Init()
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Reserve space for header (2 lines) and footer (2 lines)
		contentHeight := m.height - 4
		for i := range m.reports {
			m.reports[i] = m.reports[i].SetSize(m.width, contentHeight)
		}
		return m, nil

	case tea.KeyMsg:
		// Clear status/error on any keypress
		m.statusMsg = ""
		m.errorMsg = ""

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.ThemeCycle):
			m.cycleTheme()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = !m.helpVisible
			m.help.ShowAll = m.helpVisible
			return m, nil
		case key.Matches(msg, m.keys.LoggedTime):
			return m.switchTo(ViewLoggedTime)
		case key.Matches(msg, m.keys.TeamSummary):
			return m.switchTo(ViewTeamSummary)
		case key.Matches(msg, m.keys.TaskCompletions):
			return m.switchTo(ViewTaskCompletions)
		case key.Matches(msg, m.keys.Next):
			return m.switchTo((m.currentView + 1) % View(len(m.reports)))
		case key.Matches(msg, m.keys.Refresh):
			var cmd tea.Cmd
			m.loaded[m.currentView] = true
			m.reports[m.currentView], cmd = m.reports[m.currentView].Refresh()
			return m, cmd
		case key.Matches(msg, m.keys.Down):
			m.reports[m.currentView] = m.reports[m.currentView].ScrollBy(1)
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.reports[m.currentView] = m.reports[m.currentView].ScrollBy(-1)
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.reports[m.currentView] = m.reports[m.currentView].ScrollTop()
			return m, nil
		}

	case views.ReportLoadedMsg:
		// Route to the tab that asked, whichever is showing now
		refreshed := false
		for i := range m.reports {
			if m.reports[i].Kind() == msg.Kind {
				refreshed = m.reports[i].HasReport()
				m.reports[i], _ = m.reports[i].Update(msg)
			}
		}
		if msg.Err != nil {
			err := msg.Err
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		if refreshed {
			status := msg.Kind.Title() + " refreshed"
			return m, func() tea.Msg { return StatusMsg{Message: status} }
		}
		return m, nil

	case ErrorMsg:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil
	}

	// Delegate to current view
	var cmd tea.Cmd
	m.reports[m.currentView], cmd = m.reports[m.currentView].Update(msg)
	return m, cmd
}

func (m RootModel) switchTo(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	m.helpVisible = false
	m.help.ShowAll = false
	if m.loaded[v] {
		return m, nil
	}
	m.loaded[v] = true
	return m, m.reports[v].Init()
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	contentHeight := m.height - 4
	if m.errorMsg != "" || m.statusMsg != "" {
		contentHeight-- // Extra line for status message
	}

	var content string
	if m.helpVisible {
		content = m.help.View(m.keys)
	} else {
		content = m.reports[m.currentView].View()
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the tab bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("workscope")

	tabs := make([]string, len(m.reports))
	for i := range m.reports {
		v := View(i)
		label := fmt.Sprintf("%d %s", i+1, v.String())
		style := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1)
		if v == m.currentView {
			style = style.Foreground(t.Primary).Bold(true).Underline(true)
		}
		tabs[i] = style.Render(label)
	}

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, append([]string{title}, tabs...)...)
	rightSide := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1).Render(m.who)

	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 0 {
		gap = 0
	}
	return leftSide + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the status line and key hints
func (m RootModel) renderFooter() string {
	t := theme.Current.Theme

	var lines []string
	if m.errorMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg))
	}
	if !m.helpVisible {
		lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return strings.Join(lines, "\n")
}

// cycleTheme cycles through available themes
func (m *RootModel) cycleTheme() {
	themes := theme.Available()
	current := theme.Current.Theme.Name

	for i, t := range themes {
		if t.Name == current {
			next := themes[(i+1)%len(themes)]
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			return
		}
	}
}
