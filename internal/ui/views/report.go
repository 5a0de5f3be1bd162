package views

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/ui/theme"
)

// Loader fetches one report for the browsing user
type Loader func(ctx context.Context, kind report.Kind) (report.Payload, error)

// ReportLoadedMsg carries a finished report computation
type ReportLoadedMsg struct {
	Kind    report.Kind
	Payload report.Payload
	Err     error
}

// loadTimeout bounds one report computation from the browser
const loadTimeout = 30 * time.Second

// ReportView shows one report kind
type ReportView struct {
	kind    report.Kind
	load    Loader
	spinner spinner.Model
	width   int
	height  int

	loading bool
	payload report.Payload
	err     error
	scroll  int
}

// NewReportView creates a view for kind
func NewReportView(kind report.Kind, load Loader) ReportView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Current.Theme.Primary)
	return ReportView{kind: kind, load: load, spinner: s, loading: true}
}

// Kind returns the report kind this view shows
func (v ReportView) Kind() report.Kind {
	return v.kind
}

// Init starts loading the report
func (v ReportView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.fetch())
}

// Refresh marks the view as loading and refetches
func (v ReportView) Refresh() (ReportView, tea.Cmd) {
	v.loading = true
	return v, tea.Batch(v.spinner.Tick, v.fetch())
}

// SetSize sets the view dimensions
func (v ReportView) SetSize(width, height int) ReportView {
	v.width = width
	v.height = height
	return v.ScrollBy(0)
}

// HasReport reports whether a payload has been loaded at least once
func (v ReportView) HasReport() bool {
	return v.payload != nil
}

// ScrollBy moves the viewport by delta lines, kept between the top and the
// last full page
func (v ReportView) ScrollBy(delta int) ReportView {
	v.scroll += delta
	if limit := v.maxScroll(); v.scroll > limit {
		v.scroll = limit
	}
	if v.scroll < 0 {
		v.scroll = 0
	}
	return v
}

// ScrollTop jumps back to the first line
func (v ReportView) ScrollTop() ReportView {
	v.scroll = 0
	return v
}

func (v ReportView) maxScroll() int {
	if v.payload == nil || v.height <= 0 {
		return 0
	}
	lines := strings.Count(v.content(), "\n") + 1
	if lines <= v.height {
		return 0
	}
	return lines - v.height
}

func (v ReportView) fetch() tea.Cmd {
	kind, load := v.kind, v.load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		p, err := load(ctx, kind)
		return ReportLoadedMsg{Kind: kind, Payload: p, Err: err}
	}
}

// Update handles messages
func (v ReportView) Update(msg tea.Msg) (ReportView, tea.Cmd) {
	switch msg := msg.(type) {
	case ReportLoadedMsg:
		if msg.Kind != v.kind {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.payload = msg.Payload
			v = v.ScrollBy(0)
		}
		return v, nil

	case spinner.TickMsg:
		if !v.loading && v.payload != nil {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

// View renders the report
func (v ReportView) View() string {
	styles := theme.Current.Styles

	if v.payload == nil {
		if v.err != nil {
			return styles.ErrorMsg.Render("Failed to load report: " + v.err.Error())
		}
		return v.spinner.View() + " Computing " + v.kind.Title() + "..."
	}

	return clip(v.content(), v.scroll, v.height)
}

// content is the full, unclipped body of a loaded report
func (v ReportView) content() string {
	content := Render(v.payload, v.width)
	if v.loading {
		content = v.spinner.View() + " refreshing\n" + content
	}
	if v.err != nil {
		content = theme.Current.Styles.ErrorMsg.Render("Refresh failed: "+v.err.Error()) + "\n" + content
	}
	return content
}

// clip returns at most height lines of s starting at line offset
func clip(s string, offset, height int) string {
	if height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if offset > len(lines)-height {
		offset = len(lines) - height
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + height
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[offset:end], "\n")
}
