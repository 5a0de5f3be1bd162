package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/ui/theme"
)

// Render draws any report payload. width bounds the bar charts; zero picks a
// sensible default for non-interactive output.
func Render(p report.Payload, width int) string {
	switch r := p.(type) {
	case *report.LoggedTime:
		return RenderLoggedTime(r, width)
	case *report.TeamSummary:
		return RenderTeamSummary(r)
	case *report.TaskCompletions:
		return RenderTaskCompletions(r, width)
	default:
		return ""
	}
}

// RenderLoggedTime draws headline cards and a time-per-task chart
func RenderLoggedTime(r *report.LoggedTime, width int) string {
	styles := theme.Current.Styles

	var sections []string
	sections = append(sections, styles.Title.Render(report.KindLoggedTime.Title()), "")
	sections = append(sections, cards(
		[2]string{formatSeconds(r.TotalTime), "Completed time"},
		[2]string{formatSeconds(int64(r.AvgTime)), "Avg per completed"},
		[2]string{formatSeconds(r.IncompleteTime), "Incomplete time"},
		[2]string{percent(r.OnTimeCompletionRate), "On time"},
	))
	sections = append(sections, cards(
		[2]string{strconv.Itoa(r.CompletedTasks), "Completed"},
		[2]string{strconv.Itoa(r.OverdueTasks), "Overdue"},
		[2]string{strconv.Itoa(r.BlockedTasks), "Blocked"},
		[2]string{fmt.Sprintf("%.1fh", r.TotalDelayHours), "Total delay"},
	))

	if r.OverdueTime > 0 {
		sections = append(sections, styles.Warning.Render(
			fmt.Sprintf("%s logged on overdue tasks", formatSeconds(r.OverdueTime))))
	}

	if len(r.TimeByTask) > 0 {
		sections = append(sections, "", styles.Section.Render("Time by Task"))
		bars := make([]bar, 0, len(r.TimeByTask))
		for _, f := range r.TimeByTask {
			secs, _ := f.Value.(int64)
			bars = append(bars, bar{label: "task " + f.Key, value: float64(secs), text: formatSeconds(secs)})
		}
		sections = append(sections, barChart(bars, width))
	}

	return strings.Join(sections, "\n")
}

// RenderTeamSummary draws the weekly breakdown and totals tables
func RenderTeamSummary(r *report.TeamSummary) string {
	styles := theme.Current.Styles

	var sections []string
	sections = append(sections, styles.Title.Render(report.KindTeamSummary.Title()), "")
	sections = append(sections, cards(
		[2]string{strconv.Itoa(r.TotalTasks), "Tasks"},
		[2]string{strconv.Itoa(r.TotalUsers), "People"},
		[2]string{strconv.Itoa(len(r.WeekTotals)), "Weeks"},
	))

	header := []string{"Week", "Start", "Person", "Todo", "Doing", "Done", "Blocked", "Total"}
	if len(r.WeeklyBreakdown) > 0 {
		rows := make([][]string, 0, len(r.WeeklyBreakdown))
		for _, w := range r.WeeklyBreakdown {
			rows = append(rows, append([]string{w.Week, w.WeekStart, w.UserName}, countCells(w.StatusCounts)...))
		}
		sections = append(sections, "", styles.Section.Render("Weekly Breakdown"), table(header, rows))
	}

	if len(r.UserTotals) > 0 {
		rows := make([][]string, 0, len(r.UserTotals))
		for _, f := range r.UserTotals {
			u, _ := f.Value.(report.UserTotal)
			rows = append(rows, append([]string{u.UserName}, countCells(u.StatusCounts)...))
		}
		sections = append(sections, "", styles.Section.Render("Per Person"),
			table(append([]string{"Person"}, header[3:]...), rows))
	}

	if len(r.WeekTotals) > 0 {
		rows := make([][]string, 0, len(r.WeekTotals))
		for _, f := range r.WeekTotals {
			w, _ := f.Value.(report.WeekTotal)
			rows = append(rows, append([]string{f.Key, w.WeekStart}, countCells(w.StatusCounts)...))
		}
		sections = append(sections, "", styles.Section.Render("Per Week"),
			table(append([]string{"Week", "Start"}, header[3:]...), rows))
	}

	return strings.Join(sections, "\n")
}

// RenderTaskCompletions draws totals, per-project completions and per-person
// stats
func RenderTaskCompletions(r *report.TaskCompletions, width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var sections []string
	sections = append(sections, styles.Title.Render(report.KindTaskCompletions.Title()), "")
	sections = append(sections, cards(
		[2]string{strconv.Itoa(r.TotalTasks), "Tasks"},
		[2]string{strconv.Itoa(r.TotalCompleted), "Completed"},
		[2]string{percent(r.OverallCompletionRate), "Completion rate"},
	))

	// Status split line
	split := []struct {
		status model.Status
		n      int
	}{
		{model.StatusToDo, r.TotalTodo},
		{model.StatusInProgress, r.TotalInProgress},
		{model.StatusCompleted, r.TotalCompleted},
		{model.StatusBlocked, r.TotalBlocked},
	}
	var parts []string
	for _, s := range split {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Status(s.status)).
			Render(fmt.Sprintf("%s %d", s.status, s.n)))
	}
	sections = append(sections, strings.Join(parts, styles.HelpSeparator.Render(" │ ")))

	if len(r.CompletedByProject) > 0 {
		sections = append(sections, "", styles.Section.Render("Completed by Project"))
		bars := make([]bar, 0, len(r.CompletedByProject))
		for _, f := range r.CompletedByProject {
			n, _ := f.Value.(int)
			bars = append(bars, bar{label: "project " + f.Key, value: float64(n), text: strconv.Itoa(n)})
		}
		sections = append(sections, barChart(bars, width))
	}

	if len(r.UserStats) > 0 {
		header := []string{"Person", "Tasks", "Done", "Rate", "On time", "Late", "Avg hours", "Logged"}
		rows := make([][]string, 0, len(r.UserStats))
		for _, u := range r.UserStats {
			rows = append(rows, []string{
				u.UserName,
				strconv.Itoa(u.TotalTasks),
				strconv.Itoa(u.CompletedTasks),
				percent(u.CompletionRate),
				strconv.Itoa(u.OnTimeCompletions),
				strconv.Itoa(u.LateCompletions),
				fmt.Sprintf("%.1f", u.AvgCompletionTime),
				formatSeconds(u.TotalLoggedTime),
			})
		}
		sections = append(sections, "", styles.Section.Render("Per Person"), table(header, rows))
	}

	return strings.Join(sections, "\n")
}

// Helper functions

func cards(items ...[2]string) string {
	styles := theme.Current.Styles
	rendered := make([]string, len(items))
	for i, it := range items {
		rendered[i] = styles.Card.Render(styles.Value.Render(it[0]) + "\n" + styles.Label.Render(it[1]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func countCells(c report.StatusCounts) []string {
	return []string{
		strconv.Itoa(c.Todo),
		strconv.Itoa(c.InProgress),
		strconv.Itoa(c.Completed),
		strconv.Itoa(c.Blocked),
		strconv.Itoa(c.Total),
	}
}

// table lays out rows in left-aligned columns sized to their widest cell
func table(header []string, rows [][]string) string {
	styles := theme.Current.Styles

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(header, styles.TableHeader)}
	for _, row := range rows {
		lines = append(lines, render(row, styles.TableCell))
	}
	return strings.Join(lines, "\n")
}

type bar struct {
	label string
	value float64
	text  string
}

func barChart(bars []bar, width int) string {
	t := theme.Current.Theme

	maxValue := 0.0
	labelWidth := 0
	for _, b := range bars {
		if b.value > maxValue {
			maxValue = b.value
		}
		if len(b.label) > labelWidth {
			labelWidth = len(b.label)
		}
	}
	if maxValue == 0 {
		maxValue = 1
	}

	barMaxWidth := 30
	if width > 0 {
		barMaxWidth = width - labelWidth - 14
	}
	if barMaxWidth < 5 {
		barMaxWidth = 5
	}

	barStyle := lipgloss.NewStyle().Foreground(t.Info)
	var lines []string
	for _, b := range bars {
		n := int(b.value / maxValue * float64(barMaxWidth))
		if n < 1 && b.value > 0 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%-*s %s %s", labelWidth, b.label,
			barStyle.Render(strings.Repeat("█", n)), b.text))
	}
	return strings.Join(lines, "\n")
}

func formatSeconds(secs int64) string {
	if secs <= 0 {
		return "0m"
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

func percent(r float64) string {
	return fmt.Sprintf("%.0f%%", r*100)
}
