// Package dashboard renders a metrics snapshot as terminal panels.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vespers/internal/metrics"
)

const (
	taskUnits      = 16
	wordBoxes      = 20
	outlineLimit   = 15
	activityLimit  = 6
	minColumnWidth = 64
	defaultWidth   = 80
	defaultGoal    = 2000

	filled = "■"
	empty  = "·"
)

var (
	tasksColor    = lipgloss.Color("#FF8C00")
	wordsColor    = lipgloss.Color("#00BFFF")
	outlineColor  = lipgloss.Color("#7FFF00")
	activityColor = lipgloss.Color("#BA55D3")
	frameColor    = lipgloss.Color("#5FD7D7")
	dimColor      = lipgloss.Color("#808080")

	dimStyle  = lipgloss.NewStyle().Foreground(dimColor)
	noteStyle = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
)

// Options controls layout. Zero values fall back to defaults.
type Options struct {
	Width    int
	Now      time.Time
	WordGoal int
}

// Render draws snap. It never mutates its input and returns the same text for the
// same arguments.
func Render(snap metrics.Snapshot, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.WordGoal <= 0 {
		opts.WordGoal = defaultGoal
	}
	if opts.Now.IsZero() {
		opts.Now = snap.Window.End
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Padding(1, 2)

	if !snap.HasData() {
		title := boldStyle.Foreground(frameColor).Render("Productivity")
		return frame.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", noteStyle.Render("No productivity data yet.")))
	}

	header := renderHeadline(snap)
	var body string
	if opts.Width >= 2*minColumnWidth+6 {
		colWidth := (opts.Width - 6) / 2
		left := lipgloss.JoinVertical(lipgloss.Left, tasksPanel(snap, colWidth), wordsPanel(snap, opts.WordGoal, colWidth))
		right := lipgloss.JoinVertical(lipgloss.Left, outlinePanel(snap, colWidth), activityPanel(snap, opts.Now, colWidth))
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	} else {
		colWidth := max(minColumnWidth, opts.Width-6)
		body = lipgloss.JoinVertical(lipgloss.Left,
			tasksPanel(snap, colWidth),
			wordsPanel(snap, opts.WordGoal, colWidth),
			outlinePanel(snap, colWidth),
			activityPanel(snap, opts.Now, colWidth),
		)
	}
	title := boldStyle.Foreground(frameColor).Render("Progress Overview")
	return frame.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, title, header, "", body))
}

func renderHeadline(snap metrics.Snapshot) string {
	parts := []string{
		fmt.Sprintf("🔥 %d day streak", snap.CurrentStreak),
		fmt.Sprintf("🍅 %d pomodoros", snap.PomodorosCompleted),
		fmt.Sprintf("⏱ %d min focused", snap.FocusedMinutes),
		fmt.Sprintf("📈 %.0f%% completion", snap.CompletionRate*100),
	}
	return dimStyle.Render(strings.Join(parts, "  ·  "))
}

func panel(title string, color lipgloss.TerminalColor, width int, body string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, boldStyle.Foreground(color).Render(title), body))
}

func tasksPanel(snap metrics.Snapshot, width int) string {
	if snap.TasksCompleted == 0 {
		return panel("Tasks", tasksColor, width, noteStyle.Render("No tasks have been completed yet."))
	}
	rows := []string{
		boldStyle.Render(fmt.Sprintf("🍅 Tasks Completed: %d", snap.TasksCompleted)),
		"",
		dimStyle.Render(fmt.Sprintf("%-6s %5s  %s", "Date", "Tasks", "Units Completed")),
	}
	for _, day := range snap.DailyCompletions {
		if day.Count == 0 {
			continue
		}
		rows = append(rows, fmt.Sprintf("%-6s %5d  %s", day.Date.Format("Jan 02"), day.Count, Units(day.Count, taskUnits, tasksColor)))
	}
	return panel("Tasks", tasksColor, width, strings.Join(rows, "\n"))
}

func wordsPanel(snap metrics.Snapshot, goal, width int) string {
	if snap.WordsWritten == 0 {
		return panel("Words", wordsColor, width, noteStyle.Render("No writing data recorded yet."))
	}
	perBox := max(1, goal/wordBoxes)
	rows := []string{
		boldStyle.Render(fmt.Sprintf("✍️ Words Written: %s", metrics.Thousands(snap.WordsWritten))),
		"",
		dimStyle.Render(fmt.Sprintf("%-6s %6s  %s", "Date", "Words", "Progress")),
	}
	for _, day := range snap.DailyWords {
		if day.Count == 0 {
			continue
		}
		rows = append(rows, fmt.Sprintf("%-6s %6s  %s", day.Date.Format("Jan 02"), metrics.Thousands(day.Count), Units(day.Count/perBox, wordBoxes, wordsColor)))
	}
	return panel("Words", wordsColor, width, strings.Join(rows, "\n"))
}

func outlinePanel(snap metrics.Snapshot, width int) string {
	if len(snap.Outline) == 0 {
		return panel("Outline", outlineColor, width, noteStyle.Render("No outline progress recorded yet."))
	}
	rows := []string{
		boldStyle.Render("🗂 Outline Progress"),
		dimStyle.Render("Tracking parent storyline progress"),
		"",
	}
	for i, parent := range snap.Outline {
		if i == outlineLimit {
			break
		}
		rows = append(rows, fmt.Sprintf("%-18s %3d %3d  %s", truncate(parent.Title, 18), parent.Total, parent.Done, Progress(parent.Total, parent.Done)))
	}
	return panel("Outline", outlineColor, width, strings.Join(rows, "\n"))
}

func activityPanel(snap metrics.Snapshot, now time.Time, width int) string {
	if len(snap.RecentActivity) == 0 {
		return panel("Recent", activityColor, width, noteStyle.Render("No recent activity logged."))
	}
	rows := []string{boldStyle.Render("🔔 Recent Activity")}
	for i, entry := range snap.RecentActivity {
		if i == activityLimit {
			break
		}
		rows = append(rows, fmt.Sprintf("• %s (%s)", entry.Description, entry.Ago(now)))
	}
	return panel("Recent", activityColor, width, strings.Join(rows, "\n"))
}

// Units draws total slots with the first n filled, followed by "+" when n overflows.
func Units(n, total int, color lipgloss.TerminalColor) string {
	on := lipgloss.NewStyle().Bold(true).Foreground(color)
	done := min(total, max(0, n))
	boxes := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if i < done {
			boxes = append(boxes, on.Render(filled))
		} else {
			boxes = append(boxes, dimStyle.Render(empty))
		}
	}
	out := strings.Join(boxes, " ")
	if n > total {
		out += on.Render(" +")
	}
	return out
}

// Progress draws one box per outline node, completed ones filled.
func Progress(total, done int) string {
	if total <= 0 {
		return dimStyle.Render("-")
	}
	return Units(done, total, outlineColor)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
