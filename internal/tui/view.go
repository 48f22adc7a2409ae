package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vespers/internal/dashboard"
	"vespers/internal/model"
	"vespers/internal/service"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Underline(true)
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Strikethrough(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	noteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
)

var timerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#444444")).
	Padding(0, 1)

func (a *App) View() string {
	sections := []string{
		lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("✦ VESPERS"), "   ", a.renderTabs()),
		a.renderTimer(),
	}
	switch a.tab {
	case tabTasks:
		sections = append(sections, a.renderTasks())
	default:
		sections = append(sections, dashboard.Render(a.snap, dashboard.Options{
			Width:    a.width,
			Now:      a.ws.Clock.Now(),
			WordGoal: a.ws.Config.Dashboard.WordGoal,
		}))
	}
	if a.mode != modeNormal {
		sections = append(sections, a.input.View())
	}
	if a.status != "" {
		style := statusStyle
		if a.failed {
			style = errorStyle
		}
		sections = append(sections, style.Render(a.status))
	}
	sections = append(sections, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func (a *App) renderTabs() string {
	names := []string{"Dashboard", "Tasks"}
	rendered := make([]string, len(names))
	for i, name := range names {
		if tab(i) == a.tab {
			rendered[i] = activeTabStyle.Render(name)
		} else {
			rendered[i] = tabStyle.Render(name)
		}
	}
	return strings.Join(rendered, "  ")
}

func (a *App) renderTimer() string {
	snap := a.ws.Timer.Snapshot()
	var line string
	switch snap.State {
	case service.TimerIdle:
		line = "🍅 Idle · press s to focus"
	case service.TimerRunning, service.TimerPaused:
		line = fmt.Sprintf("🍅 %s %s left", snap.State, formatClock(snap.Remaining))
		if title := a.sessionTask(snap); title != "" {
			line += fmt.Sprintf(" · %s", title)
		}
	case service.TimerFinished:
		line = fmt.Sprintf("✅ Finished %s · b to skip the break", formatClock(snap.Elapsed))
	case service.TimerBreak:
		line = fmt.Sprintf("☕ Break %s left", formatClock(snap.Remaining))
	}
	return timerStyle.Render(line)
}

func (a *App) sessionTask(snap service.TimerSnapshot) string {
	if snap.Session == nil || snap.Session.TaskID == nil {
		return ""
	}
	for _, task := range a.tasks {
		if task.ID == *snap.Session.TaskID {
			return task.Title
		}
	}
	return ""
}

func (a *App) renderTasks() string {
	if len(a.tasks) == 0 {
		return noteStyle.Render("No tasks yet. Press a to add one.")
	}
	rows := make([]string, 0, len(a.tasks))
	for i, task := range a.tasks {
		prefix := "  "
		if i == a.cursor {
			prefix = cursorStyle.Render("> ")
		}
		rows = append(rows, prefix+renderTask(task))
	}
	return strings.Join(rows, "\n")
}

func renderTask(task model.Task) string {
	switch task.Status {
	case model.StatusDone:
		return doneStyle.Render(fmt.Sprintf("[x] #%d %s", task.ID, task.Title))
	case model.StatusInProgress:
		return fmt.Sprintf("[~] #%d %s", task.ID, task.Title)
	default:
		return fmt.Sprintf("[ ] #%d %s", task.ID, task.Title)
	}
}
