// Package tui is the interactive terminal front end. It follows the bubbletea model:
// every workspace mutation happens inside Update, on the program's single event loop.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"vespers/internal/app"
	"vespers/internal/apperr"
	"vespers/internal/metrics"
	"vespers/internal/model"
	"vespers/internal/service"
)

type tab int

const (
	tabDashboard tab = iota
	tabTasks
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeAddTask
	modeLogWords
)

const tickInterval = time.Second

// tickMsg drives the timer while it is running or on a break.
type tickMsg time.Time

// App is the root model.
type App struct {
	ctx   context.Context
	ws    *app.Workspace
	keys  keyMap
	help  help.Model
	input textinput.Model

	tab     tab
	mode    inputMode
	tasks   []model.Task
	cursor  int
	snap    metrics.Snapshot
	status  string
	failed  bool
	ticking bool

	width  int
	height int
}

// New builds the model and loads the initial data.
func New(ctx context.Context, ws *app.Workspace) *App {
	input := textinput.New()
	input.CharLimit = 200
	input.Width = 48

	a := &App{
		ctx:   ctx,
		ws:    ws,
		keys:  defaultKeyMap(),
		help:  help.New(),
		input: input,
		tab:   tabDashboard,
	}
	a.refresh()
	return a
}

// Run starts the program and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ws *app.Workspace) error {
	program := tea.NewProgram(New(ctx, ws), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return a.ensureTick()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case tickMsg:
		a.ticking = false
		fired, err := a.ws.Timer.Advance(a.ctx)
		if err != nil {
			a.fail(err)
		} else if len(fired) > 0 {
			a.announce(fired)
		}
		a.refresh()
		return a, a.ensureTick()

	case tea.KeyMsg:
		if a.mode != modeNormal {
			return a.updateInput(msg)
		}
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Tab):
		if a.tab == tabDashboard {
			a.tab = tabTasks
		} else {
			a.tab = tabDashboard
		}
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.tasks)-1 {
			a.cursor++
		}
	case key.Matches(msg, a.keys.Add):
		a.openInput(modeAddTask, "Task title")
	case key.Matches(msg, a.keys.Words):
		a.openInput(modeLogWords, "Words written")
	case key.Matches(msg, a.keys.Done):
		if task, ok := a.selected(); ok {
			if _, err := a.ws.Tasks.CompleteTask(a.ctx, task.ID); err != nil {
				a.fail(err)
			} else {
				a.notify(fmt.Sprintf("Completed '%s'", task.Title))
			}
		}
	case key.Matches(msg, a.keys.Reopen):
		if task, ok := a.selected(); ok {
			if _, err := a.ws.Tasks.Reopen(a.ctx, task.ID); err != nil {
				a.fail(err)
			} else {
				a.notify(fmt.Sprintf("Reopened '%s'", task.Title))
			}
		}
	case key.Matches(msg, a.keys.Start):
		return a, a.startTimer()
	case key.Matches(msg, a.keys.Pause):
		return a, a.togglePause()
	case key.Matches(msg, a.keys.Interrupt):
		if _, err := a.ws.Timer.Interrupt(a.ctx); err != nil {
			a.fail(err)
		} else {
			a.notify("Pomodoro interrupted")
		}
	case key.Matches(msg, a.keys.Cancel):
		if _, err := a.ws.Timer.Cancel(a.ctx); err != nil {
			a.fail(err)
		} else {
			a.notify("Pomodoro cancelled")
		}
	case key.Matches(msg, a.keys.SkipBreak):
		a.skipBreak()
	default:
		return a, nil
	}
	a.refresh()
	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.closeInput()
		return a, nil
	case tea.KeyEnter:
		value := a.input.Value()
		mode := a.mode
		a.closeInput()
		a.submit(mode, value)
		a.refresh()
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submit(mode inputMode, value string) {
	switch mode {
	case modeAddTask:
		task, err := a.ws.Tasks.CreateTask(a.ctx, value, nil)
		if err != nil {
			a.fail(err)
			return
		}
		a.notify(fmt.Sprintf("Added task #%d", task.ID))
	case modeLogWords:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			a.fail(apperr.MalformedInput("words.log", "%q is not a number", value))
			return
		}
		if _, err := a.ws.Words.Log(a.ctx, n, nil); err != nil {
			a.fail(err)
			return
		}
		a.notify(fmt.Sprintf("Logged %s words", metrics.Thousands(n)))
	}
}

func (a *App) startTimer() tea.Cmd {
	var taskID *uint
	if a.tab == tabTasks {
		if task, ok := a.selected(); ok {
			id := task.ID
			taskID = &id
		}
	}
	if _, err := a.ws.Timer.Start(a.ctx, taskID, 0); err != nil {
		a.fail(err)
		return nil
	}
	a.notify(fmt.Sprintf("Focus for %s", formatClock(a.ws.Timer.Remaining())))
	a.refresh()
	return a.ensureTick()
}

func (a *App) togglePause() tea.Cmd {
	var err error
	if a.ws.Timer.State() == service.TimerPaused {
		err = a.ws.Timer.Resume()
	} else {
		err = a.ws.Timer.Pause()
	}
	if err != nil {
		a.fail(err)
		return nil
	}
	a.notify(fmt.Sprintf("Timer %s", a.ws.Timer.State()))
	return a.ensureTick()
}

func (a *App) skipBreak() {
	var err error
	switch a.ws.Timer.State() {
	case service.TimerBreak:
		_, err = a.ws.Timer.Interrupt(a.ctx)
	default:
		err = a.ws.Timer.SkipBreak()
	}
	if err != nil {
		a.fail(err)
		return
	}
	a.notify("Break skipped")
}

// ensureTick schedules the next tick unless one is already pending or the timer has
// nothing to count. Leaving the running and break states lets the tick lapse.
func (a *App) ensureTick() tea.Cmd {
	if a.ticking || !a.ws.Timer.Active() {
		return nil
	}
	a.ticking = true
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) announce(fired []service.TimerEvent) {
	switch fired[len(fired)-1] {
	case service.EventComplete:
		a.notify("Pomodoro complete. Press b to skip the break or s to start another.")
	case service.EventStartBreak:
		a.notify(fmt.Sprintf("Pomodoro complete. Break for %s.", formatClock(a.ws.Timer.Remaining())))
	case service.EventEndBreak:
		a.notify("Break over. Press s to focus again.")
	}
}

func (a *App) openInput(mode inputMode, placeholder string) {
	a.mode = mode
	a.input.Reset()
	a.input.Placeholder = placeholder
	a.input.Focus()
}

func (a *App) closeInput() {
	a.mode = modeNormal
	a.input.Blur()
	a.input.Reset()
}

func (a *App) selected() (model.Task, bool) {
	if a.tab != tabTasks || len(a.tasks) == 0 {
		return model.Task{}, false
	}
	return a.tasks[a.cursor], true
}

func (a *App) refresh() {
	tasks, err := a.ws.Tasks.List(a.ctx, nil)
	if err != nil {
		a.fail(err)
		return
	}
	a.tasks = tasks
	if a.cursor >= len(a.tasks) {
		a.cursor = max(0, len(a.tasks)-1)
	}
	snap, err := a.ws.Snapshot(a.ctx)
	if err != nil {
		a.fail(err)
		return
	}
	a.snap = snap
}

func (a *App) notify(msg string) {
	a.status = msg
	a.failed = false
}

func (a *App) fail(err error) {
	a.status = apperr.Message(err)
	a.failed = true
	if !apperr.IsUserFacing(err) {
		a.ws.Logger.Error("tui action failed", "err", err)
	}
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
