package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/apperr"
	"vespers/internal/model"
	"vespers/internal/service"
)

func newTaskCommand(e *env) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var nodeID uint
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			var node *uint
			if cmd.Flags().Changed("node") {
				node = &nodeID
			}
			task, err := ws.Tasks.CreateTask(ctx, strings.Join(args, " "), node)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s\n", task.ID, task.Title)
			return nil
		}),
	}
	addCmd.Flags().UintVar(&nodeID, "node", 0, "outline node the task belongs to")

	var (
		all      bool
		listNode uint
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List open tasks",
		Args:  cobra.NoArgs,
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, _ []string) error {
			var tasks []model.Task
			var err error
			switch {
			case cmd.Flags().Changed("node"):
				tasks, err = ws.Tasks.ListForNode(ctx, listNode)
			case all:
				tasks, err = ws.Tasks.List(ctx, nil)
			default:
				tasks, err = ws.Tasks.ListActive(ctx)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}
			for _, task := range tasks {
				fmt.Fprintln(out, taskLine(task))
			}
			return nil
		}),
	}
	listCmd.Flags().BoolVarP(&all, "all", "a", false, "include done tasks")
	listCmd.Flags().UintVar(&listNode, "node", 0, "only tasks attached to this outline node")

	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := ws.Tasks.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), taskLine(*task))
			return nil
		}),
	}

	reopenCmd := &cobra.Command{
		Use:   "reopen <id>",
		Short: "Return a done task to pending",
		Args:  cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := ws.Tasks.Reopen(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), taskLine(*task))
			return nil
		}),
	}

	var minutes int
	startCmd := &cobra.Command{
		Use:   "start [id]",
		Short: "Run a pomodoro in the foreground",
		Long: `Run one pomodoro, optionally for a task, and wait for it to finish.
Interrupting the command (Ctrl-C) records the pomodoro as interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			var taskID *uint
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				taskID = &id
			}
			if minutes < 0 {
				return apperr.MalformedInput("cmd.task_start", "minutes must not be negative")
			}
			return e.runPomodoro(ctx, cmd.OutOrStdout(), ws, taskID, time.Duration(minutes)*time.Minute)
		}),
	}
	startCmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "focus length in minutes (default from config)")

	taskCmd.AddCommand(addCmd, listCmd, doneCmd, reopenCmd, startCmd)
	return taskCmd
}

// runPomodoro drives the timer until it goes quiet or ctx ends. Leaving early
// returns nil; closing the workspace records the pomodoro as interrupted.
func (e *env) runPomodoro(ctx context.Context, out io.Writer, ws *app.Workspace, taskID *uint, planned time.Duration) error {
	session, err := ws.Timer.Start(ctx, taskID, planned)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "🍅 Focus for %s\n", formatMinutes(session.Planned))

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for ws.Timer.Active() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "⏹ Interrupted")
			return nil
		case <-ticker.C:
			fired, err := ws.Timer.Advance(ctx)
			for _, event := range fired {
				if text := eventText(event, ws.Timer.Remaining()); text != "" {
					fmt.Fprintln(out, text)
				}
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func eventText(event service.TimerEvent, remaining time.Duration) string {
	switch event {
	case service.EventComplete:
		return "✅ Pomodoro complete"
	case service.EventStartBreak:
		return fmt.Sprintf("☕ Break for %s", formatMinutes(remaining))
	case service.EventEndBreak:
		return "🔔 Break over"
	}
	return ""
}

func taskLine(task model.Task) string {
	mark := "[ ]"
	switch task.Status {
	case model.StatusDone:
		mark = "[x]"
	case model.StatusInProgress:
		mark = "[~]"
	}
	return fmt.Sprintf("%s #%d %s", mark, task.ID, task.Title)
}

func formatMinutes(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d.Round(time.Second)/time.Minute))
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, apperr.MalformedInput("cmd.parse_id", "%q is not a valid id", raw)
	}
	return uint(value), nil
}
