package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/apperr"
	"vespers/internal/dashboard"
	"vespers/internal/metrics"
)

type statsOutput struct {
	From                 string  `json:"from"`
	To                   string  `json:"to"`
	TasksCreated         int     `json:"tasks_created"`
	TasksCompleted       int     `json:"tasks_completed"`
	CompletionRate       float64 `json:"completion_rate"`
	FocusedMinutes       int     `json:"focused_minutes"`
	PomodorosCompleted   int     `json:"pomodoros_completed"`
	PomodorosInterrupted int     `json:"pomodoros_interrupted"`
	PomodorosCancelled   int     `json:"pomodoros_cancelled"`
	CurrentStreak        int     `json:"current_streak"`
	WordsWritten         int     `json:"words_written"`
}

func newStatsCommand(e *env) *cobra.Command {
	var (
		days   int
		asJSON bool
		width  int
	)
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show productivity figures",
		Long: `Print the dashboard for the last days (dashboard.days from the config unless
--days is given), or the raw figures with --json.`,
		Args: cobra.NoArgs,
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = ws.Config.Dashboard.Days
			}
			if days <= 0 {
				return apperr.MalformedInput("cmd.stats", "--days must be positive, got %d", days)
			}
			snap, err := ws.Reports.LastDays(ctx, days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(toStatsOutput(snap))
			}
			fmt.Fprintln(out, dashboard.Render(snap, dashboard.Options{
				Width:    width,
				Now:      ws.Clock.Now(),
				WordGoal: ws.Config.Dashboard.WordGoal,
			}))
			return nil
		}),
	}
	statsCmd.Flags().IntVarP(&days, "days", "d", 0, "number of days to include")
	statsCmd.Flags().BoolVar(&asJSON, "json", false, "print figures as JSON")
	statsCmd.Flags().IntVar(&width, "width", 80, "render width")
	return statsCmd
}

func toStatsOutput(snap metrics.Snapshot) statsOutput {
	return statsOutput{
		From:                 snap.Window.Start.Format("2006-01-02"),
		To:                   snap.Window.End.AddDate(0, 0, -1).Format("2006-01-02"),
		TasksCreated:         snap.TasksCreated,
		TasksCompleted:       snap.TasksCompleted,
		CompletionRate:       snap.CompletionRate,
		FocusedMinutes:       snap.FocusedMinutes,
		PomodorosCompleted:   snap.PomodorosCompleted,
		PomodorosInterrupted: snap.PomodorosInterrupted,
		PomodorosCancelled:   snap.PomodorosCancelled,
		CurrentStreak:        snap.CurrentStreak,
		WordsWritten:         snap.WordsWritten,
	}
}
