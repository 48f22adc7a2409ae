package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/bot"
	"vespers/internal/config"
	"vespers/internal/service"
)

func newBotCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram companion bot",
		Long: `Serve the configured Telegram chat until interrupted. The bot accepts task,
timer, word and outline commands and sends a daily report at telegram.report_time
(and every telegram.report_interval when set).`,
		Args: cobra.NoArgs,
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, _ []string) error {
			cfg := ws.Config.Telegram
			if err := ws.Config.RequireTelegram(); err != nil {
				return err
			}

			telegramBot, err := bot.New(cfg.Token, cfg.ChatID, ws, ws.Logger.Logger)
			if err != nil {
				return err
			}

			scheduler := service.NewSchedulerService(time.Local, ws.Logger.Logger)
			if _, err := scheduleReports(scheduler, cfg, ws.Clock.Now(), telegramBot.QueueReport, ws.Logger.Logger); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			ws.Logger.Info("vespers bot started", "chat", cfg.ChatID)
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot stopped: %w", err)
			}
			ws.Logger.Info("bot shut down")
			return nil
		}),
	}
}

// scheduleReports registers the daily and interval report jobs and returns the
// first daily report time after now, or the zero time when none is configured.
func scheduleReports(scheduler *service.SchedulerService, cfg config.TelegramConfig, now time.Time, job func(), logger *slog.Logger) (time.Time, error) {
	var next time.Time
	if cfg.ReportTime != "" {
		id, err := scheduler.ScheduleDaily(cfg.ReportTime, job)
		if err != nil {
			return time.Time{}, fmt.Errorf("schedule daily report: %w", err)
		}
		next = scheduler.Next(id, now)
		logger.Info("daily report scheduled", "at", cfg.ReportTime, "next", next.Format(time.DateTime))
	}
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, job); err != nil {
			return time.Time{}, fmt.Errorf("schedule reports: %w", err)
		}
		logger.Info("periodic report scheduled", "every", cfg.ReportInterval)
	}
	return next, nil
}
