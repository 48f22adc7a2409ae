// Package app wires configuration, storage and services into one Workspace that the
// CLI, the terminal UI and the bot share.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"vespers/internal/config"
	"vespers/internal/logging"
	"vespers/internal/metrics"
	"vespers/internal/repository"
	"vespers/internal/seed"
	"vespers/internal/service"
)

// Workspace is the application context. It is built once per process and passed
// explicitly; it is not safe for concurrent use.
type Workspace struct {
	Config config.Config
	Logger *logging.Logger
	Clock  service.Clock

	Tasks   *service.TaskService
	Timer   *service.PomodoroTimer
	Outline *service.OutlineService
	Words   *service.WordService
	Reports *service.ReportService

	db       *gorm.DB
	taskRepo *repository.TaskRepository
}

type options struct {
	clock      service.Clock
	skipImport bool
}

// Option customizes Open.
type Option func(*options)

// WithClock replaces the system clock, mainly for tests.
func WithClock(clock service.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithoutImport skips loading the configured data file.
func WithoutImport() Option {
	return func(o *options) { o.skipImport = true }
}

// Open connects to the database, finalizes sessions a previous run left open, and
// seeds tasks from the configured data file.
func Open(ctx context.Context, cfg config.Config, logger *logging.Logger, opts ...Option) (*Workspace, error) {
	o := options{clock: service.SystemClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if logger == nil {
		logger = logging.Nop()
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger.Writer())
	if err != nil {
		return nil, err
	}

	taskRepo := repository.NewTaskRepository(db)
	outlineRepo := repository.NewOutlineRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	wordRepo := repository.NewWordRepository(db)

	ws := &Workspace{
		Config:   cfg,
		Logger:   logger,
		Clock:    o.clock,
		Tasks:    service.NewTaskService(taskRepo, outlineRepo, o.clock),
		Timer:    service.NewPomodoroTimer(sessionRepo, taskRepo, o.clock, TimerSettings(cfg.Timer)),
		Outline:  service.NewOutlineService(outlineRepo),
		Words:    service.NewWordService(wordRepo, outlineRepo, o.clock),
		Reports:  service.NewReportService(taskRepo, sessionRepo, wordRepo, outlineRepo, o.clock),
		db:       db,
		taskRepo: taskRepo,
	}

	recovered, err := ws.Timer.Recover(ctx)
	if err != nil {
		ws.closeDB()
		return nil, err
	}
	if recovered > 0 {
		logger.Info("finalized sessions left open by a previous run", "count", recovered)
	}

	if cfg.DataFile != "" && !o.skipImport {
		n, err := ws.ImportFile(ctx, cfg.DataFile, false)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Debug("data file not found, skipping import", "path", cfg.DataFile)
		case err != nil:
			ws.closeDB()
			return nil, fmt.Errorf("import %s: %w", cfg.DataFile, err)
		case n > 0:
			logger.Info("imported tasks", "path", cfg.DataFile, "count", n)
		}
	}
	return ws, nil
}

// TimerSettings converts the timer configuration.
func TimerSettings(c config.TimerConfig) service.TimerSettings {
	return service.TimerSettings{
		Focus:          c.Focus,
		ShortBreak:     c.ShortBreak,
		LongBreak:      c.LongBreak,
		LongBreakEvery: c.LongBreakEvery,
		AutoBreak:      c.AutoBreak,
	}
}

// ImportFile loads tasks from a data file. With overwrite set, records replace
// stored tasks with the same id; otherwise only unknown ids are inserted. Outline
// links of stored tasks are kept since the file does not carry them. Nothing is
// written unless every record is valid.
func (w *Workspace) ImportFile(ctx context.Context, path string, overwrite bool) (int, error) {
	tasks, err := seed.Load(path)
	if err != nil {
		return 0, err
	}
	existing, err := w.taskRepo.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	stored := make(map[uint]bool, len(existing))
	links := make(map[uint]*uint, len(existing))
	for _, task := range existing {
		stored[task.ID] = true
		links[task.ID] = task.OutlineNodeID
	}

	toSave := tasks[:0]
	for _, task := range tasks {
		if stored[task.ID] {
			if !overwrite {
				continue
			}
			task.OutlineNodeID = links[task.ID]
		}
		toSave = append(toSave, task)
	}
	if len(toSave) == 0 {
		return 0, nil
	}
	if err := w.taskRepo.SaveAll(ctx, toSave); err != nil {
		return 0, err
	}
	return len(toSave), nil
}

// ExportFile writes every task to path.
func (w *Workspace) ExportFile(ctx context.Context, path string) (int, error) {
	tasks, err := w.Tasks.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := seed.Save(path, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// Snapshot computes the dashboard metrics over the configured number of days.
func (w *Workspace) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	return w.Reports.LastDays(ctx, w.Config.Dashboard.Days)
}

// Close interrupts an unfinished pomodoro, writes the data file back when configured,
// and closes the database.
func (w *Workspace) Close(ctx context.Context) error {
	var errs []error
	switch w.Timer.State() {
	case service.TimerRunning, service.TimerPaused:
		if _, err := w.Timer.Interrupt(ctx); err != nil {
			errs = append(errs, fmt.Errorf("interrupt timer: %w", err))
		}
	}
	if w.Config.WriteBack && w.Config.DataFile != "" {
		if n, err := w.ExportFile(ctx, w.Config.DataFile); err != nil {
			errs = append(errs, fmt.Errorf("write back %s: %w", w.Config.DataFile, err))
		} else {
			w.Logger.Info("wrote tasks back", "path", w.Config.DataFile, "count", n)
		}
	}
	if err := w.closeDB(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Workspace) closeDB() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
