package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"vespers/internal/apperr"
	"vespers/internal/metrics"
	"vespers/internal/model"
	"vespers/internal/repository"
)

// ReportService loads history and builds metrics snapshots and daily summaries.
type ReportService struct {
	taskRepo    *repository.TaskRepository
	sessionRepo *repository.SessionRepository
	wordRepo    *repository.WordRepository
	outlineRepo *repository.OutlineRepository
	clock       Clock
}

func NewReportService(taskRepo *repository.TaskRepository, sessionRepo *repository.SessionRepository, wordRepo *repository.WordRepository, outlineRepo *repository.OutlineRepository, clock Clock) *ReportService {
	if clock == nil {
		clock = SystemClock
	}
	return &ReportService{
		taskRepo:    taskRepo,
		sessionRepo: sessionRepo,
		wordRepo:    wordRepo,
		outlineRepo: outlineRepo,
		clock:       clock,
	}
}

// History loads the full history used by the aggregator.
func (s *ReportService) History(ctx context.Context, window metrics.Window) (metrics.Input, error) {
	const op = "report.history"
	tasks, err := s.taskRepo.List(ctx, nil)
	if err != nil {
		return metrics.Input{}, apperr.Internal(op, err)
	}
	sessions, err := s.sessionRepo.ListAll(ctx)
	if err != nil {
		return metrics.Input{}, apperr.Internal(op, err)
	}
	words, err := s.wordRepo.ListAll(ctx)
	if err != nil {
		return metrics.Input{}, apperr.Internal(op, err)
	}
	nodes, err := s.outlineRepo.ListAll(ctx)
	if err != nil {
		return metrics.Input{}, apperr.Internal(op, err)
	}
	return metrics.Input{
		Window:   window,
		Now:      s.clock.Now(),
		Tasks:    tasks,
		Sessions: sessions,
		Words:    words,
		Outline:  nodes,
	}, nil
}

// Snapshot computes metrics for window from the current history.
func (s *ReportService) Snapshot(ctx context.Context, window metrics.Window) (metrics.Snapshot, error) {
	in, err := s.History(ctx, window)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return metrics.Compute(in), nil
}

// LastDays computes metrics for the n days ending today.
func (s *ReportService) LastDays(ctx context.Context, n int) (metrics.Snapshot, error) {
	return s.Snapshot(ctx, metrics.LastDays(s.clock.Now(), n))
}

// DailySummary renders today's figures and the open tasks as Telegram HTML.
func (s *ReportService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	snap, err := s.Snapshot(ctx, metrics.DayWindow(now))
	if err != nil {
		return "", err
	}
	tasks, err := s.taskRepo.List(ctx, nil)
	if err != nil {
		return "", apperr.Internal("report.daily", err)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))
	builder.WriteString(FormatSnapshot(snap))

	builder.WriteString("\n🔥 <b>Open tasks</b>\n")
	open := 0
	for _, task := range tasks {
		if task.IsDone() {
			continue
		}
		open++
		builder.WriteString(FormatTask(task, now))
	}
	if open == 0 {
		builder.WriteString("· nothing open\n")
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatSnapshot renders the headline figures as Telegram HTML lines.
func FormatSnapshot(snap metrics.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ Tasks completed: <b>%d</b>\n", snap.TasksCompleted))
	sb.WriteString(fmt.Sprintf("🍅 Pomodoros: <b>%d</b> completed, %d interrupted\n", snap.PomodorosCompleted, snap.PomodorosInterrupted))
	sb.WriteString(fmt.Sprintf("⏱ Focused: <b>%d min</b>\n", snap.FocusedMinutes))
	sb.WriteString(fmt.Sprintf("✍️ Words: <b>%s</b>\n", metrics.Thousands(snap.WordsWritten)))
	sb.WriteString(fmt.Sprintf("📈 Completion rate: <b>%.0f%%</b>\n", snap.CompletionRate*100))
	sb.WriteString(fmt.Sprintf("🔥 Streak: <b>%d</b> day(s)\n", snap.CurrentStreak))
	return sb.String()
}

// FormatTask renders one open task as a Telegram HTML line ending in a newline.
func FormatTask(task model.Task, now time.Time) string {
	icon := "🟢"
	if task.Status == model.StatusInProgress {
		icon = "⏳"
	}
	age := metrics.Ago(now, task.CreatedAt)
	title := html.EscapeString(strings.TrimSpace(task.Title))
	return fmt.Sprintf("%s <b>#%d</b> %s <i>(added %s)</i>\n", icon, task.ID, title, age)
}
