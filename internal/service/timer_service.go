package service

import (
	"context"
	"fmt"
	"time"

	"vespers/internal/apperr"
	"vespers/internal/model"
	"vespers/internal/repository"
)

// TimerState is a state of the pomodoro state machine.
type TimerState string

const (
	TimerIdle     TimerState = "idle"
	TimerRunning  TimerState = "running"
	TimerPaused   TimerState = "paused"
	TimerFinished TimerState = "finished"
	TimerBreak    TimerState = "break_running"
)

// TimerEvent names an input to the state machine.
type TimerEvent string

const (
	EventStart      TimerEvent = "start"
	EventPause      TimerEvent = "pause"
	EventResume     TimerEvent = "resume"
	EventComplete   TimerEvent = "complete"
	EventInterrupt  TimerEvent = "interrupt"
	EventCancel     TimerEvent = "cancel"
	EventStartBreak TimerEvent = "start_break"
	EventSkipBreak  TimerEvent = "skip_break"
	EventEndBreak   TimerEvent = "end_break"
)

// Transitions lists every allowed edge: event -> source state -> target state.
// Anything absent is rejected with an InvalidState error.
var Transitions = map[TimerEvent]map[TimerState]TimerState{
	EventStart:      {TimerIdle: TimerRunning},
	EventPause:      {TimerRunning: TimerPaused},
	EventResume:     {TimerPaused: TimerRunning},
	EventComplete:   {TimerRunning: TimerFinished},
	EventInterrupt:  {TimerRunning: TimerIdle, TimerPaused: TimerIdle, TimerFinished: TimerIdle, TimerBreak: TimerIdle},
	EventCancel:     {TimerRunning: TimerIdle, TimerPaused: TimerIdle},
	EventStartBreak: {TimerFinished: TimerBreak},
	EventSkipBreak:  {TimerFinished: TimerIdle},
	EventEndBreak:   {TimerBreak: TimerIdle},
}

// TimerSettings holds the configured interval lengths.
type TimerSettings struct {
	Focus          time.Duration
	ShortBreak     time.Duration
	LongBreak      time.Duration
	LongBreakEvery int
	AutoBreak      bool
}

// TimerSnapshot is a read-only view of the timer for presentation.
type TimerSnapshot struct {
	State     TimerState
	Session   *model.PomodoroSession
	Elapsed   time.Duration
	Remaining time.Duration
	Planned   time.Duration
	Break     time.Duration
}

// PomodoroTimer tracks one focus interval at a time. It is not safe for concurrent
// use; callers drive it from a single event loop. Elapsed time is derived from stored
// timestamps, so nothing here sleeps or polls.
type PomodoroTimer struct {
	sessions *repository.SessionRepository
	tasks    *repository.TaskRepository
	clock    Clock
	settings TimerSettings

	state        TimerState
	session      *model.PomodoroSession
	pausedAt     time.Time
	pausedTotal  time.Duration
	breakStarted time.Time
	breakLength  time.Duration
}

func NewPomodoroTimer(sessions *repository.SessionRepository, tasks *repository.TaskRepository, clock Clock, settings TimerSettings) *PomodoroTimer {
	if clock == nil {
		clock = SystemClock
	}
	return &PomodoroTimer{
		sessions: sessions,
		tasks:    tasks,
		clock:    clock,
		settings: settings,
		state:    TimerIdle,
	}
}

// State returns the current state.
func (t *PomodoroTimer) State() TimerState {
	return t.state
}

// Settings returns the configured durations.
func (t *PomodoroTimer) Settings() TimerSettings {
	return t.settings
}

// Active reports whether the timer needs periodic redraws.
func (t *PomodoroTimer) Active() bool {
	return t.state == TimerRunning || t.state == TimerBreak
}

func (t *PomodoroTimer) target(op string, event TimerEvent) (TimerState, error) {
	next, ok := Transitions[event][t.state]
	if !ok {
		return "", apperr.InvalidState(op, "cannot %s while timer is %s", event, t.state)
	}
	return next, nil
}

// Start begins a focus interval, optionally for a task. A zero planned duration uses
// the configured focus length.
func (t *PomodoroTimer) Start(ctx context.Context, taskID *uint, planned time.Duration) (*model.PomodoroSession, error) {
	const op = "timer.start"
	next, err := t.target(op, EventStart)
	if err != nil {
		return nil, err
	}
	if planned < 0 {
		return nil, apperr.MalformedInput(op, "planned duration must be positive, got %s", planned)
	}
	if planned == 0 {
		planned = t.settings.Focus
	}
	if taskID != nil {
		task, err := t.tasks.FindByID(ctx, *taskID)
		if err != nil {
			return nil, lookupErr(op, err, "task %d not found", *taskID)
		}
		if task.IsDone() {
			return nil, apperr.InvalidState(op, "task %d is already done", *taskID)
		}
	}

	session := &model.PomodoroSession{
		TaskID:    taskID,
		StartedAt: t.clock.Now(),
		Planned:   planned,
	}
	if err := t.sessions.Create(ctx, session); err != nil {
		return nil, apperr.Internal(op, err)
	}

	t.reset()
	t.session = session
	t.state = next
	return t.sessionCopy(), nil
}

// Pause freezes the elapsed time.
func (t *PomodoroTimer) Pause() error {
	next, err := t.target("timer.pause", EventPause)
	if err != nil {
		return err
	}
	t.pausedAt = t.clock.Now()
	t.state = next
	return nil
}

// Resume continues a paused interval; the paused span is excluded from elapsed time.
func (t *PomodoroTimer) Resume() error {
	next, err := t.target("timer.resume", EventResume)
	if err != nil {
		return err
	}
	if gap := t.clock.Now().Sub(t.pausedAt); gap > 0 {
		t.pausedTotal += gap
	}
	t.pausedAt = time.Time{}
	t.state = next
	return nil
}

// Complete finalizes the running session once its planned duration has elapsed.
func (t *PomodoroTimer) Complete(ctx context.Context) (*model.PomodoroSession, error) {
	const op = "timer.complete"
	next, err := t.target(op, EventComplete)
	if err != nil {
		return nil, err
	}
	elapsed := t.Elapsed()
	if elapsed < t.session.Planned {
		return nil, apperr.InvalidState(op, "%s of the pomodoro remaining", (t.session.Planned - elapsed).Round(time.Second))
	}
	if err := t.finalize(ctx, op, model.OutcomeCompleted, elapsed); err != nil {
		return nil, err
	}
	t.state = next
	return t.sessionCopy(), nil
}

// Interrupt abandons the timer from any non-idle state. An open session is finalized
// as interrupted; a session that already completed is left untouched.
func (t *PomodoroTimer) Interrupt(ctx context.Context) (*model.PomodoroSession, error) {
	return t.stop(ctx, "timer.interrupt", EventInterrupt, model.OutcomeInterrupted)
}

// Cancel discards a running or paused session, recording it as cancelled.
func (t *PomodoroTimer) Cancel(ctx context.Context) (*model.PomodoroSession, error) {
	return t.stop(ctx, "timer.cancel", EventCancel, model.OutcomeCancelled)
}

func (t *PomodoroTimer) stop(ctx context.Context, op string, event TimerEvent, outcome model.SessionOutcome) (*model.PomodoroSession, error) {
	next, err := t.target(op, event)
	if err != nil {
		return nil, err
	}
	if t.state == TimerRunning || t.state == TimerPaused {
		if err := t.finalize(ctx, op, outcome, t.Elapsed()); err != nil {
			return nil, err
		}
	}
	session := t.sessionCopy()
	t.reset()
	t.state = next
	return session, nil
}

// StartBreak begins the break that follows a completed pomodoro. Every
// LongBreakEvery-th completed pomodoro earns the long break.
func (t *PomodoroTimer) StartBreak(ctx context.Context) (time.Duration, error) {
	const op = "timer.start_break"
	next, err := t.target(op, EventStartBreak)
	if err != nil {
		return 0, err
	}
	length := t.settings.ShortBreak
	if t.settings.LongBreakEvery > 0 {
		completed, err := t.sessions.CountCompleted(ctx)
		if err != nil {
			return 0, apperr.Internal(op, err)
		}
		if completed > 0 && completed%int64(t.settings.LongBreakEvery) == 0 {
			length = t.settings.LongBreak
		}
	}
	t.breakStarted = t.clock.Now()
	t.breakLength = length
	t.state = next
	return length, nil
}

// SkipBreak returns to idle without taking the break.
func (t *PomodoroTimer) SkipBreak() error {
	next, err := t.target("timer.skip_break", EventSkipBreak)
	if err != nil {
		return err
	}
	t.reset()
	t.state = next
	return nil
}

func (t *PomodoroTimer) endBreak() error {
	next, err := t.target("timer.end_break", EventEndBreak)
	if err != nil {
		return err
	}
	t.reset()
	t.state = next
	return nil
}

// Advance applies the time-driven transitions: a due pomodoro completes, a finished
// pomodoro starts its break when AutoBreak is set, and an elapsed break returns to
// idle. It reports the events that fired. Callers invoke it from a periodic tick.
func (t *PomodoroTimer) Advance(ctx context.Context) ([]TimerEvent, error) {
	var fired []TimerEvent
	if t.state == TimerRunning && t.Elapsed() >= t.session.Planned {
		if _, err := t.Complete(ctx); err != nil {
			return fired, err
		}
		fired = append(fired, EventComplete)
	}
	if t.state == TimerFinished && t.settings.AutoBreak {
		if _, err := t.StartBreak(ctx); err != nil {
			return fired, err
		}
		fired = append(fired, EventStartBreak)
	}
	if t.state == TimerBreak && t.Remaining() == 0 {
		if err := t.endBreak(); err != nil {
			return fired, err
		}
		fired = append(fired, EventEndBreak)
	}
	return fired, nil
}

// Elapsed returns focus time for the current session with pauses excluded.
func (t *PomodoroTimer) Elapsed() time.Duration {
	if t.session == nil {
		return 0
	}
	var elapsed time.Duration
	switch t.state {
	case TimerRunning:
		elapsed = t.clock.Now().Sub(t.session.StartedAt) - t.pausedTotal
	case TimerPaused:
		elapsed = t.pausedAt.Sub(t.session.StartedAt) - t.pausedTotal
	case TimerFinished, TimerBreak:
		elapsed = t.session.Focused
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the time left in the current pomodoro or break.
func (t *PomodoroTimer) Remaining() time.Duration {
	var left time.Duration
	switch t.state {
	case TimerRunning, TimerPaused:
		left = t.session.Planned - t.Elapsed()
	case TimerBreak:
		left = t.breakLength - t.clock.Now().Sub(t.breakStarted)
	}
	if left < 0 {
		return 0
	}
	return left
}

// Snapshot returns the read model for rendering.
func (t *PomodoroTimer) Snapshot() TimerSnapshot {
	snap := TimerSnapshot{
		State:     t.state,
		Session:   t.sessionCopy(),
		Elapsed:   t.Elapsed(),
		Remaining: t.Remaining(),
	}
	if t.session != nil {
		snap.Planned = t.session.Planned
	}
	if t.state == TimerBreak {
		snap.Break = t.breakLength
	}
	return snap
}

// Recover finalizes sessions left open by a previous run as interrupted. It must be
// called while the timer is idle, normally right after construction.
func (t *PomodoroTimer) Recover(ctx context.Context) (int, error) {
	const op = "timer.recover"
	if t.state != TimerIdle {
		return 0, apperr.InvalidState(op, "cannot recover while timer is %s", t.state)
	}
	open, err := t.sessions.ListOpen(ctx)
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	now := t.clock.Now()
	for i := range open {
		session := open[i]
		end := now
		if end.Before(session.StartedAt) {
			end = session.StartedAt
		}
		session.EndedAt = &end
		session.Outcome = model.OutcomeInterrupted
		if err := t.sessions.Finalize(ctx, &session); err != nil {
			return i, apperr.Internal(op, err)
		}
	}
	return len(open), nil
}

// finalize persists the end of the current session; on failure the in-memory state
// is left as it was.
func (t *PomodoroTimer) finalize(ctx context.Context, op string, outcome model.SessionOutcome, elapsed time.Duration) error {
	if t.session == nil {
		return apperr.InvalidState(op, "no open session")
	}
	end := t.clock.Now()
	if end.Before(t.session.StartedAt) {
		end = t.session.StartedAt
	}
	done := *t.session
	done.EndedAt = &end
	done.Focused = elapsed
	done.Outcome = outcome
	if err := t.sessions.Finalize(ctx, &done); err != nil {
		return apperr.Internal(op, fmt.Errorf("session %d: %w", done.ID, err))
	}
	t.session = &done
	return nil
}

func (t *PomodoroTimer) sessionCopy() *model.PomodoroSession {
	if t.session == nil {
		return nil
	}
	s := *t.session
	return &s
}

func (t *PomodoroTimer) reset() {
	t.session = nil
	t.pausedAt = time.Time{}
	t.pausedTotal = 0
	t.breakStarted = time.Time{}
	t.breakLength = 0
}
