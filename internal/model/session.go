package model

import "time"

// SessionOutcome records how a pomodoro ended. It is empty while the session is open.
type SessionOutcome string

const (
	OutcomeCompleted   SessionOutcome = "completed"
	OutcomeInterrupted SessionOutcome = "interrupted"
	OutcomeCancelled   SessionOutcome = "cancelled"
)

// PomodoroSession is one focus interval. Focused is the elapsed focus time with pauses
// excluded. A session is immutable once EndedAt is set.
type PomodoroSession struct {
	ID        uint  `gorm:"primaryKey"`
	TaskID    *uint `gorm:"index"`
	StartedAt time.Time
	Planned   time.Duration
	Focused   time.Duration
	EndedAt   *time.Time     `gorm:"index"`
	Outcome   SessionOutcome `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Finalized reports whether the session has ended.
func (s PomodoroSession) Finalized() bool {
	return s.EndedAt != nil && s.Outcome != ""
}
