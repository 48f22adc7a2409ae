package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vespers/internal/model"
)

// SessionRepository stores pomodoro sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.PomodoroSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Finalize records the end of an open session. It refuses to touch a session that
// already has an outcome.
func (r *SessionRepository) Finalize(ctx context.Context, session *model.PomodoroSession) error {
	res := r.db.WithContext(ctx).Model(&model.PomodoroSession{}).
		Where("id = ? AND (outcome = ? OR outcome IS NULL)", session.ID, "").
		Updates(map[string]interface{}{
			"ended_at": session.EndedAt,
			"focused":  session.Focused,
			"outcome":  session.Outcome,
		})
	if res.Error != nil {
		return fmt.Errorf("finalize session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finalize session %d: %w", session.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*model.PomodoroSession, error) {
	var session model.PomodoroSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListAll returns every session ordered by start time.
func (r *SessionRepository) ListAll(ctx context.Context) ([]model.PomodoroSession, error) {
	var sessions []model.PomodoroSession
	if err := r.db.WithContext(ctx).Order("started_at ASC, id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ListOpen returns sessions that were never finalized, e.g. after a crash.
func (r *SessionRepository) ListOpen(ctx context.Context) ([]model.PomodoroSession, error) {
	var sessions []model.PomodoroSession
	if err := r.db.WithContext(ctx).Where("outcome = ? OR outcome IS NULL", "").
		Order("started_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	return sessions, nil
}

// CountCompleted returns the number of completed sessions.
func (r *SessionRepository) CountCompleted(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.PomodoroSession{}).
		Where("outcome = ?", model.OutcomeCompleted).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
