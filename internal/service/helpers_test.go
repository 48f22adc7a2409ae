package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"vespers/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	db       *gorm.DB
	clock    *fakeClock
	tasks    *TaskService
	timer    *PomodoroTimer
	outline  *OutlineService
	words    *WordService
	reports  *ReportService
	taskRepo *repository.TaskRepository
	sessions *repository.SessionRepository
}

var defaultSettings = TimerSettings{
	Focus:          25 * time.Minute,
	ShortBreak:     5 * time.Minute,
	LongBreak:      15 * time.Minute,
	LongBreakEvery: 4,
	AutoBreak:      true,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "vespers.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &fakeClock{now: time.Date(2025, 11, 27, 9, 0, 0, 0, time.UTC)}
	taskRepo := repository.NewTaskRepository(db)
	outlineRepo := repository.NewOutlineRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	wordRepo := repository.NewWordRepository(db)

	return &fixture{
		db:       db,
		clock:    clock,
		tasks:    NewTaskService(taskRepo, outlineRepo, clock),
		timer:    NewPomodoroTimer(sessionRepo, taskRepo, clock, defaultSettings),
		outline:  NewOutlineService(outlineRepo),
		words:    NewWordService(wordRepo, outlineRepo, clock),
		reports:  NewReportService(taskRepo, sessionRepo, wordRepo, outlineRepo, clock),
		taskRepo: taskRepo,
		sessions: sessionRepo,
	}
}

func uintPtr(v uint) *uint { return &v }

var errDiskFull = errors.New("disk full")

// failUpdates makes every later UPDATE on the fixture database fail.
func (f *fixture) failUpdates(t *testing.T) {
	t.Helper()
	err := f.db.Callback().Update().Before("gorm:update").Register("vespers:fail_update", func(tx *gorm.DB) {
		tx.AddError(errDiskFull)
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// closeDB closes the connection pool under the fixture's repositories.
func (f *fixture) closeDB(t *testing.T) {
	t.Helper()
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
}
