package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"vespers/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "test.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestTaskListOrdersByCreationAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	base := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)

	done := base.Add(3 * time.Hour)
	tasks := []model.Task{
		{Title: "second", Status: model.StatusPending, CreatedAt: base.Add(time.Hour)},
		{Title: "first", Status: model.StatusDone, CreatedAt: base, CompletedAt: &done},
		{Title: "third", Status: model.StatusInProgress, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range tasks {
		if err := repo.Create(ctx, &tasks[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, task := range all {
		titles = append(titles, task.Title)
	}
	if len(titles) != 3 || titles[0] != "first" || titles[1] != "second" || titles[2] != "third" {
		t.Fatalf("titles = %v, want [first second third]", titles)
	}

	status := model.StatusDone
	doneTasks, err := repo.List(ctx, &status)
	if err != nil {
		t.Fatalf("list done: %v", err)
	}
	if len(doneTasks) != 1 || doneTasks[0].Title != "first" {
		t.Fatalf("done tasks = %+v", doneTasks)
	}

	if _, err := repo.FindByID(ctx, 999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("FindByID missing = %v, want ErrRecordNotFound", err)
	}
}

func TestOutlineAppendAssignsSiblingIndexes(t *testing.T) {
	ctx := context.Background()
	repo := NewOutlineRepository(newTestDB(t))

	arc := &model.OutlineNode{Title: "Arc One"}
	if err := repo.Append(ctx, arc); err != nil {
		t.Fatalf("append arc: %v", err)
	}
	arc2 := &model.OutlineNode{Title: "Arc Two"}
	if err := repo.Append(ctx, arc2); err != nil {
		t.Fatalf("append arc two: %v", err)
	}
	if arc.OrderIndex != 0 || arc2.OrderIndex != 1 {
		t.Fatalf("top-level indexes = %d, %d, want 0, 1", arc.OrderIndex, arc2.OrderIndex)
	}

	for i, title := range []string{"Chapter 1", "Chapter 2", "Chapter 3"} {
		node := &model.OutlineNode{Title: title, ParentID: &arc.ID}
		if err := repo.Append(ctx, node); err != nil {
			t.Fatalf("append %s: %v", title, err)
		}
		if node.OrderIndex != i {
			t.Fatalf("%s index = %d, want %d", title, node.OrderIndex, i)
		}
	}

	children, err := repo.ListChildren(ctx, &arc.ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 3 || children[2].Title != "Chapter 3" {
		t.Fatalf("children = %+v", children)
	}
}

func TestOutlineAppendMissingParentWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewOutlineRepository(newTestDB(t))

	missing := uint(77)
	err := repo.Append(ctx, &model.OutlineNode{Title: "orphan", ParentID: &missing})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Append = %v, want ErrRecordNotFound", err)
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no nodes, got %d", len(all))
	}
}

func TestSessionFinalizeOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestDB(t))
	start := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)

	session := &model.PomodoroSession{StartedAt: start, Planned: 25 * time.Minute}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	open, err := repo.ListOpen(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("ListOpen = %v, %v", open, err)
	}

	end := start.Add(25 * time.Minute)
	session.EndedAt = &end
	session.Focused = 25 * time.Minute
	session.Outcome = model.OutcomeCompleted
	if err := repo.Finalize(ctx, session); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	again := *session
	again.Outcome = model.OutcomeInterrupted
	if err := repo.Finalize(ctx, &again); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second finalize = %v, want ErrRecordNotFound", err)
	}

	stored, err := repo.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Outcome != model.OutcomeCompleted || stored.Focused != 25*time.Minute {
		t.Fatalf("stored = %+v", stored)
	}
	if n, err := repo.CountCompleted(ctx); err != nil || n != 1 {
		t.Fatalf("CountCompleted = %d, %v", n, err)
	}
}

func TestEnsureDirSkipsMemory(t *testing.T) {
	if err := ensureDir("file::memory:?cache=shared"); err != nil {
		t.Fatalf("memory dsn: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := ensureDir("file:" + filepath.Join(dir, "x.db") + "?_busy_timeout=500"); err != nil {
		t.Fatalf("file dsn: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}
