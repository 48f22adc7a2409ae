package metrics

import (
	"reflect"
	"testing"
	"time"

	"vespers/internal/model"
)

var day = time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC)

func at(d, h, m int) time.Time {
	return day.AddDate(0, 0, d).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ptr[T any](v T) *T { return &v }

func completed(id uint, start time.Time, focus time.Duration) model.PomodoroSession {
	end := start.Add(focus)
	return model.PomodoroSession{ID: id, StartedAt: start, Planned: focus, Focused: focus, EndedAt: &end, Outcome: model.OutcomeCompleted}
}

func TestComputeDraftChapterScenario(t *testing.T) {
	taskID := uint(1)
	session := completed(1, at(0, 9, 0), 25*time.Minute)
	session.TaskID = &taskID
	tasks := []model.Task{{
		ID:          taskID,
		Title:       "Draft chapter 1",
		Status:      model.StatusDone,
		CreatedAt:   at(0, 8, 55),
		CompletedAt: ptr(at(0, 9, 30)),
	}}

	snap := Compute(Input{
		Window:   DayWindow(session.StartedAt),
		Now:      at(0, 10, 0),
		Tasks:    tasks,
		Sessions: []model.PomodoroSession{session},
	})

	if snap.TasksCompleted != 1 {
		t.Fatalf("TasksCompleted = %d, want 1", snap.TasksCompleted)
	}
	if snap.FocusedMinutes != 25 {
		t.Fatalf("FocusedMinutes = %d, want 25", snap.FocusedMinutes)
	}
	if snap.CompletionRate != 1 {
		t.Fatalf("CompletionRate = %v, want 1", snap.CompletionRate)
	}
	if snap.CurrentStreak != 1 {
		t.Fatalf("CurrentStreak = %d, want 1", snap.CurrentStreak)
	}
	if len(snap.DailyCompletions) != 1 || snap.DailyCompletions[0].Count != 1 {
		t.Fatalf("DailyCompletions = %+v", snap.DailyCompletions)
	}
}

func TestComputeExcludesInterruptedAndCancelled(t *testing.T) {
	interruptedEnd := at(0, 9, 5)
	cancelledEnd := at(0, 11, 1)
	sessions := []model.PomodoroSession{
		{ID: 1, StartedAt: at(0, 9, 0), Planned: 25 * time.Minute, Focused: 5 * time.Minute, EndedAt: &interruptedEnd, Outcome: model.OutcomeInterrupted},
		completed(2, at(0, 10, 0), 25*time.Minute),
		{ID: 3, StartedAt: at(0, 11, 0), Planned: 25 * time.Minute, Focused: time.Minute, EndedAt: &cancelledEnd, Outcome: model.OutcomeCancelled},
		{ID: 4, StartedAt: at(0, 12, 0), Planned: 25 * time.Minute},
	}

	snap := Compute(Input{Window: DayWindow(day), Now: at(0, 13, 0), Sessions: sessions})
	if snap.FocusedMinutes != 25 {
		t.Fatalf("FocusedMinutes = %d, want 25", snap.FocusedMinutes)
	}
	if snap.PomodorosCompleted != 1 || snap.PomodorosInterrupted != 1 || snap.PomodorosCancelled != 1 {
		t.Fatalf("counts = %d/%d/%d", snap.PomodorosCompleted, snap.PomodorosInterrupted, snap.PomodorosCancelled)
	}
}

func TestComputeCompletionRate(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Status: model.StatusDone, CreatedAt: at(0, 8, 0), CompletedAt: ptr(at(0, 9, 0))},
		{ID: 2, Status: model.StatusPending, CreatedAt: at(0, 8, 0)},
		{ID: 3, Status: model.StatusInProgress, CreatedAt: at(0, 8, 0)},
		{ID: 4, Status: model.StatusPending, CreatedAt: at(0, 8, 0)},
		{ID: 5, Status: model.StatusDone, CreatedAt: at(-3, 8, 0), CompletedAt: ptr(at(0, 10, 0))},
	}
	snap := Compute(Input{Window: DayWindow(day), Now: at(0, 23, 0), Tasks: tasks})
	if snap.TasksCreated != 4 {
		t.Fatalf("TasksCreated = %d, want 4", snap.TasksCreated)
	}
	if snap.TasksCompleted != 2 {
		t.Fatalf("TasksCompleted = %d, want 2", snap.TasksCompleted)
	}
	if snap.CompletionRate != 0.25 {
		t.Fatalf("CompletionRate = %v, want 0.25", snap.CompletionRate)
	}

	empty := Compute(Input{Window: DayWindow(day.AddDate(0, 0, 5)), Now: at(5, 1, 0), Tasks: tasks})
	if empty.CompletionRate != 0 || empty.TasksCreated != 0 {
		t.Fatalf("empty window rate = %v created = %d", empty.CompletionRate, empty.TasksCreated)
	}
}

func TestStreak(t *testing.T) {
	sessions := []model.PomodoroSession{
		completed(1, at(0, 9, 0), 25*time.Minute),
		completed(2, at(-1, 9, 0), 25*time.Minute),
		completed(3, at(-2, 22, 0), 25*time.Minute),
		completed(4, at(-4, 9, 0), 25*time.Minute),
	}
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"three day run", at(0, 18, 0), 3},
		{"nothing today", at(1, 9, 0), 0},
		{"future sessions ignored", at(-1, 8, 0), 0},
		{"single day", at(-4, 12, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Streak(sessions, tt.now); got != tt.want {
				t.Fatalf("Streak = %d, want %d", got, tt.want)
			}
		})
	}

	interruptedEnd := at(0, 9, 5)
	only := []model.PomodoroSession{{ID: 9, StartedAt: at(0, 9, 0), EndedAt: &interruptedEnd, Outcome: model.OutcomeInterrupted}}
	if got := Streak(only, at(0, 12, 0)); got != 0 {
		t.Fatalf("interrupted sessions should not count, got %d", got)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	in := Input{
		Window: LastDays(at(0, 12, 0), 7),
		Now:    at(0, 12, 0),
		Tasks: []model.Task{
			{ID: 1, Title: "Outline act two", Status: model.StatusDone, CreatedAt: at(-2, 8, 0), CompletedAt: ptr(at(-1, 9, 0))},
		},
		Sessions: []model.PomodoroSession{completed(1, at(-1, 10, 0), 25*time.Minute)},
		Words:    []model.WordEntry{{ID: 1, Words: 450, LoggedAt: at(-1, 11, 0)}},
	}
	first := Compute(in)
	second := Compute(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestDailyWordsAndWindowDays(t *testing.T) {
	now := at(0, 12, 0)
	window := LastDays(now, 3)
	if got := len(window.Days()); got != 3 {
		t.Fatalf("Days() = %d, want 3", got)
	}
	words := []model.WordEntry{
		{ID: 1, Words: 450, LoggedAt: at(-2, 9, 0)},
		{ID: 2, Words: 570, LoggedAt: at(0, 9, 0)},
		{ID: 3, Words: 100, LoggedAt: at(0, 10, 0)},
		{ID: 4, Words: 999, LoggedAt: at(-5, 10, 0)},
	}
	snap := Compute(Input{Window: window, Now: now, Words: words})
	if snap.WordsWritten != 1120 {
		t.Fatalf("WordsWritten = %d, want 1120", snap.WordsWritten)
	}
	want := []int{450, 0, 670}
	for i, dc := range snap.DailyWords {
		if dc.Count != want[i] {
			t.Fatalf("DailyWords[%d] = %d, want %d", i, dc.Count, want[i])
		}
	}
}

func TestProgressCountsThreeLevels(t *testing.T) {
	arc, arc2 := uint(1), uint(2)
	ch2 := uint(4)
	scene := uint(6)
	beat := uint(8)
	nodes := []model.OutlineNode{
		{ID: arc2, Title: "Arc Two", OrderIndex: 1},
		{ID: arc, Title: "Arc One", OrderIndex: 0},
		{ID: 3, ParentID: &arc, Title: "Chapter 1", Completed: true},
		{ID: ch2, ParentID: &arc, Title: "Chapter 2", OrderIndex: 1},
		{ID: 5, ParentID: &ch2, Title: "Scene 1", Completed: true},
		{ID: scene, ParentID: &ch2, Title: "Scene 2", OrderIndex: 1},
		{ID: 7, ParentID: &scene, Title: "Beat", Completed: true},
		{ID: beat, ParentID: &scene, Title: "Beat 2", OrderIndex: 1},
		{ID: 9, ParentID: &beat, Title: "Too deep", Completed: true},
		{ID: 10, ParentID: &arc2, Title: "Chapter 3"},
	}
	got := Progress(nodes)
	if len(got) != 2 || got[0].Title != "Arc One" || got[1].Title != "Arc Two" {
		t.Fatalf("Progress order = %+v", got)
	}
	if got[0].Total != 6 || got[0].Done != 3 {
		t.Fatalf("Arc One = %d/%d, want 3/6", got[0].Done, got[0].Total)
	}
	if got[1].Total != 1 || got[1].Done != 0 {
		t.Fatalf("Arc Two = %d/%d, want 0/1", got[1].Done, got[1].Total)
	}
}

func TestRecentActivityNewestFirst(t *testing.T) {
	node := uint(3)
	taskID := uint(1)
	session := completed(1, at(0, 9, 0), 25*time.Minute)
	session.TaskID = &taskID
	in := Input{
		Now: at(0, 12, 0),
		Tasks: []model.Task{
			{ID: taskID, Title: "Review Chapter 3", Status: model.StatusDone, CreatedAt: at(0, 8, 0), CompletedAt: ptr(at(0, 10, 0))},
		},
		Sessions: []model.PomodoroSession{session},
		Words:    []model.WordEntry{{ID: 1, Words: 347, OutlineNodeID: &node, LoggedAt: at(0, 11, 0)}},
		Outline:  []model.OutlineNode{{ID: node, Title: "Project Notes"}},
	}
	got := RecentActivity(in, 3)
	want := []string{
		"Added 347 words to 'Project Notes'",
		"Completed task 'Review Chapter 3'",
		"Finished a 25 min pomodoro on 'Review Chapter 3'",
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Description != want[i] {
			t.Errorf("activity[%d] = %q, want %q", i, got[i].Description, want[i])
		}
	}
	if ago := got[0].Ago(in.Now); ago != "1 hour ago" {
		t.Errorf("Ago = %q, want 1 hour ago", ago)
	}
}

func TestAgoAndThousands(t *testing.T) {
	now := at(0, 12, 0)
	cases := map[time.Duration]string{
		10 * time.Second: "just now",
		5 * time.Minute:  "5 minutes ago",
		3 * time.Hour:    "3 hours ago",
		50 * time.Hour:   "2 days ago",
	}
	for d, want := range cases {
		if got := Ago(now, now.Add(-d)); got != want {
			t.Errorf("Ago(-%s) = %q, want %q", d, got, want)
		}
	}
	for n, want := range map[int]string{0: "0", 999: "999", 1020: "1,020", 1234567: "1,234,567", -4500: "-4,500"} {
		if got := Thousands(n); got != want {
			t.Errorf("Thousands(%d) = %q, want %q", n, got, want)
		}
	}
}
