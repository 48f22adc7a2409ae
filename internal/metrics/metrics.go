// Package metrics derives productivity figures from task, session and word history.
// Everything here is a pure function of its input: the same Input always yields the
// same Snapshot, and nothing is cached between calls.
package metrics

import (
	"sort"
	"time"

	"vespers/internal/model"
)

const (
	// outlineDepth bounds how deep below a top-level node progress is counted.
	outlineDepth   = 3
	activityLimit  = 10
	defaultWinDays = 1
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the start of each calendar day the window touches, in the location of
// w.Start.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(w.Start); d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow covers the calendar day containing t.
func DayWindow(t time.Time) Window {
	start := StartOfDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// LastDays covers the n calendar days ending with the day containing now.
func LastDays(now time.Time, n int) Window {
	if n <= 0 {
		n = defaultWinDays
	}
	end := StartOfDay(now).AddDate(0, 0, 1)
	return Window{Start: end.AddDate(0, 0, -n), End: end}
}

// Input is the full history the aggregator works from.
type Input struct {
	Window   Window
	Now      time.Time
	Tasks    []model.Task
	Sessions []model.PomodoroSession
	Words    []model.WordEntry
	Outline  []model.OutlineNode
}

// DayCount is a per-day tally.
type DayCount struct {
	Date  time.Time
	Count int
}

// OutlineProgress summarizes a top-level outline node.
type OutlineProgress struct {
	NodeID uint
	Title  string
	Total  int
	Done   int
}

// Snapshot is the derived, read-only view shown by the dashboard.
type Snapshot struct {
	Window               Window
	TasksCreated         int
	TasksCompleted       int
	CompletionRate       float64
	FocusedTime          time.Duration
	FocusedMinutes       int
	PomodorosCompleted   int
	PomodorosInterrupted int
	PomodorosCancelled   int
	CurrentStreak        int
	WordsWritten         int
	DailyCompletions     []DayCount
	DailyWords           []DayCount
	Outline              []OutlineProgress
	RecentActivity       []Activity
}

// HasData reports whether there is anything worth charting.
func (s Snapshot) HasData() bool {
	return s.TasksCompleted > 0 || s.WordsWritten > 0 || len(s.Outline) > 0 || len(s.RecentActivity) > 0
}

// Compute builds a Snapshot for in.Window.
func Compute(in Input) Snapshot {
	snap := Snapshot{Window: in.Window}

	days := in.Window.Days()
	completions := make([]DayCount, len(days))
	words := make([]DayCount, len(days))
	for i, d := range days {
		completions[i].Date = d
		words[i].Date = d
	}
	loc := in.Window.Start.Location()

	createdDone := 0
	for _, task := range in.Tasks {
		if in.Window.Contains(task.CreatedAt) {
			snap.TasksCreated++
			if task.IsDone() {
				createdDone++
			}
		}
		if task.IsDone() && task.CompletedAt != nil && in.Window.Contains(*task.CompletedAt) {
			snap.TasksCompleted++
			bump(completions, task.CompletedAt.In(loc), 1)
		}
	}
	if snap.TasksCreated > 0 {
		snap.CompletionRate = float64(createdDone) / float64(snap.TasksCreated)
	}

	for _, session := range in.Sessions {
		if !session.Finalized() || !in.Window.Contains(*session.EndedAt) {
			continue
		}
		switch session.Outcome {
		case model.OutcomeCompleted:
			snap.PomodorosCompleted++
			snap.FocusedTime += session.Focused
		case model.OutcomeInterrupted:
			snap.PomodorosInterrupted++
		case model.OutcomeCancelled:
			snap.PomodorosCancelled++
		}
	}
	snap.FocusedMinutes = int(snap.FocusedTime / time.Minute)

	for _, entry := range in.Words {
		if in.Window.Contains(entry.LoggedAt) {
			snap.WordsWritten += entry.Words
			bump(words, entry.LoggedAt.In(loc), entry.Words)
		}
	}

	snap.DailyCompletions = completions
	snap.DailyWords = words
	snap.CurrentStreak = Streak(in.Sessions, in.Now)
	snap.Outline = Progress(in.Outline)
	snap.RecentActivity = RecentActivity(in, activityLimit)
	return snap
}

func bump(counts []DayCount, t time.Time, n int) {
	day := StartOfDay(t)
	i := sort.Search(len(counts), func(i int) bool { return !counts[i].Date.Before(day) })
	if i < len(counts) && counts[i].Date.Equal(day) {
		counts[i].Count += n
	}
}

// Streak counts consecutive calendar days, walking backward from the day containing
// now, that have at least one completed session. A day without one ends the streak,
// so the streak is 0 when nothing was completed today.
func Streak(sessions []model.PomodoroSession, now time.Time) int {
	type ymd struct {
		y int
		m time.Month
		d int
	}
	loc := now.Location()
	active := make(map[ymd]bool)
	for _, session := range sessions {
		if session.Outcome != model.OutcomeCompleted || session.EndedAt == nil {
			continue
		}
		if session.EndedAt.After(now) {
			continue
		}
		y, m, d := session.EndedAt.In(loc).Date()
		active[ymd{y, m, d}] = true
	}

	streak := 0
	for day := StartOfDay(now); ; day = day.AddDate(0, 0, -1) {
		y, m, d := day.Date()
		if !active[ymd{y, m, d}] {
			return streak
		}
		streak++
	}
}

// Progress reports, for each top-level node in order, how many descendants (up to
// three levels deep) exist and how many are completed.
func Progress(nodes []model.OutlineNode) []OutlineProgress {
	children := make(map[uint][]model.OutlineNode)
	var roots []model.OutlineNode
	for _, node := range nodes {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		children[*node.ParentID] = append(children[*node.ParentID], node)
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].OrderIndex < roots[j].OrderIndex })

	var count func(id uint, depth int) (int, int)
	count = func(id uint, depth int) (int, int) {
		if depth > outlineDepth {
			return 0, 0
		}
		total, done := 0, 0
		for _, child := range children[id] {
			total++
			if child.Completed {
				done++
			}
			t, d := count(child.ID, depth+1)
			total += t
			done += d
		}
		return total, done
	}

	progress := make([]OutlineProgress, 0, len(roots))
	for _, root := range roots {
		total, done := count(root.ID, 1)
		progress = append(progress, OutlineProgress{NodeID: root.ID, Title: root.Title, Total: total, Done: done})
	}
	return progress
}
