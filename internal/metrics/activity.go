package metrics

import (
	"fmt"
	"sort"
	"time"

	"vespers/internal/model"
)

// Activity is one entry of the recent-activity feed.
type Activity struct {
	At          time.Time
	Description string
}

// Ago renders the age of the activity relative to now.
func (a Activity) Ago(now time.Time) string {
	return Ago(now, a.At)
}

// RecentActivity derives the newest limit events, newest first, from the history in
// in. Events after in.Now are ignored.
func RecentActivity(in Input, limit int) []Activity {
	titles := make(map[uint]string, len(in.Tasks))
	for _, task := range in.Tasks {
		titles[task.ID] = task.Title
	}
	nodes := make(map[uint]string, len(in.Outline))
	for _, node := range in.Outline {
		nodes[node.ID] = node.Title
	}

	var events []Activity
	add := func(at time.Time, format string, args ...any) {
		if at.After(in.Now) {
			return
		}
		events = append(events, Activity{At: at, Description: fmt.Sprintf(format, args...)})
	}

	for _, task := range in.Tasks {
		add(task.CreatedAt, "Added task '%s'", task.Title)
		if task.IsDone() && task.CompletedAt != nil {
			add(*task.CompletedAt, "Completed task '%s'", task.Title)
		}
	}
	for _, session := range in.Sessions {
		if !session.Finalized() {
			continue
		}
		subject := ""
		if session.TaskID != nil {
			if title, ok := titles[*session.TaskID]; ok {
				subject = fmt.Sprintf(" on '%s'", title)
			}
		}
		minutes := int(session.Focused / time.Minute)
		switch session.Outcome {
		case model.OutcomeCompleted:
			add(*session.EndedAt, "Finished a %d min pomodoro%s", minutes, subject)
		case model.OutcomeInterrupted:
			add(*session.EndedAt, "Interrupted a pomodoro%s after %d min", subject, minutes)
		case model.OutcomeCancelled:
			add(*session.EndedAt, "Cancelled a pomodoro%s", subject)
		}
	}
	for _, entry := range in.Words {
		if entry.OutlineNodeID != nil {
			if title, ok := nodes[*entry.OutlineNodeID]; ok {
				add(entry.LoggedAt, "Added %s words to '%s'", Thousands(entry.Words), title)
				continue
			}
		}
		add(entry.LoggedAt, "Wrote %s words", Thousands(entry.Words))
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].At.After(events[j].At) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// Ago renders a coarse relative time such as "3 hours ago".
func Ago(now, at time.Time) string {
	d := now.Sub(at)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Thousands formats n with comma separators, e.g. 1020 -> "1,020".
func Thousands(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
