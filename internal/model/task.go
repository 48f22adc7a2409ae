package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds task and outline titles, in runes.
const MaxTitleLength = 200

var errEmptyTitle = errors.New("title is required")

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// ParseTaskStatus accepts the stored form as well as a few spellings users type.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "todo":
		return StatusPending, true
	case "in_progress", "in-progress", "inprogress", "active":
		return StatusInProgress, true
	case "done", "completed":
		return StatusDone, true
	default:
		return "", false
	}
}

// Task represents a single item in the planner.
// CompletedAt is set if and only if Status is StatusDone.
type Task struct {
	ID            uint       `gorm:"primaryKey"`
	Title         string
	Status        TaskStatus `gorm:"index;default:pending"`
	OutlineNodeID *uint      `gorm:"index"`
	CreatedAt     time.Time  `gorm:"index"`
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

// IsDone reports whether the task has been completed.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// CleanTitle collapses runs of whitespace and checks the length.
func CleanTitle(title string) (string, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "", errEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("title is longer than %d characters", MaxTitleLength)
	}
	return title, nil
}
