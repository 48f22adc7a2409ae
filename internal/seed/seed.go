// Package seed reads and writes the task data file: a YAML or JSON list of
// {id, title, status, created_at, completed_at} records.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vespers/internal/apperr"
	"vespers/internal/model"
)

// Record is one task as stored in the data file. Timestamps are kept as text so a
// bad value is reported as malformed input rather than a decoder error.
type Record struct {
	ID          uint   `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Status      string `yaml:"status" json:"status"`
	CreatedAt   string `yaml:"created_at" json:"created_at"`
	CompletedAt string `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Load reads path and returns the validated tasks it holds.
func Load(path string) ([]model.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a data file. JSON input is accepted because it is valid YAML.
func Parse(data []byte) ([]model.Task, error) {
	const op = "seed.parse"
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, apperr.MalformedInput(op, "decode data file: %v", err)
	}
	return ToTasks(records)
}

// ToTasks validates records and converts them. The first bad record aborts the whole
// conversion.
func ToTasks(records []Record) ([]model.Task, error) {
	const op = "seed.validate"
	seen := make(map[uint]bool, len(records))
	tasks := make([]model.Task, 0, len(records))
	for i, rec := range records {
		if rec.ID == 0 {
			return nil, apperr.MalformedInput(op, "record %d: id must be positive", i+1)
		}
		if seen[rec.ID] {
			return nil, apperr.MalformedInput(op, "record %d: duplicate id %d", i+1, rec.ID)
		}
		seen[rec.ID] = true

		title, err := model.CleanTitle(rec.Title)
		if err != nil {
			return nil, apperr.MalformedInput(op, "task %d: %v", rec.ID, err)
		}
		status, ok := model.ParseTaskStatus(rec.Status)
		if !ok {
			return nil, apperr.MalformedInput(op, "task %d: unknown status %q", rec.ID, rec.Status)
		}
		created, err := parseTime(rec.CreatedAt)
		if err != nil {
			return nil, apperr.MalformedInput(op, "task %d: created_at: %v", rec.ID, err)
		}

		task := model.Task{ID: rec.ID, Title: title, Status: status, CreatedAt: created}
		if strings.TrimSpace(rec.CompletedAt) != "" {
			completed, err := parseTime(rec.CompletedAt)
			if err != nil {
				return nil, apperr.MalformedInput(op, "task %d: completed_at: %v", rec.ID, err)
			}
			if completed.Before(created) {
				return nil, apperr.MalformedInput(op, "task %d: completed_at is before created_at", rec.ID)
			}
			task.CompletedAt = &completed
		}
		if task.IsDone() != (task.CompletedAt != nil) {
			return nil, apperr.MalformedInput(op, "task %d: completed_at must be set exactly when status is done", rec.ID)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// FromTasks converts tasks to records with RFC 3339 timestamps.
func FromTasks(tasks []model.Task) []Record {
	records := make([]Record, 0, len(tasks))
	for _, task := range tasks {
		rec := Record{
			ID:        task.ID,
			Title:     task.Title,
			Status:    string(task.Status),
			CreatedAt: task.CreatedAt.Format(time.RFC3339),
		}
		if task.CompletedAt != nil {
			rec.CompletedAt = task.CompletedAt.Format(time.RFC3339)
		}
		records = append(records, rec)
	}
	return records
}

// Save writes tasks to path, as JSON when the extension is .json and YAML otherwise.
// The file is replaced atomically.
func Save(path string, tasks []model.Task) error {
	records := FromTasks(tasks)
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if data, err = json.MarshalIndent(records, "", "  "); err == nil {
			data = append(data, '\n')
		}
	} else {
		data, err = yaml.Marshal(records)
	}
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
