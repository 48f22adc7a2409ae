package service

import (
	"context"

	"vespers/internal/apperr"
	"vespers/internal/model"
	"vespers/internal/repository"
)

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo    *repository.TaskRepository
	outlineRepo *repository.OutlineRepository
	clock       Clock
}

func NewTaskService(taskRepo *repository.TaskRepository, outlineRepo *repository.OutlineRepository, clock Clock) *TaskService {
	if clock == nil {
		clock = SystemClock
	}
	return &TaskService{taskRepo: taskRepo, outlineRepo: outlineRepo, clock: clock}
}

// CreateTask adds a pending task, optionally attached to an outline node.
func (s *TaskService) CreateTask(ctx context.Context, title string, outlineNodeID *uint) (*model.Task, error) {
	const op = "task.create"
	title, err := normalizeTitle(op, title)
	if err != nil {
		return nil, err
	}

	if outlineNodeID != nil {
		if _, err := s.outlineRepo.FindByID(ctx, *outlineNodeID); err != nil {
			return nil, lookupErr(op, err, "outline node %d not found", *outlineNodeID)
		}
	}

	task := model.Task{
		Title:         title,
		Status:        model.StatusPending,
		OutlineNodeID: outlineNodeID,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &task, nil
}

// GetTask returns one task.
func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr("task.get", err, "task %d not found", taskID)
	}
	return task, nil
}

// List returns tasks ordered by creation time, optionally filtered by status.
func (s *TaskService) List(ctx context.Context, status *model.TaskStatus) ([]model.Task, error) {
	tasks, err := s.taskRepo.List(ctx, status)
	if err != nil {
		return nil, apperr.Internal("task.list", err)
	}
	return tasks, nil
}

// ListActive returns tasks that are not done.
func (s *TaskService) ListActive(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	active := tasks[:0]
	for _, task := range tasks {
		if !task.IsDone() {
			active = append(active, task)
		}
	}
	return active, nil
}

// ListForNode returns the tasks attached to an outline node.
func (s *TaskService) ListForNode(ctx context.Context, nodeID uint) ([]model.Task, error) {
	const op = "task.list_for_node"
	if _, err := s.outlineRepo.FindByID(ctx, nodeID); err != nil {
		return nil, lookupErr(op, err, "outline node %d not found", nodeID)
	}
	tasks, err := s.taskRepo.ListByOutlineNode(ctx, nodeID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return tasks, nil
}

// UpdateStatus moves a task to status. A done task cannot go back to pending or
// in progress here; that requires Reopen. Completing sets CompletedAt.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID uint, status model.TaskStatus) (*model.Task, error) {
	const op = "task.update_status"
	parsed, ok := model.ParseTaskStatus(string(status))
	if !ok {
		return nil, apperr.MalformedInput(op, "unknown status %q", status)
	}
	status = parsed

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(op, err, "task %d not found", taskID)
	}
	if task.Status == status {
		return task, nil
	}
	if task.IsDone() {
		return nil, apperr.InvalidTransition(op, "task %d is done; reopen it before moving it to %s", taskID, status)
	}

	updated := *task
	updated.Status = status
	if status == model.StatusDone {
		now := s.clock.Now()
		updated.CompletedAt = &now
	}
	if err := s.taskRepo.Save(ctx, &updated); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &updated, nil
}

// CompleteTask marks a task as done.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint) (*model.Task, error) {
	return s.UpdateStatus(ctx, taskID, model.StatusDone)
}

// Reopen returns a done task to pending and clears its completion time.
func (s *TaskService) Reopen(ctx context.Context, taskID uint) (*model.Task, error) {
	const op = "task.reopen"
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(op, err, "task %d not found", taskID)
	}
	if !task.IsDone() {
		return nil, apperr.InvalidTransition(op, "task %d is %s; only done tasks can be reopened", taskID, task.Status)
	}

	updated := *task
	updated.Status = model.StatusPending
	updated.CompletedAt = nil
	if err := s.taskRepo.Save(ctx, &updated); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &updated, nil
}

func normalizeTitle(op, title string) (string, error) {
	title, err := model.CleanTitle(title)
	if err != nil {
		return "", apperr.MalformedInput(op, "%v", err)
	}
	return title, nil
}
