package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vespers/internal/model"
)

// TaskRepository handles persistence for tasks. Tasks are never deleted.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Save writes every column of task, inserting it when the id is new.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks ordered by creation time. A nil status returns every task.
func (r *TaskRepository) List(ctx context.Context, status *model.TaskStatus) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByOutlineNode returns tasks attached to the given node.
func (r *TaskRepository) ListByOutlineNode(ctx context.Context, nodeID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("outline_node_id = ?", nodeID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by node: %w", err)
	}
	return tasks, nil
}

// SaveAll upserts tasks in one transaction; either every task is written or none.
func (r *TaskRepository) SaveAll(ctx context.Context, tasks []model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tasks {
			if err := tx.Save(&tasks[i]).Error; err != nil {
				return fmt.Errorf("save task %d: %w", tasks[i].ID, err)
			}
		}
		return nil
	})
}
