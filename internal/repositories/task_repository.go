package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "todo-service.com/todo-service/internal/errors"
	model "todo-service.com/todo-service/pkg/models"
)

type TaskRepository struct {
	db *gorm.DB
}

var _ TaskStore = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, owner, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", owner, id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, owner string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("created_at desc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ? AND version = ?", task.ID, task.UserID, task.Version).
		Updates(map[string]interface{}{
			"title":         task.Title,
			"description":   task.Description,
			"completed":     task.Completed,
			"priority":      task.Priority,
			"tags":          task.Tags,
			"due_date":      task.DueDate,
			"reminder_at":   task.ReminderAt,
			"reminder_sent": task.ReminderSent,
			"recurring":     task.Recurring,
			"updated_at":    task.UpdatedAt,
			"version":       gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}

	task.Version++
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, owner, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", owner, id).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) RecordAudit(ctx context.Context, entry *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ListDueReminders returns open tasks across all owners whose reminder time has
// passed and that have not been reminded yet, oldest reminder first.
func (r *TaskRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var tasks []model.Task
	query := r.db.WithContext(ctx).
		Where("completed = ? AND reminder_sent = ? AND reminder_at IS NOT NULL AND reminder_at <= ?", false, false, now.UTC()).
		Order("reminder_at asc").Limit(limit)

	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) Transaction(ctx context.Context, fn func(tx TaskStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx})
	})
}

// ListAudit returns an owner's audit trail, newest first.
func (r *TaskRepository) ListAudit(ctx context.Context, owner string, limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("timestamp desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return entries, nil
}
