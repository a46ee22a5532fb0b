package repository

import (
	"context"
	"time"

	model "todo-service.com/todo-service/pkg/models"
)

// TaskStore is the persistence contract the engine consumes. Every lookup is scoped
// by owner; a task owned by someone else is reported as errors.ErrTaskNotFound.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, owner, id string) (*model.Task, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Task, error)
	// Update writes the task only if its version still matches, then bumps it.
	// A lost race returns errors.ErrOptimisticLock.
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, owner, id string) error
	RecordAudit(ctx context.Context, entry *model.AuditLog) error
	ListAudit(ctx context.Context, owner string, limit int) ([]model.AuditLog, error)
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Task, error)
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx TaskStore) error) error
}
