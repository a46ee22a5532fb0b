package model

import (
	"time"

	"todo-service.com/todo-service/internal/constants"
)

type Task struct {
	ID                string               `gorm:"primaryKey;size:36" json:"id"`
	UserID            string               `gorm:"index;not null" json:"user_id"`
	Title             string               `gorm:"size:200;not null" json:"title"`
	Description       string               `gorm:"size:1000;not null;default:''" json:"description"`
	Completed         bool                 `gorm:"not null;default:false" json:"completed"`
	Priority          constants.Priority   `gorm:"type:varchar(10);not null;default:medium" json:"priority"`
	Tags              Tags                 `gorm:"type:text" json:"tags"`
	DueDate           *time.Time           `json:"due_date"`
	ReminderAt        *time.Time           `gorm:"index" json:"reminder_at"`
	ReminderSent      bool                 `gorm:"not null;default:false" json:"-"`
	Recurring         constants.Recurrence `gorm:"type:varchar(20)" json:"recurring,omitempty"`
	RecurringParentID *string              `gorm:"size:36" json:"recurring_parent_id"`
	Version           uint                 `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         *time.Time           `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Snapshot is the task_data payload stored in audit rows and published events.
func (t *Task) Snapshot() map[string]any {
	data := map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"priority":    t.Priority,
		"tags":        append([]string{}, t.Tags...),
		"recurring":   t.Recurring,
	}
	if t.DueDate != nil {
		data["due_date"] = t.DueDate.UTC().Format(time.RFC3339)
	}
	if t.ReminderAt != nil {
		data["reminder_at"] = t.ReminderAt.UTC().Format(time.RFC3339)
	}
	if t.RecurringParentID != nil {
		data["recurring_parent_id"] = *t.RecurringParentID
	}
	return data
}
