package model

import (
	"time"

	"todo-service.com/todo-service/internal/constants"
)

// AuditLog records one task operation. TaskID is kept after the task is deleted.
type AuditLog struct {
	ID        string              `gorm:"primaryKey;size:36" json:"id"`
	EventID   string              `gorm:"uniqueIndex;size:36;not null" json:"event_id"`
	EventType constants.EventType `gorm:"type:varchar(50);not null" json:"event_type"`
	UserID    string              `gorm:"index;not null" json:"user_id"`
	TaskID    string              `gorm:"size:36" json:"task_id"`
	TaskData  map[string]any      `gorm:"serializer:json" json:"task_data"`
	Timestamp time.Time           `gorm:"index;not null" json:"timestamp"`
	Source    string              `gorm:"size:100" json:"source"`
}
