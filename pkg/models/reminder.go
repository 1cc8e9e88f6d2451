package models

import "time"

// PendingTaskReminder nags a user to revisit a task type after a triggering
// answer. TaskTypeLabel is denormalized for display so the inbox view does not
// join against task_types. LastRemindedAt drives the debounced due-query.
type PendingTaskReminder struct {
	ID              int64      `json:"id" db:"id"`
	UserID          int64      `json:"userId" db:"user_id"`
	SourceTaskID    int64      `json:"sourceTaskId" db:"source_task_id"` // Task whose answer raised the reminder
	TaskTypeID      int64      `json:"taskTypeId" db:"task_type_id"`     // Type of task the user should create
	TaskTypeLabel   string     `json:"taskTypeLabel" db:"task_type_label"`
	IsCompleted     bool       `json:"isCompleted" db:"is_completed"`
	CompletedTaskID *int64     `json:"completedTaskId" db:"completed_task_id"` // Task instance that fulfilled it
	LastRemindedAt  *time.Time `json:"lastRemindedAt" db:"last_reminded_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}
