package models

import "time"

type TaskStatus string

const (
	OpenTaskStatus       TaskStatus = "OPEN"
	InProgressTaskStatus TaskStatus = "IN_PROGRESS"
	CompletedTaskStatus  TaskStatus = "COMPLETED"
	RejectedTaskStatus   TaskStatus = "REJECTED"
)

// Terminal reports whether the status ends a task's lifecycle. Terminal tasks
// are skipped by the default-assignment propagator.
func (s TaskStatus) Terminal() bool {
	return s == CompletedTaskStatus || s == RejectedTaskStatus
}

// Task is a single administrative task instance. The workflow core reads
// tasks and signals creation of new ones; the surrounding task-completion
// flow owns the rest of the lifecycle.
type Task struct {
	ID         int64      `json:"id" db:"id"`
	TaskTypeID int64      `json:"taskTypeId" db:"task_type_id"` // References (never owns) a TaskType
	OwnerID    int64      `json:"ownerId" db:"owner_id"`        // Creating user
	Status     TaskStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}
