package models

import "time"

type AssignmentRole string

const (
	HandlerRole  AssignmentRole = "HANDLER"
	ReviewerRole AssignmentRole = "REVIEWER"
)

// TaskAssignment links a user to a task instance in a given role.
type TaskAssignment struct {
	TaskID    int64          `json:"taskId" db:"task_id"`
	UserID    int64          `json:"userId" db:"user_id"`
	Role      AssignmentRole `json:"role" db:"role"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

// DefaultAssignment is the per-TaskType "who handles this by default"
// configuration. It only reaches existing tasks when the propagator runs.
type DefaultAssignment struct {
	TaskTypeID int64          `json:"taskTypeId" db:"task_type_id"`
	UserID     int64          `json:"userId" db:"user_id"`
	Role       AssignmentRole `json:"role" db:"role"`
}
