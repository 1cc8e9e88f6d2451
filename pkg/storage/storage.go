package storage

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrFlowsAttached is returned when a task type cannot be deleted because
// flow edges still reference it.
var ErrFlowsAttached = errors.New("task type has attached flows")

// Store defines the storage operations for the workflow core. Begin returns a
// Store bound to a transaction; Commit/Rollback only work on such a Store.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Task type operations
	ListTaskTypes() ([]models.TaskType, error)
	GetTaskType(id int64) (models.TaskType, error)
	SaveTaskType(tt models.TaskType) (int64, error)
	UpdateTaskTypePosition(id int64, x, y float64) error
	DeleteTaskType(id int64) error

	// Flow operations
	ListFlows() ([]models.TaskTypeFlow, error)
	ListFlowsBySource(sourceTaskTypeID int64) ([]models.TaskTypeFlow, error)
	SaveFlow(f models.TaskTypeFlow) error
	DeleteFlow(id string) error
	DeleteFlowsBySource(sourceTaskTypeID int64) error
	CountFlowsTouching(taskTypeID int64) (int, error)

	// Question operations
	GetQuestions(taskTypeID int64) ([]models.Question, error)
	GetQuestion(id string) (models.Question, error)
	ReplaceQuestions(taskTypeID int64, questions []models.Question) error

	// Task instance operations
	SaveTask(t models.Task) (int64, error)
	GetTask(id int64) (models.Task, error)
	ListOpenTasksByType(taskTypeID int64) ([]models.Task, error)

	// Assignment operations
	SaveDefaultAssignment(d models.DefaultAssignment) error
	ListDefaultAssignments(taskTypeID int64) ([]models.DefaultAssignment, error)
	HasAssignment(taskID, userID int64, role models.AssignmentRole) (bool, error)
	SaveAssignment(a models.TaskAssignment) error

	// Reminder operations
	ListReminders(userID int64) ([]models.PendingTaskReminder, error)
	ListDueReminders(userID int64, cutoff time.Time) ([]models.PendingTaskReminder, error)
	FindOpenReminder(userID, sourceTaskID, taskTypeID int64) (models.PendingTaskReminder, error)
	SaveReminder(r models.PendingTaskReminder) (int64, error)
	TouchReminders(ids []int64, now time.Time) error
	CompleteReminder(id int64, completedTaskID int64) error
	DeleteReminder(id int64) error

	// Audit sink
	AppendAudit(e models.AuditEntry) error
}
