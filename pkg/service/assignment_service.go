package service

import (
	"fmt"
	"time"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

// ApplyDefaultsResult reports what a propagation run changed.
type ApplyDefaultsResult struct {
	UpdatedTaskCount   int `json:"updatedTaskCount"`   // tasks that received at least one new assignment
	NewAssignmentCount int `json:"newAssignmentCount"` // assignments inserted
}

// AssignmentService back-fills the per-task-type default handler/reviewer
// configuration onto existing open tasks. Changing the defaults never touches
// tasks on its own; an administrator invokes this explicitly.
type AssignmentService struct {
	store  storage.Store
	logger Logger
}

func NewAssignmentService(store storage.Store, logger Logger) *AssignmentService {
	return &AssignmentService{store: store, logger: logger}
}

// ApplyDefaults propagates default assignments to every non-terminal task of
// the given type, or of all types when taskTypeID is nil. Existing
// (task, user, role) tuples are left alone, so re-running is a no-op. The
// whole run is one transaction.
func (s *AssignmentService) ApplyDefaults(actorID int64, taskTypeID *int64) (result ApplyDefaultsResult, err error) {
	var scope []models.TaskType
	if taskTypeID != nil {
		tt, err := s.store.GetTaskType(*taskTypeID)
		if err != nil {
			return result, fmt.Errorf("task type %d: %w", *taskTypeID, err)
		}
		scope = []models.TaskType{tt}
	} else {
		scope, err = s.store.ListTaskTypes()
		if err != nil {
			return result, err
		}
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return result, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	for _, tt := range scope {
		defaults, err2 := txStore.ListDefaultAssignments(tt.ID)
		if err2 != nil {
			err = err2
			return result, err
		}
		if len(defaults) == 0 {
			continue
		}
		tasks, err2 := txStore.ListOpenTasksByType(tt.ID)
		if err2 != nil {
			err = err2
			return result, err
		}
		for _, task := range tasks {
			added := 0
			for _, d := range defaults {
				exists, err2 := txStore.HasAssignment(task.ID, d.UserID, d.Role)
				if err2 != nil {
					err = err2
					return result, err
				}
				if exists {
					continue
				}
				err2 = txStore.SaveAssignment(models.TaskAssignment{
					TaskID:    task.ID,
					UserID:    d.UserID,
					Role:      d.Role,
					CreatedAt: time.Now(),
				})
				if err2 != nil {
					err = err2
					return result, err
				}
				added++
			}
			if added > 0 {
				result.UpdatedTaskCount++
				result.NewAssignmentCount += added
			}
		}
	}

	s.appendAudit(actorID, result)
	s.logger.Infof("Applied default assignments: %d tasks updated, %d assignments created",
		result.UpdatedTaskCount, result.NewAssignmentCount)
	return result, nil
}

func (s *AssignmentService) appendAudit(actorID int64, result ApplyDefaultsResult) {
	err := s.store.AppendAudit(models.AuditEntry{
		ActorID:  actorID,
		Action:   "assignment.apply_defaults",
		Entity:   "task_assignment",
		EntityID: "batch",
		Details:  fmt.Sprintf("tasks=%d assignments=%d", result.UpdatedTaskCount, result.NewAssignmentCount),
	})
	if err != nil {
		s.logger.Errorf("Failed to append audit entry for apply_defaults: %v", err)
	}
}
