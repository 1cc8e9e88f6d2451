package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

// SaveWorkflowRequest is one editor session's worth of graph changes.
//
// The flows list must contain the COMPLETE outgoing set of every source task
// type it mentions: saving replaces that node's stored edges wholesale, so a
// partial submission silently deletes the edges it omits. The editor always
// holds the full graph client-side, which is the only reason this contract is
// tolerable; any other caller must load the current outgoing set first.
type SaveWorkflowRequest struct {
	Nodes          []models.NodePosition `json:"nodes" validate:"dive"`
	Flows          []models.TaskTypeFlow `json:"flows" validate:"dive"`
	DeletedFlowIDs []string              `json:"deletedFlowIds"`
}

// SaveWorkflowResult reports what a save touched; it also feeds the audit
// entry appended after commit.
type SaveWorkflowResult struct {
	NodesTouched int `json:"nodesTouched"`
	FlowsCreated int `json:"flowsCreated"`
	FlowsDeleted int `json:"flowsDeleted"`
}

// WorkflowService owns the task-type workflow graph: nodes, their layout, and
// the conditional transition edges between them.
type WorkflowService struct {
	store  storage.Store
	logger Logger
}

func NewWorkflowService(store storage.Store, logger Logger) *WorkflowService {
	return &WorkflowService{store: store, logger: logger}
}

// SaveWorkflow commits a batch of graph edits in a single transaction:
// explicit deletions first, then node positions, then a full replace of each
// touched source's outgoing edge set. Every touched set is re-validated here
// even though the editor validated it already; edits may have raced since.
// Nothing is committed on any failure. Last write wins between concurrent
// saves of the same node.
func (s *WorkflowService) SaveWorkflow(actorID int64, req SaveWorkflowRequest) (result SaveWorkflowResult, err error) {
	bySource := make(map[int64][]models.TaskTypeFlow)
	for _, f := range req.Flows {
		bySource[f.FromTaskTypeID] = append(bySource[f.FromTaskTypeID], f)
	}

	// Validate before opening the transaction: violations and referential
	// errors reject the whole batch without a single write.
	for _, n := range req.Nodes {
		if _, err := s.store.GetTaskType(n.ID); err != nil {
			return result, fmt.Errorf("position update for task type %d: %w", n.ID, err)
		}
	}
	for sourceID, flows := range bySource {
		if _, err := s.store.GetTaskType(sourceID); err != nil {
			return result, fmt.Errorf("flow source task type %d: %w", sourceID, err)
		}
		for _, f := range flows {
			if _, err := s.store.GetTaskType(f.ToTaskTypeID); err != nil {
				return result, fmt.Errorf("flow target task type %d: %w", f.ToTaskTypeID, err)
			}
		}
		questions, err := s.store.GetQuestions(sourceID)
		if err != nil {
			return result, err
		}
		for i := range questions {
			questions[i].NormalizeOverlays()
		}
		if v := ValidateOutgoingSet(sourceID, flows, questions); v != nil {
			return result, v
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
			return
		}
		s.appendAudit(actorID, "workflow.save", "workflow", "graph", fmt.Sprintf(
			"nodes=%d flowsCreated=%d flowsDeleted=%d",
			result.NodesTouched, result.FlowsCreated, result.FlowsDeleted))
	}()

	for _, id := range req.DeletedFlowIDs {
		if err = txStore.DeleteFlow(id); err != nil {
			return result, fmt.Errorf("delete flow %s: %w", id, err)
		}
	}
	result.FlowsDeleted = len(req.DeletedFlowIDs)

	for _, n := range req.Nodes {
		if err = txStore.UpdateTaskTypePosition(n.ID, n.PositionX, n.PositionY); err != nil {
			return result, fmt.Errorf("update position of task type %d: %w", n.ID, err)
		}
	}
	result.NodesTouched = len(req.Nodes)

	for sourceID, flows := range bySource {
		if err = txStore.DeleteFlowsBySource(sourceID); err != nil {
			return result, fmt.Errorf("clear flows of task type %d: %w", sourceID, err)
		}
		for i := range flows {
			if flows[i].ID == "" {
				flows[i].ID = uuid.NewString()
			}
			if flows[i].Order == 0 {
				flows[i].Order = i
			}
			if err = txStore.SaveFlow(flows[i]); err != nil {
				return result, fmt.Errorf("save flow %s: %w", flows[i].ID, err)
			}
			result.FlowsCreated++
		}
	}

	s.logger.Infof("Saved workflow graph: %d nodes, %d flows created, %d flows deleted",
		result.NodesTouched, result.FlowsCreated, result.FlowsDeleted)
	return result, nil
}

// GetGraph loads every active task type with its questionnaire (overlays
// normalized) and outgoing flows, ordered for the graph editor.
func (s *WorkflowService) GetGraph() ([]models.TaskType, error) {
	taskTypes, err := s.store.ListTaskTypes()
	if err != nil {
		return nil, err
	}
	graph := make([]models.TaskType, 0, len(taskTypes))
	for _, tt := range taskTypes {
		if !tt.IsActive {
			continue
		}
		questions, err := s.store.GetQuestions(tt.ID)
		if err != nil {
			return nil, err
		}
		for i := range questions {
			questions[i].NormalizeOverlays()
		}
		tt.Questions = questions
		flows, err := s.store.ListFlowsBySource(tt.ID)
		if err != nil {
			return nil, err
		}
		tt.OutgoingFlows = flows
		graph = append(graph, tt)
	}
	return graph, nil
}

// ListTaskTypes returns all task types, including inactive ones, for admin
// listings.
func (s *WorkflowService) ListTaskTypes() ([]models.TaskType, error) {
	return s.store.ListTaskTypes()
}

// CreateTaskType adds a node to the graph. Position stays unset until the
// node is first placed in the graph view.
func (s *WorkflowService) CreateTaskType(actorID int64, tt models.TaskType) (int64, error) {
	if tt.Code == "" || tt.Label == "" {
		return 0, errors.New("task type code and label are required")
	}
	tt.IsActive = true
	id, err := s.store.SaveTaskType(tt)
	if err != nil {
		return 0, err
	}
	s.appendAudit(actorID, "tasktype.create", "task_type", fmt.Sprint(id), tt.Label)
	return id, nil
}

// DeleteTaskType soft-deletes a node. Deletion is refused while flow edges
// still touch the node; the caller must remove them first so the graph never
// holds edges into a vanished type.
func (s *WorkflowService) DeleteTaskType(actorID int64, id int64) error {
	if err := s.store.DeleteTaskType(id); err != nil {
		return err
	}
	s.appendAudit(actorID, "tasktype.delete", "task_type", fmt.Sprint(id), "")
	return nil
}

// appendAudit writes to the audit sink outside any transaction. Failures are
// logged and swallowed; audit is best-effort.
func (s *WorkflowService) appendAudit(actorID int64, action, entity, entityID, details string) {
	err := s.store.AppendAudit(models.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
	})
	if err != nil {
		s.logger.Errorf("Failed to append audit entry for %s: %v", action, err)
	}
}
