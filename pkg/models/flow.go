package models

// FlowCondition gates a transition on a specific answer to one of the source
// node's questions. QuestionID must belong to a question owned by the source
// TaskType and Answer must be one of that question's options.
type FlowCondition struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// TaskTypeFlow is a directed edge in the workflow graph. An edge without a
// condition is a fixed flow: the transition always applies.
type TaskTypeFlow struct {
	ID             string         `json:"id" db:"id"` // UUID
	FromTaskTypeID int64          `json:"fromTaskTypeId" db:"from_task_type_id" validate:"required"`
	ToTaskTypeID   int64          `json:"toTaskTypeId" db:"to_task_type_id" validate:"required"`
	Label          string         `json:"label,omitempty" db:"label"`
	Condition      *FlowCondition `json:"condition"`
	Order          int            `json:"order" db:"sort_order"`
}

// Conditioned reports whether the edge is gated on a question answer.
func (f TaskTypeFlow) Conditioned() bool {
	return f.Condition != nil
}
