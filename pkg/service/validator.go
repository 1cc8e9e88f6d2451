package service

import (
	"fmt"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
)

// ViolationCode identifies why a proposed outgoing edge set was rejected.
type ViolationCode string

const (
	// SelfLoop: an edge's source equals its target.
	SelfLoop ViolationCode = "SELF_LOOP"
	// MixedFlowKind: the set contains both a fixed flow and conditioned edges.
	MixedFlowKind ViolationCode = "MIXED_FLOW_KIND"
	// MultipleFixedFlows: more than one edge without a condition.
	MultipleFixedFlows ViolationCode = "MULTIPLE_FIXED_FLOWS"
	// MultiQuestionBranch: conditioned edges reference more than one question.
	MultiQuestionBranch ViolationCode = "MULTI_QUESTION_BRANCH"
	// DuplicateAnswer: two conditioned edges share the same answer.
	DuplicateAnswer ViolationCode = "DUPLICATE_ANSWER"
	// UnknownQuestion: a condition references a question not owned by the source.
	UnknownQuestion ViolationCode = "UNKNOWN_QUESTION"
	// UnknownAnswer: a condition's answer is not one of the question's options.
	UnknownAnswer ViolationCode = "UNKNOWN_ANSWER"
)

// Violation is a rejected edge constraint. It satisfies error so callers can
// propagate it, but the editor surfaces Code and FlowLabel at the offending
// node rather than the message text.
type Violation struct {
	Code         ViolationCode `json:"code"`
	SourceTypeID int64         `json:"sourceTypeId"`
	Message      string        `json:"message"`
}

func (v *Violation) Error() string {
	return fmt.Sprintf("edge constraint violated on task type %d: %s (%s)", v.SourceTypeID, v.Message, v.Code)
}

// ValidateOutgoingSet checks the node-level invariants on the complete
// proposed outgoing edge set of one source task type. The set must be empty,
// a single fixed flow, or two or more conditioned edges branching on one
// question with pairwise-distinct answers. Runs advisory at edit time and
// again, authoritatively, inside the save transaction.
//
// questions must be the source type's questionnaire with overlays already
// normalized; it backs the referential checks on conditions.
func ValidateOutgoingSet(sourceTypeID int64, flows []models.TaskTypeFlow, questions []models.Question) *Violation {
	for _, f := range flows {
		if f.ToTaskTypeID == f.FromTaskTypeID {
			return &Violation{
				Code:         SelfLoop,
				SourceTypeID: sourceTypeID,
				Message:      "a task type cannot flow into itself",
			}
		}
	}

	var fixed, conditioned []models.TaskTypeFlow
	for _, f := range flows {
		if f.Conditioned() {
			conditioned = append(conditioned, f)
		} else {
			fixed = append(fixed, f)
		}
	}

	if len(fixed) > 0 && len(conditioned) > 0 {
		return &Violation{
			Code:         MixedFlowKind,
			SourceTypeID: sourceTypeID,
			Message:      "fixed and conditioned flows cannot coexist on one task type",
		}
	}
	if len(fixed) > 1 {
		return &Violation{
			Code:         MultipleFixedFlows,
			SourceTypeID: sourceTypeID,
			Message:      "only one unconditional flow is allowed per task type",
		}
	}

	seenAnswers := make(map[string]bool, len(conditioned))
	for _, f := range conditioned {
		if f.Condition.QuestionID != conditioned[0].Condition.QuestionID {
			return &Violation{
				Code:         MultiQuestionBranch,
				SourceTypeID: sourceTypeID,
				Message:      "conditioned flows must all branch on the same question",
			}
		}
		if seenAnswers[f.Condition.Answer] {
			return &Violation{
				Code:         DuplicateAnswer,
				SourceTypeID: sourceTypeID,
				Message:      fmt.Sprintf("answer %q is already claimed by another flow", f.Condition.Answer),
			}
		}
		seenAnswers[f.Condition.Answer] = true
	}

	for _, f := range conditioned {
		q, ok := findQuestion(questions, f.Condition.QuestionID)
		if !ok {
			return &Violation{
				Code:         UnknownQuestion,
				SourceTypeID: sourceTypeID,
				Message:      fmt.Sprintf("question %s does not belong to the source task type", f.Condition.QuestionID),
			}
		}
		if !q.HasOption(f.Condition.Answer) {
			return &Violation{
				Code:         UnknownAnswer,
				SourceTypeID: sourceTypeID,
				Message:      fmt.Sprintf("answer %q is not an option of question %q", f.Condition.Answer, q.Label),
			}
		}
	}
	return nil
}

// AvailableAnswers returns the question's options not yet claimed by a
// conditioned edge in flows. An empty result tells the editor that every
// branch is taken and a new edge would need a new question.
func AvailableAnswers(q models.Question, flows []models.TaskTypeFlow) []string {
	claimed := make(map[string]bool)
	for _, f := range flows {
		if f.Conditioned() && f.Condition.QuestionID == q.ID {
			claimed[f.Condition.Answer] = true
		}
	}
	available := []string{}
	for _, opt := range q.Options {
		if !claimed[opt] {
			available = append(available, opt)
		}
	}
	return available
}

func findQuestion(questions []models.Question, id string) (models.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}
