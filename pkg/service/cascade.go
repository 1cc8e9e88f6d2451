package service

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

// AnswerInput is a recorded questionnaire answer on a task instance.
type AnswerInput struct {
	TaskID     int64  `json:"taskId" validate:"required"`
	TaskTypeID int64  `json:"taskTypeId" validate:"required"`
	UserID     int64  `json:"userId"`
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// SpawnTask carries the parameters for a follow-up task instance. The
// evaluator does not create the row; the task-completion flow owning the
// answer does, using these parameters.
type SpawnTask struct {
	TaskTypeID    int64  `json:"taskTypeId"`
	TaskTypeLabel string `json:"taskTypeLabel"`
	OwnerID       int64  `json:"ownerId"`
	SourceTaskID  int64  `json:"sourceTaskId"`
}

// CascadeOutcome is what an answer set in motion. The three overlays are
// independent; any combination may be present for a single answer.
type CascadeOutcome struct {
	Spawn               *SpawnTask                  `json:"spawn,omitempty"`
	Reminder            *models.PendingTaskReminder `json:"reminder,omitempty"`
	ReminderMessage     string                      `json:"reminderMessage,omitempty"`
	ExplanationRequired bool                        `json:"explanationRequired"`
	ExplanationPrompt   string                      `json:"explanationPrompt,omitempty"`
	SkippedInactive     bool                        `json:"skippedInactive,omitempty"` // trigger matched but target is soft-deleted
}

// CascadeEvaluator is the runtime counterpart of the authored graph: given a
// completed answer it resolves the matching overlays into follow-up work.
type CascadeEvaluator struct {
	store  storage.Store
	logger Logger
}

func NewCascadeEvaluator(store storage.Store, logger Logger) *CascadeEvaluator {
	return &CascadeEvaluator{store: store, logger: logger}
}

// Evaluate resolves one answer. Trigger overlays produce task-creation
// parameters; reminder overlays upsert a PendingTaskReminder keyed by
// (user, source task, target type), so replaying the same answer converges to
// one reminder; explanation overlays gate the answer on free-text
// elaboration. A trigger whose target type has been soft-deleted is skipped,
// not an error.
func (e *CascadeEvaluator) Evaluate(in AnswerInput) (CascadeOutcome, error) {
	outcome := CascadeOutcome{}

	question, err := e.store.GetQuestion(in.QuestionID)
	if err != nil {
		return outcome, fmt.Errorf("question %s: %w", in.QuestionID, err)
	}
	if question.TaskTypeID != in.TaskTypeID {
		return outcome, errors.Errorf("question %s does not belong to task type %d", in.QuestionID, in.TaskTypeID)
	}
	if question.Type == models.RadioQuestion && !question.HasOption(in.Answer) {
		return outcome, errors.Errorf("answer %q is not an option of question %q", in.Answer, question.Label)
	}
	question.NormalizeOverlays()

	for _, t := range question.Triggers {
		if t.Answer != in.Answer {
			continue
		}
		target, err := e.store.GetTaskType(t.TaskTypeID)
		if err != nil {
			return outcome, fmt.Errorf("trigger target task type %d: %w", t.TaskTypeID, err)
		}
		if !target.IsActive {
			e.logger.Infof("Skipping trigger to inactive task type %d (%s)", target.ID, target.Label)
			outcome.SkippedInactive = true
			continue
		}
		outcome.Spawn = &SpawnTask{
			TaskTypeID:    target.ID,
			TaskTypeLabel: target.Label,
			OwnerID:       in.UserID,
			SourceTaskID:  in.TaskID,
		}
		break
	}

	for _, r := range question.Reminders {
		if r.Answer != in.Answer {
			continue
		}
		reminder, err := e.upsertReminder(in)
		if err != nil {
			return outcome, err
		}
		outcome.Reminder = reminder
		outcome.ReminderMessage = r.Message
		break
	}

	for _, ex := range question.Explanations {
		if ex.Answer == in.Answer {
			outcome.ExplanationRequired = true
			outcome.ExplanationPrompt = ex.Prompt
			break
		}
	}

	return outcome, nil
}

// upsertReminder returns the existing open reminder for the key, or creates
// one. Concurrent duplicate submissions of the same answer converge here.
func (e *CascadeEvaluator) upsertReminder(in AnswerInput) (*models.PendingTaskReminder, error) {
	existing, err := e.store.FindOpenReminder(in.UserID, in.TaskID, in.TaskTypeID)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	target, err := e.store.GetTaskType(in.TaskTypeID)
	if err != nil {
		return nil, fmt.Errorf("reminder task type %d: %w", in.TaskTypeID, err)
	}
	now := time.Now()
	reminder := models.PendingTaskReminder{
		UserID:        in.UserID,
		SourceTaskID:  in.TaskID,
		TaskTypeID:    target.ID,
		TaskTypeLabel: target.Label,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := e.store.SaveReminder(reminder)
	if err != nil {
		return nil, fmt.Errorf("save reminder: %w", err)
	}
	reminder.ID = id
	e.logger.Infof("Raised reminder %d for user %d (task %d, type %s)", id, in.UserID, in.TaskID, target.Label)
	return &reminder, nil
}
