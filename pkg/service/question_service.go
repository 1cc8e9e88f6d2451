package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

// QuestionService is the questionnaire store: per-task-type question lists
// with their per-option trigger/reminder/explanation overlays.
type QuestionService struct {
	store  storage.Store
	logger Logger
}

func NewQuestionService(store storage.Store, logger Logger) *QuestionService {
	return &QuestionService{store: store, logger: logger}
}

// GetQuestions returns the task type's questionnaire in order. Overlay
// entries whose answer no longer matches an option are dropped on the way
// out, so stale graph references never reach the editor. Rows written before
// write-time overlay validation existed may still carry such entries.
func (s *QuestionService) GetQuestions(taskTypeID int64) ([]models.Question, error) {
	if _, err := s.store.GetTaskType(taskTypeID); err != nil {
		return nil, err
	}
	questions, err := s.store.GetQuestions(taskTypeID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].NormalizeOverlays()
	}
	return questions, nil
}

// PutQuestions replaces the task type's entire questionnaire. The editor
// always round-trips the full list, never a partial patch. Overlays are
// validated against options here, at write time, so an invalid trigger is
// rejected immediately instead of silently vanishing on the next read.
func (s *QuestionService) PutQuestions(taskTypeID int64, questions []models.Question) (err error) {
	for i := range questions {
		if err := validateQuestion(questions[i]); err != nil {
			return err
		}
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		questions[i].TaskTypeID = taskTypeID
		questions[i].Order = i
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return err
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

	if _, err = txStore.GetTaskType(taskTypeID); err != nil {
		return err
	}
	if err = txStore.ReplaceQuestions(taskTypeID, questions); err != nil {
		return fmt.Errorf("replace questions for task type %d: %w", taskTypeID, err)
	}
	s.logger.Infof("Replaced questionnaire of task type %d with %d questions", taskTypeID, len(questions))
	return nil
}

func validateQuestion(q models.Question) error {
	if q.Label == "" {
		return errors.New("question label cannot be empty")
	}
	switch q.Type {
	case models.TextQuestion:
		if len(q.Options) > 0 {
			return errors.Errorf("free-text question %q cannot carry options", q.Label)
		}
	case models.RadioQuestion:
		if len(q.Options) < 2 {
			return errors.Errorf("single-choice question %q needs at least two options", q.Label)
		}
	default:
		return errors.Errorf("unknown question type %q", q.Type)
	}
	for _, t := range q.Triggers {
		if !q.HasOption(t.Answer) {
			return errors.Errorf("trigger on question %q references unknown option %q", q.Label, t.Answer)
		}
	}
	for _, r := range q.Reminders {
		if !q.HasOption(r.Answer) {
			return errors.Errorf("reminder on question %q references unknown option %q", q.Label, r.Answer)
		}
	}
	for _, e := range q.Explanations {
		if !q.HasOption(e.Answer) {
			return errors.Errorf("explanation on question %q references unknown option %q", q.Label, e.Answer)
		}
	}
	return nil
}
