package service_test

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/service"
)

func approvedQuestion() models.Question {
	return models.Question{
		ID:      "q-approved",
		Label:   "Approved?",
		Type:    models.RadioQuestion,
		Options: pq.StringArray{"Yes", "No"},
	}
}

func conditioned(from, to int64, questionID, answer string) models.TaskTypeFlow {
	return models.TaskTypeFlow{
		FromTaskTypeID: from,
		ToTaskTypeID:   to,
		Condition:      &models.FlowCondition{QuestionID: questionID, Answer: answer},
	}
}

func fixed(from, to int64) models.TaskTypeFlow {
	return models.TaskTypeFlow{FromTaskTypeID: from, ToTaskTypeID: to}
}

func TestValidateOutgoingSet(t *testing.T) {
	questions := []models.Question{approvedQuestion()}

	t.Run("EmptySetIsTerminal", func(t *testing.T) {
		v := service.ValidateOutgoingSet(1, nil, questions)
		assert.Nil(t, v)
	})

	t.Run("SingleFixedFlow", func(t *testing.T) {
		v := service.ValidateOutgoingSet(1, []models.TaskTypeFlow{fixed(1, 2)}, questions)
		assert.Nil(t, v)
	})

	t.Run("BranchOnOneQuestion", func(t *testing.T) {
		flows := []models.TaskTypeFlow{
			conditioned(1, 2, "q-approved", "Yes"),
			conditioned(1, 3, "q-approved", "No"),
		}
		v := service.ValidateOutgoingSet(1, flows, questions)
		assert.Nil(t, v)
	})

	t.Run("SelfLoop", func(t *testing.T) {
		v := service.ValidateOutgoingSet(1, []models.TaskTypeFlow{fixed(1, 1)}, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.SelfLoop, v.Code)
	})

	t.Run("MixedFlowKind", func(t *testing.T) {
		flows := []models.TaskTypeFlow{
			conditioned(1, 2, "q-approved", "Yes"),
			conditioned(1, 3, "q-approved", "No"),
			fixed(1, 4),
		}
		v := service.ValidateOutgoingSet(1, flows, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.MixedFlowKind, v.Code)
	})

	t.Run("MultipleFixedFlows", func(t *testing.T) {
		v := service.ValidateOutgoingSet(1, []models.TaskTypeFlow{fixed(1, 2), fixed(1, 3)}, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.MultipleFixedFlows, v.Code)
	})

	t.Run("MultiQuestionBranch", func(t *testing.T) {
		other := models.Question{
			ID:      "q-other",
			Label:   "Reviewed?",
			Type:    models.RadioQuestion,
			Options: pq.StringArray{"Yes", "No"},
		}
		flows := []models.TaskTypeFlow{
			conditioned(1, 2, "q-approved", "Yes"),
			conditioned(1, 3, "q-other", "No"),
		}
		v := service.ValidateOutgoingSet(1, flows, []models.Question{approvedQuestion(), other})
		assert.NotNil(t, v)
		assert.Equal(t, service.MultiQuestionBranch, v.Code)
	})

	t.Run("DuplicateAnswer", func(t *testing.T) {
		flows := []models.TaskTypeFlow{
			conditioned(1, 2, "q-approved", "Yes"),
			conditioned(1, 3, "q-approved", "Yes"),
		}
		v := service.ValidateOutgoingSet(1, flows, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.DuplicateAnswer, v.Code)
	})

	t.Run("UnknownQuestion", func(t *testing.T) {
		flows := []models.TaskTypeFlow{conditioned(1, 2, "q-missing", "Yes")}
		v := service.ValidateOutgoingSet(1, flows, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.UnknownQuestion, v.Code)
	})

	t.Run("UnknownAnswer", func(t *testing.T) {
		flows := []models.TaskTypeFlow{conditioned(1, 2, "q-approved", "Maybe")}
		v := service.ValidateOutgoingSet(1, flows, questions)
		assert.NotNil(t, v)
		assert.Equal(t, service.UnknownAnswer, v.Code)
	})
}

func TestAvailableAnswers(t *testing.T) {
	q := approvedQuestion()

	t.Run("AllFree", func(t *testing.T) {
		assert.Equal(t, []string{"Yes", "No"}, service.AvailableAnswers(q, nil))
	})

	t.Run("OneClaimed", func(t *testing.T) {
		flows := []models.TaskTypeFlow{conditioned(1, 2, "q-approved", "Yes")}
		assert.Equal(t, []string{"No"}, service.AvailableAnswers(q, flows))
	})

	t.Run("Exhausted", func(t *testing.T) {
		flows := []models.TaskTypeFlow{
			conditioned(1, 2, "q-approved", "Yes"),
			conditioned(1, 3, "q-approved", "No"),
		}
		// every branch taken: the editor must demand a new question
		assert.Empty(t, service.AvailableAnswers(q, flows))
	})
}
