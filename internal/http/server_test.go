package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	internal_http "github.com/Eric920418/Manpower-sub000/internal/http"
	"github.com/Eric920418/Manpower-sub000/internal/log"
	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/service"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

func newServer(store storage.Store) *httptest.Server {
	logger := log.GetLogger()
	wf := service.NewWorkflowService(store, logger)
	questions := service.NewQuestionService(store, logger)
	evaluator := service.NewCascadeEvaluator(store, logger)
	reminders := service.NewReminderService(store, logger)
	assignments := service.NewAssignmentService(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", internal_http.HealthHandler)
	mux.HandleFunc("/workflow/graph", internal_http.GraphHandler(wf))
	mux.HandleFunc("/workflow/save", internal_http.SaveWorkflowHandler(wf))
	mux.HandleFunc("/task-types", internal_http.TaskTypesHandler(wf))
	mux.HandleFunc("/task-types/", internal_http.TaskTypeByIDHandler(wf, questions, assignments))
	mux.HandleFunc("/answers", internal_http.AnswersHandler(evaluator))
	mux.HandleFunc("/reminders", internal_http.RemindersHandler(reminders))
	mux.HandleFunc("/reminders/due", internal_http.DueRemindersHandler(reminders))
	mux.HandleFunc("/reminders/shown", internal_http.RemindersShownHandler(reminders))
	mux.HandleFunc("/reminders/", internal_http.ReminderByIDHandler(reminders))
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	resp, err := srv.Client().Do(req)
	assert.NoError(t, err)
	return resp
}

func seedTypes(t *testing.T, store storage.Store, labels ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(labels))
	for _, label := range labels {
		id, err := store.SaveTaskType(models.TaskType{Code: label, Label: label, IsActive: true})
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestServer(t *testing.T) {
	t.Run("HealthCheck", func(t *testing.T) {
		srv := newServer(storage.NewMockStore())
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL + "/health")
		assert.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("SaveAndReadGraph", func(t *testing.T) {
		store := storage.NewMockStore()
		ids := seedTypes(t, store, "A", "B")
		srv := newServer(store)
		defer srv.Close()

		resp := doJSON(t, srv, http.MethodPost, "/workflow/save", map[string]interface{}{
			"nodes": []map[string]interface{}{
				{"id": ids[0], "positionX": 10, "positionY": 20},
			},
			"flows": []map[string]interface{}{
				{"fromTaskTypeId": ids[0], "toTaskTypeId": ids[1]},
			},
			"deletedFlowIds": []string{},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.SaveWorkflowResult
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, 1, result.NodesTouched)
		assert.Equal(t, 1, result.FlowsCreated)

		graphResp := doJSON(t, srv, http.MethodGet, "/workflow/graph", nil)
		defer graphResp.Body.Close()
		assert.Equal(t, http.StatusOK, graphResp.StatusCode)

		var graph []models.TaskType
		assert.NoError(t, json.NewDecoder(graphResp.Body).Decode(&graph))
		assert.Len(t, graph, 2)
		assert.Len(t, graph[0].OutgoingFlows, 1)
		assert.Equal(t, ids[1], graph[0].OutgoingFlows[0].ToTaskTypeID)
	})

	t.Run("SaveViolationSurfacedWithCode", func(t *testing.T) {
		store := storage.NewMockStore()
		ids := seedTypes(t, store, "A")
		srv := newServer(store)
		defer srv.Close()

		resp := doJSON(t, srv, http.MethodPost, "/workflow/save", map[string]interface{}{
			"flows": []map[string]interface{}{
				{"fromTaskTypeId": ids[0], "toTaskTypeId": ids[0]},
			},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var violation service.Violation
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&violation))
		assert.Equal(t, service.SelfLoop, violation.Code)
		assert.Equal(t, ids[0], violation.SourceTypeID)
	})

	t.Run("QuestionsRoundTrip", func(t *testing.T) {
		store := storage.NewMockStore()
		ids := seedTypes(t, store, "A")
		srv := newServer(store)
		defer srv.Close()

		path := fmt.Sprintf("/task-types/%d/questions", ids[0])
		putResp := doJSON(t, srv, http.MethodPut, path, []map[string]interface{}{
			{
				"label":    "Approved?",
				"type":     "RADIO",
				"options":  []string{"Yes", "No"},
				"required": true,
			},
		})
		defer putResp.Body.Close()
		assert.Equal(t, http.StatusOK, putResp.StatusCode)

		getResp := doJSON(t, srv, http.MethodGet, path, nil)
		defer getResp.Body.Close()
		assert.Equal(t, http.StatusOK, getResp.StatusCode)

		var questions []models.Question
		assert.NoError(t, json.NewDecoder(getResp.Body).Decode(&questions))
		assert.Len(t, questions, 1)
		assert.Equal(t, "Approved?", questions[0].Label)
		assert.Equal(t, pq.StringArray{"Yes", "No"}, questions[0].Options)
	})

	t.Run("AnswerCascade", func(t *testing.T) {
		store := storage.NewMockStore()
		ids := seedTypes(t, store, "Review", "Fix-up")
		q := models.Question{
			ID:         "q-ok",
			TaskTypeID: ids[0],
			Label:      "All documents in order?",
			Type:       models.RadioQuestion,
			Options:    pq.StringArray{"Yes", "No"},
			Triggers:   []models.AnswerTrigger{{QuestionID: "q-ok", Answer: "No", TaskTypeID: ids[1]}},
		}
		assert.NoError(t, store.ReplaceQuestions(ids[0], []models.Question{q}))
		taskID, err := store.SaveTask(models.Task{TaskTypeID: ids[0], OwnerID: 42, Status: models.OpenTaskStatus})
		assert.NoError(t, err)
		srv := newServer(store)
		defer srv.Close()

		resp := doJSON(t, srv, http.MethodPost, "/answers", map[string]interface{}{
			"taskId":     taskID,
			"taskTypeId": ids[0],
			"questionId": "q-ok",
			"answer":     "No",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var outcome service.CascadeOutcome
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
		assert.NotNil(t, outcome.Spawn)
		assert.Equal(t, ids[1], outcome.Spawn.TaskTypeID)
		assert.Equal(t, int64(42), outcome.Spawn.OwnerID) // actor from header
	})

	t.Run("ReminderLifecycle", func(t *testing.T) {
		store := storage.NewMockStore()
		id, err := store.SaveReminder(models.PendingTaskReminder{
			UserID: 42, SourceTaskID: 1, TaskTypeID: 2, TaskTypeLabel: "Fix-up",
		})
		assert.NoError(t, err)
		srv := newServer(store)
		defer srv.Close()

		listResp := doJSON(t, srv, http.MethodGet, "/reminders", nil)
		defer listResp.Body.Close()
		var reminders []models.PendingTaskReminder
		assert.NoError(t, json.NewDecoder(listResp.Body).Decode(&reminders))
		assert.Len(t, reminders, 1)

		dueResp := doJSON(t, srv, http.MethodGet, "/reminders/due", nil)
		defer dueResp.Body.Close()
		var due []models.PendingTaskReminder
		assert.NoError(t, json.NewDecoder(dueResp.Body).Decode(&due))
		assert.Len(t, due, 1)

		shownResp := doJSON(t, srv, http.MethodPost, "/reminders/shown", map[string]interface{}{
			"ids": []int64{id},
		})
		defer shownResp.Body.Close()
		assert.Equal(t, http.StatusOK, shownResp.StatusCode)

		dueResp = doJSON(t, srv, http.MethodGet, "/reminders/due", nil)
		defer dueResp.Body.Close()
		due = nil
		assert.NoError(t, json.NewDecoder(dueResp.Body).Decode(&due))
		assert.Empty(t, due)

		completeResp := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/reminders/%d/complete", id), map[string]interface{}{
			"completedTaskId": 77,
		})
		defer completeResp.Body.Close()
		assert.Equal(t, http.StatusOK, completeResp.StatusCode)

		listResp = doJSON(t, srv, http.MethodGet, "/reminders", nil)
		defer listResp.Body.Close()
		reminders = nil
		assert.NoError(t, json.NewDecoder(listResp.Body).Decode(&reminders))
		assert.Empty(t, reminders)
	})

	t.Run("DismissReminder", func(t *testing.T) {
		store := storage.NewMockStore()
		id, err := store.SaveReminder(models.PendingTaskReminder{
			UserID: 42, SourceTaskID: 1, TaskTypeID: 2, TaskTypeLabel: "Fix-up",
		})
		assert.NoError(t, err)
		srv := newServer(store)
		defer srv.Close()

		resp := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/reminders/%d", id), nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/reminders/%d", id), nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("ApplyDefaults", func(t *testing.T) {
		store := storage.NewMockStore()
		ids := seedTypes(t, store, "Audit")
		assert.NoError(t, store.SaveDefaultAssignment(models.DefaultAssignment{
			TaskTypeID: ids[0], UserID: 10, Role: models.HandlerRole,
		}))
		_, err := store.SaveTask(models.Task{TaskTypeID: ids[0], OwnerID: 1, Status: models.OpenTaskStatus})
		assert.NoError(t, err)
		srv := newServer(store)
		defer srv.Close()

		resp := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/task-types/%d/apply-defaults", ids[0]), nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.ApplyDefaultsResult
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, 1, result.UpdatedTaskCount)
		assert.Equal(t, 1, result.NewAssignmentCount)
	})

	t.Run("InvalidBodyRejected", func(t *testing.T) {
		srv := newServer(storage.NewMockStore())
		defer srv.Close()

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/workflow/save", bytes.NewBufferString("{not json"))
		assert.NoError(t, err)
		resp, err := srv.Client().Do(req)
		assert.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
