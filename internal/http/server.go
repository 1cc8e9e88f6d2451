package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/internal/log"
	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/service"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

var validate = validator.New()

// StartServer wires the workflow core's JSON API. Authentication happens
// upstream; the authenticated actor arrives in the X-User-ID header.
func StartServer(port string, store storage.Store) error {
	logger := log.GetLogger()
	wf := service.NewWorkflowService(store, logger)
	questions := service.NewQuestionService(store, logger)
	evaluator := service.NewCascadeEvaluator(store, logger)
	reminders := service.NewReminderService(store, logger)
	assignments := service.NewAssignmentService(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/workflow/graph", GraphHandler(wf))
	mux.HandleFunc("/workflow/save", SaveWorkflowHandler(wf))
	mux.HandleFunc("/task-types", TaskTypesHandler(wf))
	mux.HandleFunc("/task-types/", TaskTypeByIDHandler(wf, questions, assignments))
	mux.HandleFunc("/answers", AnswersHandler(evaluator))
	mux.HandleFunc("/reminders", RemindersHandler(reminders))
	mux.HandleFunc("/reminders/due", DueRemindersHandler(reminders))
	mux.HandleFunc("/reminders/shown", RemindersShownHandler(reminders))
	mux.HandleFunc("/reminders/", ReminderByIDHandler(reminders))

	logger.Infof("Starting staffdesk server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "staffdesk server is running")
}

// GraphHandler serves the full workflow graph for the editor.
func GraphHandler(wf *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		graph, err := wf.GetGraph()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

// SaveWorkflowHandler commits one editor session of graph changes. The flows
// list must hold the complete outgoing set of every source it touches.
func SaveWorkflowHandler(wf *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req service.SaveWorkflowRequest
		if !decode(w, r, &req) {
			return
		}
		result, err := wf.SaveWorkflow(actorID(r), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func TaskTypesHandler(wf *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskTypes, err := wf.ListTaskTypes()
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, taskTypes)
		case http.MethodPost:
			var tt models.TaskType
			if !decode(w, r, &tt) {
				return
			}
			id, err := wf.CreateTaskType(actorID(r), tt)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// TaskTypeByIDHandler routes /task-types/{id}, /task-types/{id}/questions and
// /task-types/{id}/apply-defaults.
func TaskTypeByIDHandler(wf *service.WorkflowService, questions *service.QuestionService, assignments *service.AssignmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/task-types/")
		parts := strings.SplitN(rest, "/", 2)
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			http.Error(w, "Invalid task type id", http.StatusBadRequest)
			return
		}
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}

		switch {
		case sub == "" && r.Method == http.MethodDelete:
			if err := wf.DeleteTaskType(actorID(r), id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		case sub == "questions" && r.Method == http.MethodGet:
			qs, err := questions.GetQuestions(id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, qs)
		case sub == "questions" && r.Method == http.MethodPut:
			var qs []models.Question
			if !decode(w, r, &qs) {
				return
			}
			if err := questions.PutQuestions(id, qs); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		case sub == "apply-defaults" && r.Method == http.MethodPost:
			result, err := assignments.ApplyDefaults(actorID(r), &id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

// AnswersHandler records a questionnaire answer and returns its cascade
// outcome: spawned-task parameters, the raised reminder, or an explanation
// gate.
func AnswersHandler(evaluator *service.CascadeEvaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var in service.AnswerInput
		if !decode(w, r, &in) {
			return
		}
		if in.UserID == 0 {
			in.UserID = actorID(r)
		}
		outcome, err := evaluator.Evaluate(in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func RemindersHandler(reminders *service.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		list, err := reminders.ListAll(actorID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func DueRemindersHandler(reminders *service.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		list, err := reminders.ListDue(actorID(r), time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type remindersShownRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// RemindersShownHandler stamps a whole toast presentation in one call.
func RemindersShownHandler(reminders *service.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req remindersShownRequest
		if !decode(w, r, &req) {
			return
		}
		if err := reminders.TouchShown(req.IDs, time.Now()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

type completeReminderRequest struct {
	CompletedTaskID int64 `json:"completedTaskId" validate:"required"`
}

// ReminderByIDHandler routes /reminders/{id}/complete and DELETE
// /reminders/{id}.
func ReminderByIDHandler(reminders *service.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/reminders/")
		parts := strings.SplitN(rest, "/", 2)
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			http.Error(w, "Invalid reminder id", http.StatusBadRequest)
			return
		}

		switch {
		case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
			var req completeReminderRequest
			if !decode(w, r, &req) {
				return
			}
			if err := reminders.Complete(id, req.CompletedTaskID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		case len(parts) == 1 && r.Method == http.MethodDelete:
			if err := reminders.Dismiss(id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.GetLogger().Errorf("Failed to decode request body: %v", err)
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	switch dest.(type) {
	case *[]models.Question:
		// per-question validation happens in the service layer
	default:
		if err := validate.Struct(dest); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps service errors onto status codes. Violations stay
// structured so the editor can surface them inline at the offending node.
func writeError(w http.ResponseWriter, err error) {
	var violation *service.Violation
	if errors.As(err, &violation) {
		writeJSON(w, http.StatusUnprocessableEntity, violation)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if errors.Is(err, storage.ErrFlowsAttached) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	log.GetLogger().Errorf("Request failed: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
