package storage

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
)

// mockStore implements Store with in-memory storage. Begin snapshots the
// current state; Rollback restores it, Commit discards the snapshot.
type mockStore struct {
	taskTypes   []models.TaskType
	flows       []models.TaskTypeFlow
	questions   map[int64][]models.Question
	tasks       []models.Task
	defaults    []models.DefaultAssignment
	assignments []models.TaskAssignment
	reminders   []models.PendingTaskReminder
	audits      []models.AuditEntry

	nextTaskTypeID int64
	nextTaskID     int64
	nextReminderID int64

	snapshot *mockStore // set while a transaction is open
}

func NewMockStore() Store {
	return &mockStore{questions: make(map[int64][]models.Question)}
}

func (m *mockStore) Begin() (Store, error) {
	if m.snapshot != nil {
		return nil, errors.New("transaction already open")
	}
	m.snapshot = m.copyState()
	return m, nil
}

func (m *mockStore) Commit() error {
	if m.snapshot == nil {
		return errors.New("cannot commit: not a transaction")
	}
	m.snapshot = nil
	return nil
}

func (m *mockStore) Rollback() error {
	if m.snapshot == nil {
		return errors.New("cannot rollback: not a transaction")
	}
	snap := m.snapshot
	*m = *snap
	m.snapshot = nil
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

func (m *mockStore) copyState() *mockStore {
	cp := &mockStore{
		taskTypes:      append([]models.TaskType(nil), m.taskTypes...),
		flows:          append([]models.TaskTypeFlow(nil), m.flows...),
		questions:      make(map[int64][]models.Question, len(m.questions)),
		tasks:          append([]models.Task(nil), m.tasks...),
		defaults:       append([]models.DefaultAssignment(nil), m.defaults...),
		assignments:    append([]models.TaskAssignment(nil), m.assignments...),
		reminders:      append([]models.PendingTaskReminder(nil), m.reminders...),
		audits:         append([]models.AuditEntry(nil), m.audits...),
		nextTaskTypeID: m.nextTaskTypeID,
		nextTaskID:     m.nextTaskID,
		nextReminderID: m.nextReminderID,
	}
	for k, v := range m.questions {
		cp.questions[k] = append([]models.Question(nil), v...)
	}
	return cp
}

func (m *mockStore) ListTaskTypes() ([]models.TaskType, error) {
	out := append([]models.TaskType(nil), m.taskTypes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockStore) GetTaskType(id int64) (models.TaskType, error) {
	for _, tt := range m.taskTypes {
		if tt.ID == id {
			return tt, nil
		}
	}
	return models.TaskType{}, ErrNotFound
}

func (m *mockStore) SaveTaskType(tt models.TaskType) (int64, error) {
	for _, existing := range m.taskTypes {
		if existing.Code == tt.Code {
			return 0, errors.New("task type code already exists")
		}
	}
	m.nextTaskTypeID++
	tt.ID = m.nextTaskTypeID
	m.taskTypes = append(m.taskTypes, tt)
	return tt.ID, nil
}

func (m *mockStore) UpdateTaskTypePosition(id int64, x, y float64) error {
	for i, tt := range m.taskTypes {
		if tt.ID == id {
			m.taskTypes[i].PositionX = &x
			m.taskTypes[i].PositionY = &y
			m.taskTypes[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) DeleteTaskType(id int64) error {
	n, err := m.CountFlowsTouching(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrFlowsAttached
	}
	for i, tt := range m.taskTypes {
		if tt.ID == id {
			m.taskTypes[i].IsActive = false
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) ListFlows() ([]models.TaskTypeFlow, error) {
	return append([]models.TaskTypeFlow(nil), m.flows...), nil
}

func (m *mockStore) ListFlowsBySource(sourceTaskTypeID int64) ([]models.TaskTypeFlow, error) {
	var out []models.TaskTypeFlow
	for _, f := range m.flows {
		if f.FromTaskTypeID == sourceTaskTypeID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockStore) SaveFlow(f models.TaskTypeFlow) error {
	for _, existing := range m.flows {
		if existing.ID == f.ID {
			return errors.New("flow already exists")
		}
	}
	m.flows = append(m.flows, f)
	return nil
}

func (m *mockStore) DeleteFlow(id string) error {
	for i, f := range m.flows {
		if f.ID == id {
			m.flows = append(m.flows[:i], m.flows[i+1:]...)
			return nil
		}
	}
	return nil // deleting a missing flow is a no-op
}

func (m *mockStore) DeleteFlowsBySource(sourceTaskTypeID int64) error {
	kept := m.flows[:0]
	for _, f := range m.flows {
		if f.FromTaskTypeID != sourceTaskTypeID {
			kept = append(kept, f)
		}
	}
	m.flows = kept
	return nil
}

func (m *mockStore) CountFlowsTouching(taskTypeID int64) (int, error) {
	n := 0
	for _, f := range m.flows {
		if f.FromTaskTypeID == taskTypeID || f.ToTaskTypeID == taskTypeID {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GetQuestions(taskTypeID int64) ([]models.Question, error) {
	out := append([]models.Question(nil), m.questions[taskTypeID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockStore) GetQuestion(id string) (models.Question, error) {
	for _, qs := range m.questions {
		for _, q := range qs {
			if q.ID == id {
				return q, nil
			}
		}
	}
	return models.Question{}, ErrNotFound
}

func (m *mockStore) ReplaceQuestions(taskTypeID int64, questions []models.Question) error {
	m.questions[taskTypeID] = append([]models.Question(nil), questions...)
	return nil
}

func (m *mockStore) SaveTask(t models.Task) (int64, error) {
	m.nextTaskID++
	t.ID = m.nextTaskID
	m.tasks = append(m.tasks, t)
	return t.ID, nil
}

func (m *mockStore) GetTask(id int64) (models.Task, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (m *mockStore) ListOpenTasksByType(taskTypeID int64) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.tasks {
		if t.TaskTypeID == taskTypeID && !t.Status.Terminal() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) SaveDefaultAssignment(d models.DefaultAssignment) error {
	for _, existing := range m.defaults {
		if existing.TaskTypeID == d.TaskTypeID && existing.UserID == d.UserID && existing.Role == d.Role {
			return errors.New("default assignment already exists")
		}
	}
	m.defaults = append(m.defaults, d)
	return nil
}

func (m *mockStore) ListDefaultAssignments(taskTypeID int64) ([]models.DefaultAssignment, error) {
	var out []models.DefaultAssignment
	for _, d := range m.defaults {
		if d.TaskTypeID == taskTypeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) HasAssignment(taskID, userID int64, role models.AssignmentRole) (bool, error) {
	for _, a := range m.assignments {
		if a.TaskID == taskID && a.UserID == userID && a.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) SaveAssignment(a models.TaskAssignment) error {
	exists, _ := m.HasAssignment(a.TaskID, a.UserID, a.Role)
	if exists {
		return errors.New("assignment already exists")
	}
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *mockStore) ListReminders(userID int64) ([]models.PendingTaskReminder, error) {
	var out []models.PendingTaskReminder
	for _, r := range m.reminders {
		if r.UserID == userID && !r.IsCompleted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) ListDueReminders(userID int64, cutoff time.Time) ([]models.PendingTaskReminder, error) {
	var out []models.PendingTaskReminder
	for _, r := range m.reminders {
		if r.UserID != userID || r.IsCompleted {
			continue
		}
		if r.LastRemindedAt == nil || r.LastRemindedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) FindOpenReminder(userID, sourceTaskID, taskTypeID int64) (models.PendingTaskReminder, error) {
	for _, r := range m.reminders {
		if r.UserID == userID && r.SourceTaskID == sourceTaskID && r.TaskTypeID == taskTypeID && !r.IsCompleted {
			return r, nil
		}
	}
	return models.PendingTaskReminder{}, ErrNotFound
}

func (m *mockStore) SaveReminder(r models.PendingTaskReminder) (int64, error) {
	m.nextReminderID++
	r.ID = m.nextReminderID
	m.reminders = append(m.reminders, r)
	return r.ID, nil
}

func (m *mockStore) TouchReminders(ids []int64, now time.Time) error {
	for _, id := range ids {
		for i, r := range m.reminders {
			if r.ID == id {
				t := now
				m.reminders[i].LastRemindedAt = &t
				m.reminders[i].UpdatedAt = now
			}
		}
	}
	return nil
}

func (m *mockStore) CompleteReminder(id int64, completedTaskID int64) error {
	for i, r := range m.reminders {
		if r.ID == id {
			m.reminders[i].IsCompleted = true
			m.reminders[i].CompletedTaskID = &completedTaskID
			m.reminders[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) DeleteReminder(id int64) error {
	for i, r := range m.reminders {
		if r.ID == id {
			m.reminders = append(m.reminders[:i], m.reminders[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) AppendAudit(e models.AuditEntry) error {
	e.ID = int64(len(m.audits) + 1)
	m.audits = append(m.audits, e)
	return nil
}
