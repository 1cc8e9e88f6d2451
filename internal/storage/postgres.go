package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// ListTaskTypes returns every task type, active or not, in admin order.
func (s *PostgresStore) ListTaskTypes() ([]models.TaskType, error) {
	taskTypes := []models.TaskType{}
	err := s.db.Select(&taskTypes, "SELECT * FROM task_types ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("list task types: %w", err)
	}
	return taskTypes, nil
}

func (s *PostgresStore) GetTaskType(id int64) (models.TaskType, error) {
	var tt models.TaskType
	err := s.db.Get(&tt, "SELECT * FROM task_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.TaskType{}, storage.ErrNotFound
	}
	if err != nil {
		return models.TaskType{}, fmt.Errorf("get task type %d: %w", id, err)
	}
	return tt, nil
}

// SaveTaskType creates a new task type and returns its ID.
func (s *PostgresStore) SaveTaskType(tt models.TaskType) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		"INSERT INTO task_types (code, label, description, sort_order, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		tt.Code, tt.Label, tt.Description, tt.Order, tt.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save task type: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateTaskTypePosition(id int64, x, y float64) error {
	res, err := s.db.Exec(
		"UPDATE task_types SET position_x = $1, position_y = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
		x, y, id)
	if err != nil {
		return fmt.Errorf("update task type %d position: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTaskType soft-deletes a task type. Refused while any flow edge still
// references the node, so the graph never carries edges into a removed type.
func (s *PostgresStore) DeleteTaskType(id int64) error {
	n, err := s.CountFlowsTouching(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return storage.ErrFlowsAttached
	}
	res, err := s.db.Exec(
		"UPDATE task_types SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task type %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// flowRow maps the nullable condition columns.
type flowRow struct {
	ID             string         `db:"id"`
	FromTaskTypeID int64          `db:"from_task_type_id"`
	ToTaskTypeID   int64          `db:"to_task_type_id"`
	Label          string         `db:"label"`
	QuestionID     sql.NullString `db:"question_id"`
	Answer         sql.NullString `db:"answer"`
	Order          int            `db:"sort_order"`
}

func (r flowRow) toModel() models.TaskTypeFlow {
	f := models.TaskTypeFlow{
		ID:             r.ID,
		FromTaskTypeID: r.FromTaskTypeID,
		ToTaskTypeID:   r.ToTaskTypeID,
		Label:          r.Label,
		Order:          r.Order,
	}
	if r.QuestionID.Valid {
		f.Condition = &models.FlowCondition{QuestionID: r.QuestionID.String, Answer: r.Answer.String}
	}
	return f
}

func (s *PostgresStore) ListFlows() ([]models.TaskTypeFlow, error) {
	rows := []flowRow{}
	err := s.db.Select(&rows, "SELECT * FROM task_type_flows ORDER BY from_task_type_id, sort_order")
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	flows := make([]models.TaskTypeFlow, len(rows))
	for i, r := range rows {
		flows[i] = r.toModel()
	}
	return flows, nil
}

func (s *PostgresStore) ListFlowsBySource(sourceTaskTypeID int64) ([]models.TaskTypeFlow, error) {
	rows := []flowRow{}
	err := s.db.Select(&rows,
		"SELECT * FROM task_type_flows WHERE from_task_type_id = $1 ORDER BY sort_order", sourceTaskTypeID)
	if err != nil {
		return nil, fmt.Errorf("list flows of task type %d: %w", sourceTaskTypeID, err)
	}
	flows := make([]models.TaskTypeFlow, len(rows))
	for i, r := range rows {
		flows[i] = r.toModel()
	}
	return flows, nil
}

func (s *PostgresStore) SaveFlow(f models.TaskTypeFlow) error {
	var questionID, answer interface{}
	if f.Condition != nil {
		questionID = f.Condition.QuestionID
		answer = f.Condition.Answer
	}
	_, err := s.db.Exec(
		"INSERT INTO task_type_flows (id, from_task_type_id, to_task_type_id, label, question_id, answer, sort_order) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		f.ID, f.FromTaskTypeID, f.ToTaskTypeID, f.Label, questionID, answer, f.Order)
	if err != nil {
		return fmt.Errorf("save flow %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteFlow(id string) error {
	_, err := s.db.Exec("DELETE FROM task_type_flows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) DeleteFlowsBySource(sourceTaskTypeID int64) error {
	_, err := s.db.Exec("DELETE FROM task_type_flows WHERE from_task_type_id = $1", sourceTaskTypeID)
	if err != nil {
		return fmt.Errorf("delete flows of task type %d: %w", sourceTaskTypeID, err)
	}
	return nil
}

func (s *PostgresStore) CountFlowsTouching(taskTypeID int64) (int, error) {
	var n int
	err := s.db.Get(&n,
		"SELECT COUNT(*) FROM task_type_flows WHERE from_task_type_id = $1 OR to_task_type_id = $1", taskTypeID)
	if err != nil {
		return 0, fmt.Errorf("count flows touching task type %d: %w", taskTypeID, err)
	}
	return n, nil
}

func (s *PostgresStore) GetQuestions(taskTypeID int64) ([]models.Question, error) {
	questions := []models.Question{}
	err := s.db.Select(&questions,
		"SELECT * FROM questions WHERE task_type_id = $1 ORDER BY sort_order", taskTypeID)
	if err != nil {
		return nil, fmt.Errorf("get questions of task type %d: %w", taskTypeID, err)
	}
	for i := range questions {
		if err := s.loadOverlays(&questions[i]); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func (s *PostgresStore) GetQuestion(id string) (models.Question, error) {
	var q models.Question
	err := s.db.Get(&q, "SELECT * FROM questions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Question{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Question{}, fmt.Errorf("get question %s: %w", id, err)
	}
	if err := s.loadOverlays(&q); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

func (s *PostgresStore) loadOverlays(q *models.Question) error {
	q.Triggers = []models.AnswerTrigger{}
	if err := s.db.Select(&q.Triggers,
		"SELECT * FROM question_triggers WHERE question_id = $1 ORDER BY answer", q.ID); err != nil {
		return fmt.Errorf("load triggers of question %s: %w", q.ID, err)
	}
	q.Reminders = []models.AnswerReminder{}
	if err := s.db.Select(&q.Reminders,
		"SELECT * FROM question_reminders WHERE question_id = $1 ORDER BY answer", q.ID); err != nil {
		return fmt.Errorf("load reminders of question %s: %w", q.ID, err)
	}
	q.Explanations = []models.AnswerExplanation{}
	if err := s.db.Select(&q.Explanations,
		"SELECT * FROM question_explanations WHERE question_id = $1 ORDER BY answer", q.ID); err != nil {
		return fmt.Errorf("load explanations of question %s: %w", q.ID, err)
	}
	return nil
}

// ReplaceQuestions swaps the task type's whole questionnaire. Overlay rows go
// with their questions via ON DELETE CASCADE.
func (s *PostgresStore) ReplaceQuestions(taskTypeID int64, questions []models.Question) error {
	_, err := s.db.Exec("DELETE FROM questions WHERE task_type_id = $1", taskTypeID)
	if err != nil {
		return fmt.Errorf("clear questions of task type %d: %w", taskTypeID, err)
	}
	for _, q := range questions {
		_, err := s.db.Exec(
			"INSERT INTO questions (id, task_type_id, label, question_type, options, required, sort_order) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			q.ID, taskTypeID, q.Label, q.Type, pq.Array([]string(q.Options)), q.Required, q.Order)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		for _, t := range q.Triggers {
			_, err := s.db.Exec(
				"INSERT INTO question_triggers (question_id, answer, task_type_id) VALUES ($1, $2, $3)",
				q.ID, t.Answer, t.TaskTypeID)
			if err != nil {
				return fmt.Errorf("insert trigger on question %s: %w", q.ID, err)
			}
		}
		for _, r := range q.Reminders {
			_, err := s.db.Exec(
				"INSERT INTO question_reminders (question_id, answer, message) VALUES ($1, $2, $3)",
				q.ID, r.Answer, r.Message)
			if err != nil {
				return fmt.Errorf("insert reminder on question %s: %w", q.ID, err)
			}
		}
		for _, e := range q.Explanations {
			_, err := s.db.Exec(
				"INSERT INTO question_explanations (question_id, answer, prompt) VALUES ($1, $2, $3)",
				q.ID, e.Answer, e.Prompt)
			if err != nil {
				return fmt.Errorf("insert explanation on question %s: %w", q.ID, err)
			}
		}
	}
	return nil
}

func (s *PostgresStore) SaveTask(t models.Task) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		"INSERT INTO tasks (task_type_id, owner_id, status) VALUES ($1, $2, $3) RETURNING id",
		t.TaskTypeID, t.OwnerID, t.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save task: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetTask(id int64) (models.Task, error) {
	var t models.Task
	err := s.db.Get(&t, "SELECT * FROM tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListOpenTasksByType(taskTypeID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks,
		"SELECT * FROM tasks WHERE task_type_id = $1 AND status NOT IN ('COMPLETED', 'REJECTED') ORDER BY id",
		taskTypeID)
	if err != nil {
		return nil, fmt.Errorf("list open tasks of type %d: %w", taskTypeID, err)
	}
	return tasks, nil
}

func (s *PostgresStore) SaveDefaultAssignment(d models.DefaultAssignment) error {
	_, err := s.db.Exec(
		"INSERT INTO default_assignments (task_type_id, user_id, role) VALUES ($1, $2, $3)",
		d.TaskTypeID, d.UserID, d.Role)
	if err != nil {
		return fmt.Errorf("save default assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDefaultAssignments(taskTypeID int64) ([]models.DefaultAssignment, error) {
	defaults := []models.DefaultAssignment{}
	err := s.db.Select(&defaults,
		"SELECT * FROM default_assignments WHERE task_type_id = $1", taskTypeID)
	if err != nil {
		return nil, fmt.Errorf("list default assignments of type %d: %w", taskTypeID, err)
	}
	return defaults, nil
}

func (s *PostgresStore) HasAssignment(taskID, userID int64, role models.AssignmentRole) (bool, error) {
	var n int
	err := s.db.Get(&n,
		"SELECT COUNT(*) FROM task_assignments WHERE task_id = $1 AND user_id = $2 AND role = $3",
		taskID, userID, role)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) SaveAssignment(a models.TaskAssignment) error {
	_, err := s.db.Exec(
		"INSERT INTO task_assignments (task_id, user_id, role) VALUES ($1, $2, $3)",
		a.TaskID, a.UserID, a.Role)
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReminders(userID int64) ([]models.PendingTaskReminder, error) {
	reminders := []models.PendingTaskReminder{}
	err := s.db.Select(&reminders,
		"SELECT * FROM pending_task_reminders WHERE user_id = $1 AND NOT is_completed ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders of user %d: %w", userID, err)
	}
	return reminders, nil
}

func (s *PostgresStore) ListDueReminders(userID int64, cutoff time.Time) ([]models.PendingTaskReminder, error) {
	reminders := []models.PendingTaskReminder{}
	err := s.db.Select(&reminders, `
		SELECT * FROM pending_task_reminders
		WHERE user_id = $1 AND NOT is_completed
		AND (last_reminded_at IS NULL OR last_reminded_at < $2)
		ORDER BY created_at DESC`,
		userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due reminders of user %d: %w", userID, err)
	}
	return reminders, nil
}

func (s *PostgresStore) FindOpenReminder(userID, sourceTaskID, taskTypeID int64) (models.PendingTaskReminder, error) {
	var r models.PendingTaskReminder
	err := s.db.Get(&r, `
		SELECT * FROM pending_task_reminders
		WHERE user_id = $1 AND source_task_id = $2 AND task_type_id = $3 AND NOT is_completed`,
		userID, sourceTaskID, taskTypeID)
	if err == sql.ErrNoRows {
		return models.PendingTaskReminder{}, storage.ErrNotFound
	}
	if err != nil {
		return models.PendingTaskReminder{}, fmt.Errorf("find open reminder: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) SaveReminder(r models.PendingTaskReminder) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		"INSERT INTO pending_task_reminders (user_id, source_task_id, task_type_id, task_type_label) VALUES ($1, $2, $3, $4) RETURNING id",
		r.UserID, r.SourceTaskID, r.TaskTypeID, r.TaskTypeLabel).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save reminder: %w", err)
	}
	return id, nil
}

// TouchReminders stamps last_reminded_at for a whole batch in one statement.
func (s *PostgresStore) TouchReminders(ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(
		"UPDATE pending_task_reminders SET last_reminded_at = $1, updated_at = $1 WHERE id = ANY($2)",
		now, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("touch reminders: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteReminder(id int64, completedTaskID int64) error {
	res, err := s.db.Exec(
		"UPDATE pending_task_reminders SET is_completed = TRUE, completed_task_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		completedTaskID, id)
	if err != nil {
		return fmt.Errorf("complete reminder %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteReminder(id int64) error {
	res, err := s.db.Exec("DELETE FROM pending_task_reminders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendAudit(e models.AuditEntry) error {
	_, err := s.db.Exec(
		"INSERT INTO audit_log (actor_id, action, entity, entity_id, details) VALUES ($1, $2, $3, $4, $5)",
		e.ActorID, e.Action, e.Entity, e.EntityID, e.Details)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
