package models

import "github.com/lib/pq"

type QuestionType string

const (
	TextQuestion  QuestionType = "TEXT"  // free-text answer
	RadioQuestion QuestionType = "RADIO" // single choice from Options
)

// Question belongs to exactly one TaskType. Its ID stays stable across edits
// so flow conditions can keep referencing it.
//
// The three overlay lists attach behavior to individual options: answering
// with a matching option can trigger a follow-up task, raise a reminder, or
// demand a written explanation. The overlays are independent; a single answer
// may match an entry in each of them.
type Question struct {
	ID         string         `json:"id" db:"id"`                   // UUID, stable across edits
	TaskTypeID int64          `json:"taskTypeId" db:"task_type_id"` // Owning TaskType
	Label      string         `json:"label" db:"label"`
	Type       QuestionType   `json:"type" db:"question_type"`
	Options    pq.StringArray `json:"options" db:"options"` // >= 2 for RADIO, empty for TEXT
	Required   bool           `json:"required" db:"required"`
	Order      int            `json:"order" db:"sort_order"`

	Triggers     []AnswerTrigger     `json:"triggers"`
	Reminders    []AnswerReminder    `json:"reminders"`
	Explanations []AnswerExplanation `json:"explanations"`
}

// AnswerTrigger spawns a task of TaskTypeID when the question is answered
// with Answer.
type AnswerTrigger struct {
	QuestionID string `json:"-" db:"question_id"`
	Answer     string `json:"answer" db:"answer"`
	TaskTypeID int64  `json:"taskTypeId" db:"task_type_id"`
}

// AnswerReminder raises a pending reminder carrying Message.
type AnswerReminder struct {
	QuestionID string `json:"-" db:"question_id"`
	Answer     string `json:"answer" db:"answer"`
	Message    string `json:"message" db:"message"`
}

// AnswerExplanation requires free-text elaboration before the answer is final.
type AnswerExplanation struct {
	QuestionID string `json:"-" db:"question_id"`
	Answer     string `json:"answer" db:"answer"`
	Prompt     string `json:"prompt" db:"prompt"`
}

// HasOption reports whether opt is currently one of the question's options.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// NormalizeOverlays drops trigger/reminder/explanation entries whose answer no
// longer matches an existing option. Stale entries appear when an option is
// removed after behavior was attached to it; they are garbage, not errors.
func (q *Question) NormalizeOverlays() {
	triggers := q.Triggers[:0]
	for _, t := range q.Triggers {
		if q.HasOption(t.Answer) {
			triggers = append(triggers, t)
		}
	}
	q.Triggers = triggers

	reminders := q.Reminders[:0]
	for _, r := range q.Reminders {
		if q.HasOption(r.Answer) {
			reminders = append(reminders, r)
		}
	}
	q.Reminders = reminders

	explanations := q.Explanations[:0]
	for _, e := range q.Explanations {
		if q.HasOption(e.Answer) {
			explanations = append(explanations, e)
		}
	}
	q.Explanations = explanations
}
