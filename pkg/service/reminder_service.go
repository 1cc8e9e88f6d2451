package service

import (
	"time"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

// ReminderDebounce is how long a reminder stays quiet after being shown.
// Fixed by design, not a deployment knob.
const ReminderDebounce = 600 * time.Second

// ReminderService surfaces pending task reminders to their owning user: a
// persistent inbox via ListAll and a debounced toast feed via ListDue.
type ReminderService struct {
	store  storage.Store
	logger Logger
}

func NewReminderService(store storage.Store, logger Logger) *ReminderService {
	return &ReminderService{store: store, logger: logger}
}

// ListAll returns every uncompleted reminder for the user, most recent first.
func (s *ReminderService) ListAll(userID int64) ([]models.PendingTaskReminder, error) {
	return s.store.ListReminders(userID)
}

// ListDue returns the uncompleted reminders worth interrupting the user for:
// those never shown, or last shown more than the debounce interval before now.
func (s *ReminderService) ListDue(userID int64, now time.Time) ([]models.PendingTaskReminder, error) {
	return s.store.ListDueReminders(userID, now.Add(-ReminderDebounce))
}

// TouchShown stamps lastRemindedAt for a whole toast presentation in one
// write, so showing ten reminders does not cost ten round trips.
func (s *ReminderService) TouchShown(ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.store.TouchReminders(ids, now)
}

// Complete marks the reminder done and records which task instance fulfilled
// it.
func (s *ReminderService) Complete(id int64, fulfillingTaskID int64) error {
	if err := s.store.CompleteReminder(id, fulfillingTaskID); err != nil {
		return err
	}
	s.logger.Infof("Reminder %d completed by task %d", id, fulfillingTaskID)
	return nil
}

// Dismiss hard-deletes the reminder. Reminders have no soft-delete or undo.
func (s *ReminderService) Dismiss(id int64) error {
	return s.store.DeleteReminder(id)
}
