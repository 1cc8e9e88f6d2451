package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Eric920418/Manpower-sub000/pkg/models"
	"github.com/Eric920418/Manpower-sub000/pkg/service"
	"github.com/Eric920418/Manpower-sub000/pkg/storage"
)

func seedReminder(t *testing.T, store storage.Store, userID int64) int64 {
	t.Helper()
	id, err := store.SaveReminder(models.PendingTaskReminder{
		UserID:        userID,
		SourceTaskID:  1,
		TaskTypeID:    2,
		TaskTypeLabel: "Fix-up",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	})
	assert.NoError(t, err)
	return id
}

func TestReminderService(t *testing.T) {
	t.Run("DebounceWindow", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		id := seedReminder(t, store, 42)
		now := time.Now()

		// never shown: due
		due, err := svc.ListDue(42, now)
		assert.NoError(t, err)
		assert.Len(t, due, 1)

		// still due on a second query without TouchShown in between
		due, err = svc.ListDue(42, now.Add(time.Minute))
		assert.NoError(t, err)
		assert.Len(t, due, 1)

		assert.NoError(t, svc.TouchShown([]int64{id}, now))

		// quiet within the window
		due, err = svc.ListDue(42, now.Add(5*time.Minute))
		assert.NoError(t, err)
		assert.Empty(t, due)

		// due again after the window elapses
		due, err = svc.ListDue(42, now.Add(service.ReminderDebounce+time.Second))
		assert.NoError(t, err)
		assert.Len(t, due, 1)
	})

	t.Run("ListAllIgnoresDebounce", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		id := seedReminder(t, store, 42)
		now := time.Now()

		assert.NoError(t, svc.TouchShown([]int64{id}, now))

		// the inbox view always shows open reminders
		all, err := svc.ListAll(42)
		assert.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("NewestFirst", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		older, err := store.SaveReminder(models.PendingTaskReminder{
			UserID: 42, SourceTaskID: 1, TaskTypeID: 2, TaskTypeLabel: "Fix-up",
			CreatedAt: time.Now().Add(-time.Hour),
		})
		assert.NoError(t, err)
		newer, err := store.SaveReminder(models.PendingTaskReminder{
			UserID: 42, SourceTaskID: 2, TaskTypeID: 2, TaskTypeLabel: "Fix-up",
			CreatedAt: time.Now(),
		})
		assert.NoError(t, err)

		all, err := svc.ListAll(42)
		assert.NoError(t, err)
		assert.Equal(t, []int64{newer, older}, []int64{all[0].ID, all[1].ID})
	})

	t.Run("CompleteRecordsProvenance", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		id := seedReminder(t, store, 42)

		assert.NoError(t, svc.Complete(id, 77))

		all, err := svc.ListAll(42)
		assert.NoError(t, err)
		assert.Empty(t, all)

		r, err := store.FindOpenReminder(42, 1, 2)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_ = r
	})

	t.Run("DismissIsHardDelete", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		id := seedReminder(t, store, 42)

		assert.NoError(t, svc.Dismiss(id))
		assert.ErrorIs(t, svc.Dismiss(id), storage.ErrNotFound)
	})

	t.Run("TouchShownEmptyBatchIsNoop", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		assert.NoError(t, svc.TouchShown(nil, time.Now()))
	})

	t.Run("OtherUsersInvisible", func(t *testing.T) {
		store := storage.NewMockStore()
		svc := service.NewReminderService(store, logger{})
		seedReminder(t, store, 42)

		all, err := svc.ListAll(7)
		assert.NoError(t, err)
		assert.Empty(t, all)
	})
}
