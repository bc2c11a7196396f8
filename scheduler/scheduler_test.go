package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"roommate-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.ScheduledTask{}))
	return db
}

type testPayload struct {
	CardID uint   `json:"card_id"`
	Status string `json:"status"`
}

func TestScheduleCreatesTask(t *testing.T) {
	db := newTestDB(t)
	s := New(db)

	fireAt := time.Now().Add(time.Hour)
	require.NoError(t, s.Schedule("change card status to draft card_id=1", HandlerChangeCardStatus,
		fireAt, testPayload{CardID: 1, Status: "draft"}))

	task, err := s.Get("change card status to draft card_id=1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.IsEnabled())
	assert.True(t, task.OneOff)
	assert.Equal(t, HandlerChangeCardStatus, task.Handler)

	var payload testPayload
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, uint(1), payload.CardID)
}

func TestScheduleSameKeyReclocks(t *testing.T) {
	db := newTestDB(t)
	s := New(db)

	name := "change card status to draft card_id=1"
	first := time.Now().Add(time.Hour)
	require.NoError(t, s.Schedule(name, HandlerChangeCardStatus, first, testPayload{CardID: 1, Status: "draft"}))
	require.NoError(t, s.Disable(name))

	second := first.Add(24 * time.Hour)
	require.NoError(t, s.Schedule(name, HandlerChangeCardStatus, second, testPayload{CardID: 1, Status: "draft"}))

	task, err := s.Get(name)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.IsEnabled())
	assert.WithinDuration(t, second, task.ClockedAt, time.Second)

	var count int64
	require.NoError(t, db.Model(&models.ScheduledTask{}).Where("name = ?", name).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDisableAndDelete(t *testing.T) {
	db := newTestDB(t)
	s := New(db)

	name := "change card status to draft card_id=2"
	require.NoError(t, s.Schedule(name, HandlerChangeCardStatus, time.Now(), testPayload{CardID: 2, Status: "draft"}))

	require.NoError(t, s.Disable(name))
	task, err := s.Get(name)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.IsEnabled())

	require.NoError(t, s.Delete(name))
	task, err = s.Get(name)
	require.NoError(t, err)
	assert.Nil(t, task)

	// Both are no-ops on missing names.
	assert.NoError(t, s.Disable("missing"))
	assert.NoError(t, s.Delete("missing"))
}

func TestRunDueFiresAndDisablesOneOff(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	runner := NewRunner(db, time.Minute)

	var fired []uint
	runner.Register(HandlerChangeCardStatus, func(ctx context.Context, payload datatypes.JSON) error {
		var p testPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		fired = append(fired, p.CardID)
		return nil
	})

	now := time.Now()
	require.NoError(t, s.Schedule("due", HandlerChangeCardStatus, now.Add(-time.Minute), testPayload{CardID: 1}))
	require.NoError(t, s.Schedule("future", HandlerChangeCardStatus, now.Add(time.Hour), testPayload{CardID: 2}))

	runner.RunDue(context.Background(), now)

	assert.Equal(t, []uint{1}, fired)

	task, err := s.Get("due")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.IsEnabled())

	// A disabled task never fires again.
	runner.RunDue(context.Background(), now)
	assert.Equal(t, []uint{1}, fired)

	future, err := s.Get("future")
	require.NoError(t, err)
	require.NotNil(t, future)
	assert.True(t, future.IsEnabled())
}

func TestRunDueKeepsFailedTaskEnabled(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	runner := NewRunner(db, time.Minute)

	attempts := 0
	runner.Register(HandlerChangeCardStatus, func(ctx context.Context, payload datatypes.JSON) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		return nil
	})

	require.NoError(t, s.Schedule("flaky", HandlerChangeCardStatus, time.Now().Add(-time.Minute), testPayload{CardID: 1}))

	runner.RunDue(context.Background(), time.Now())
	task, err := s.Get("flaky")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.IsEnabled(), "failed task stays enabled for redelivery")

	runner.RunDue(context.Background(), time.Now())
	task, err = s.Get("flaky")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.IsEnabled())
	assert.Equal(t, 2, attempts)
}

func TestRunDueUnknownHandler(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	runner := NewRunner(db, time.Minute)

	require.NoError(t, s.Schedule("orphan", "nonexistent_handler", time.Now().Add(-time.Minute), testPayload{CardID: 1}))

	// Must not panic; the task stays enabled.
	runner.RunDue(context.Background(), time.Now())

	task, err := s.Get("orphan")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.IsEnabled())
}
