// Package scheduler implements deferred one-shot callbacks backed by the
// database. A task is a named clocked row; scheduling the same name again
// re-enables and re-clocks the existing row. Because rows live in the same
// database as the entities, callers can schedule inside their own
// transaction and the task commits or rolls back with the entity change.
package scheduler

import (
	"encoding/json"
	"errors"
	"time"

	"roommate-server/models"

	"gorm.io/gorm"
)

// HandlerChangeCardStatus is the handler key for deadline-triggered card
// status transitions.
const HandlerChangeCardStatus = "change_card_status"

type Scheduler struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Scheduler {
	return &Scheduler{db: db}
}

// WithTx returns a view of the scheduler bound to the given transaction.
func (s *Scheduler) WithTx(tx *gorm.DB) *Scheduler {
	return &Scheduler{db: tx}
}

// Schedule creates or re-clocks the named one-shot task. An existing row is
// re-enabled and moved to the new fire time; its identity (name) never
// duplicates.
func (s *Scheduler) Schedule(name, handler string, fireAt time.Time, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	enabled := true
	var task models.ScheduledTask
	err = s.db.Where("name = ?", name).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		task = models.ScheduledTask{
			Name:      name,
			Handler:   handler,
			Payload:   raw,
			ClockedAt: fireAt,
			Enabled:   &enabled,
			OneOff:    true,
		}
		return s.db.Create(&task).Error
	}
	if err != nil {
		return err
	}

	return s.db.Model(&task).Updates(map[string]interface{}{
		"handler":    handler,
		"payload":    raw,
		"clocked_at": fireAt,
		"enabled":    true,
	}).Error
}

// Disable keeps the named task but stops it from firing. Missing tasks are a
// no-op.
func (s *Scheduler) Disable(name string) error {
	return s.db.Model(&models.ScheduledTask{}).
		Where("name = ?", name).
		Update("enabled", false).Error
}

// Delete removes the named task outright. Missing tasks are a no-op.
func (s *Scheduler) Delete(name string) error {
	return s.db.Where("name = ?", name).Delete(&models.ScheduledTask{}).Error
}

// Get returns the named task, or nil if it does not exist.
func (s *Scheduler) Get(name string) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	err := s.db.Where("name = ?", name).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}
