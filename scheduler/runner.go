package scheduler

import (
	"context"
	"log"
	"time"

	"roommate-server/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HandlerFunc executes one due task. Handlers must be idempotent: delivery is
// at-least-once, and a task that fails stays enabled and fires again on the
// next poll.
type HandlerFunc func(ctx context.Context, payload datatypes.JSON) error

// Runner polls for due enabled tasks and dispatches them to registered
// handlers.
type Runner struct {
	db       *gorm.DB
	interval time.Duration
	handlers map[string]HandlerFunc
}

func NewRunner(db *gorm.DB, interval time.Duration) *Runner {
	return &Runner{
		db:       db,
		interval: interval,
		handlers: make(map[string]HandlerFunc),
	}
}

func (r *Runner) Register(handler string, fn HandlerFunc) {
	r.handlers[handler] = fn
}

// Start blocks until the context is canceled, running one poll per tick.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunDue(ctx, time.Now())
		}
	}
}

// RunDue executes every enabled task clocked at or before now. A one-off task
// is disabled only after its handler succeeds, so a crash in between replays
// it.
func (r *Runner) RunDue(ctx context.Context, now time.Time) {
	var tasks []models.ScheduledTask
	err := r.db.Where("enabled = ? AND clocked_at <= ?", true, now).Find(&tasks).Error
	if err != nil {
		log.Printf("scheduler: failed to load due tasks: %v", err)
		return
	}

	for _, task := range tasks {
		fn, ok := r.handlers[task.Handler]
		if !ok {
			log.Printf("scheduler: no handler registered for %q (task %s)", task.Handler, task.Name)
			continue
		}
		if err := fn(ctx, task.Payload); err != nil {
			log.Printf("scheduler: task %s failed: %v", task.Name, err)
			continue
		}
		if task.OneOff {
			if err := r.db.Model(&task).Update("enabled", false).Error; err != nil {
				log.Printf("scheduler: failed to disable task %s: %v", task.Name, err)
			}
		}
	}
}
