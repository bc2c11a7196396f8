package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduledTask is a one-shot clocked task row. Tasks are keyed by a stable
// name so rescheduling the same logical callback re-enables the existing row
// instead of creating a duplicate. Rows are hard-deleted, the name column
// carries a unique index.
type ScheduledTask struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:255;uniqueIndex"`
	Handler   string         `json:"handler" gorm:"size:100;index"`
	Payload   datatypes.JSON `json:"payload"`
	ClockedAt time.Time      `json:"clockedAt" gorm:"index"`
	Enabled   *bool          `json:"enabled" gorm:"default:true"`
	OneOff    bool           `json:"oneOff" gorm:"default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// IsEnabled treats a missing flag as enabled, matching the column default.
func (t *ScheduledTask) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}
