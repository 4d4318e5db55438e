package models

import (
	"time"

	"github.com/lib/pq"
)

// Constraint blocks (hard) or biases (soft) a recurring window of a user's week.
// A nil WeekStart means the constraint is permanent; otherwise it applies to a
// single week. Days use 0=Sunday .. 6=Saturday, matching the planning week.
type Constraint struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	Title     string        `db:"title" json:"title"`
	Days      pq.Int64Array `db:"days" json:"days"`
	StartTime string        `db:"start_time" json:"start_time"`
	EndTime   string        `db:"end_time" json:"end_time"`
	IsHard    bool          `db:"is_hard" json:"is_hard"`
	WeekStart *time.Time    `db:"week_start" json:"week_start,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// AppliesTo reports whether the constraint covers the given day of week.
func (c Constraint) AppliesTo(day int) bool {
	for _, d := range c.Days {
		if int(d) == day {
			return true
		}
	}
	return false
}
