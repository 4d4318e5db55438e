package models

import "time"

// User is the minimal account shape the planner reads. Identity and sessions
// are managed by an external service.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
