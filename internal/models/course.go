package models

import "time"

// Course is a read-only enrollment record consumed by the planner. Enrollment
// decisions are made outside this service.
type Course struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoursePreference captures how many weekly hours a user wants for a course,
// split between personal study and group meetings. Fractional hours are allowed
// and rounded to whole planning units when a plan is generated.
type CoursePreference struct {
	ID                   string    `db:"id" json:"id"`
	UserID               string    `db:"user_id" json:"user_id"`
	CourseID             string    `db:"course_id" json:"course_id"`
	PersonalHoursPerWeek float64   `db:"personal_hours_per_week" json:"personal_hours_per_week"`
	GroupHoursPerWeek    float64   `db:"group_hours_per_week" json:"group_hours_per_week"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
