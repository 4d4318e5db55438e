package models

import "time"

// Plan generation sources.
const (
	PlanSourceAuto   = "auto"
	PlanSourceManual = "manual"
)

// Plan block kinds.
const (
	BlockKindPersonal = "personal"
	BlockKindGroup    = "group"
)

// Plan block origins.
const (
	BlockOriginAuto       = "auto"
	BlockOriginManualEdit = "manual-edit"
	BlockOriginOracle     = "llm"
)

// WeeklyPlan is one user's plan for one week. Regenerating a week replaces all
// non-locked blocks of the existing plan.
type WeeklyPlan struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	Source    string    `db:"source" json:"source"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PlanBlock is a placed interval inside a weekly plan. Group-kind blocks are
// synced reflections of a canonical GroupPlanBlock and carry its ID; they are
// never edited directly, only through the change-request workflow.
type PlanBlock struct {
	ID           string    `db:"id" json:"id"`
	PlanID       string    `db:"plan_id" json:"plan_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Kind         string    `db:"kind" json:"kind"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Locked       bool      `db:"locked" json:"locked"`
	Origin       string    `db:"origin" json:"origin"`
	GroupBlockID *string   `db:"group_block_id" json:"group_block_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GroupPlanBlock is the canonical record of a group meeting slot. Exactly one
// row exists per group/week/slot; member copies are fanned out from it.
type GroupPlanBlock struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
