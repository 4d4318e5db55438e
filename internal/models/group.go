package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Group member statuses.
const (
	MemberStatusApproved = "approved"
	MemberStatusPending  = "pending"
)

// Group is a study group attached to a course.
type Group struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupMember links a user to a group. Only approved members take part in
// group planning and change-request voting.
type GroupMember struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Status   string    `db:"status" json:"status"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupPreference holds the group's weekly meeting target and free-form
// preference material. One row per group, created lazily the first time the
// group is planned. ChangeLog is an append-only JSON history of edits.
type GroupPreference struct {
	ID                    string         `db:"id" json:"id"`
	GroupID               string         `db:"group_id" json:"group_id"`
	PreferredHoursPerWeek float64        `db:"preferred_hours_per_week" json:"preferred_hours_per_week"`
	PreferenceText        string         `db:"preference_text" json:"preference_text"`
	PreferenceSummary     types.JSONText `db:"preference_summary" json:"preference_summary,omitempty"`
	ChangeLog             types.JSONText `db:"change_log" json:"change_log,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// PreferenceWindow is a preferred time-of-day window on a set of days.
type PreferenceWindow struct {
	Days      []int  `json:"days,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// StructuredPreference is the parsed, typed form of scheduling preferences.
// Unset fields mean "no opinion"; consumers must never read them as zero.
type StructuredPreference struct {
	PreferredWindows []PreferenceWindow `json:"preferred_windows,omitempty"`
	SessionMinutes   *int               `json:"session_minutes,omitempty"`
	BreakMinutes     *int               `json:"break_minutes,omitempty"`
	CourseNotes      map[string]string  `json:"course_notes,omitempty"`
}
