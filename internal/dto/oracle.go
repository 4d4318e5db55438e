package dto

import "github.com/noah-isme/study-planner-api/internal/models"

// SkeletonBlock is an immovable interval handed to the placement oracle.
type SkeletonBlock struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Label     string `json:"label,omitempty"`
}

// FreeSlot is an open interval the oracle may place blocks into.
type FreeSlot struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// CourseHourTarget is the remaining personal-study demand for one course.
type CourseHourTarget struct {
	CourseID      string `json:"courseId"`
	CourseName    string `json:"courseName,omitempty"`
	TargetMinutes int    `json:"targetMinutes"`
}

// PlacementRequest is the full oracle input contract.
type PlacementRequest struct {
	Skeleton       []SkeletonBlock              `json:"skeleton"`
	FreeSlots      []FreeSlot                   `json:"freeSlots"`
	Targets        []CourseHourTarget           `json:"targets"`
	PreferenceText string                       `json:"preferenceText,omitempty"`
	Preferences    *models.StructuredPreference `json:"preferences,omitempty"`
}

// PlacementCandidate is one oracle-proposed block. Every candidate is
// re-validated before acceptance; invalid ones are discarded, not corrected.
type PlacementCandidate struct {
	CourseID  string `json:"courseId"`
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
