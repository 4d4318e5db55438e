package dto

import "github.com/noah-isme/study-planner-api/internal/models"

// UpdateGroupPreferenceRequest replaces a group's meeting preferences. Only
// approved members may edit; every edit lands in the preference change log.
type UpdateGroupPreferenceRequest struct {
	UserID                string                       `json:"userId" validate:"required"`
	PreferredHoursPerWeek float64                      `json:"preferredHoursPerWeek" validate:"min=0"`
	PreferenceText        string                       `json:"preferenceText"`
	Preferences           *models.StructuredPreference `json:"preferences,omitempty"`
}
