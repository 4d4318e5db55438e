package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// CourseRepository reads course enrollment and per-course hour preferences.
// Enrollment itself is owned by an external system.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository builds the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByUser returns the user's enrolled courses.
func (r *CourseRepository) ListByUser(ctx context.Context, userID string) ([]models.Course, error) {
	const query = `SELECT id, user_id, name, created_at FROM courses WHERE user_id = $1 ORDER BY name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list courses by user: %w", err)
	}
	return courses, nil
}

// ListPreferencesByUser returns the user's per-course weekly hour targets.
func (r *CourseRepository) ListPreferencesByUser(ctx context.Context, userID string) ([]models.CoursePreference, error) {
	const query = `SELECT id, user_id, course_id, personal_hours_per_week, group_hours_per_week, updated_at
FROM course_preferences WHERE user_id = $1`
	var prefs []models.CoursePreference
	if err := r.db.SelectContext(ctx, &prefs, query, userID); err != nil {
		return nil, fmt.Errorf("list course preferences: %w", err)
	}
	return prefs, nil
}
