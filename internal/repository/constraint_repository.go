package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// ConstraintRepository reads hard/soft time constraints. The planner treats
// constraint data as read-only; rows are written by the constraint API that
// lives outside this service.
type ConstraintRepository struct {
	db *sqlx.DB
}

// NewConstraintRepository builds the repository.
func NewConstraintRepository(db *sqlx.DB) *ConstraintRepository {
	return &ConstraintRepository{db: db}
}

const constraintColumns = `id, user_id, title, days, start_time, end_time, is_hard, week_start, created_at`

// ListForUserWeek returns permanent constraints plus the one-week constraints
// attached to the given week.
func (r *ConstraintRepository) ListForUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.Constraint, error) {
	const query = `SELECT ` + constraintColumns + `
FROM constraints WHERE user_id = $1 AND (week_start IS NULL OR week_start = $2)
ORDER BY created_at ASC`
	var constraints []models.Constraint
	if err := r.db.SelectContext(ctx, &constraints, query, userID, weekStart); err != nil {
		return nil, fmt.Errorf("list constraints for user week: %w", err)
	}
	return constraints, nil
}

// ListForUsersWeek loads constraints for a set of users in one round trip,
// keyed by user ID.
func (r *ConstraintRepository) ListForUsersWeek(ctx context.Context, userIDs []string, weekStart time.Time) (map[string][]models.Constraint, error) {
	result := make(map[string][]models.Constraint, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT `+constraintColumns+`
FROM constraints WHERE user_id IN (?) AND (week_start IS NULL OR week_start = ?)`, userIDs, weekStart)
	if err != nil {
		return nil, fmt.Errorf("build constraints query: %w", err)
	}
	query = r.db.Rebind(query)
	var constraints []models.Constraint
	if err := r.db.SelectContext(ctx, &constraints, query, args...); err != nil {
		return nil, fmt.Errorf("list constraints for users week: %w", err)
	}
	for _, c := range constraints {
		result[c.UserID] = append(result[c.UserID], c)
	}
	return result, nil
}
