package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// GroupRepository reads study groups, memberships and group preferences.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository builds the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListAll returns every study group.
func (r *GroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, course_id, name, created_at FROM groups ORDER BY created_at ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID loads one group.
func (r *GroupRepository) FindByID(ctx context.Context, groupID string) (*models.Group, error) {
	const query = `SELECT id, course_id, name, created_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, groupID); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListForUser returns groups where the user is an approved member.
func (r *GroupRepository) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	const query = `SELECT g.id, g.course_id, g.name, g.created_at
FROM groups g JOIN group_members m ON m.group_id = g.id
WHERE m.user_id = $1 AND m.status = $2
ORDER BY g.created_at ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, userID, models.MemberStatusApproved); err != nil {
		return nil, fmt.Errorf("list groups for user: %w", err)
	}
	return groups, nil
}

// ListApprovedMemberIDs returns the IDs of the group's approved members.
func (r *GroupRepository) ListApprovedMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT user_id FROM group_members WHERE group_id = $1 AND status = $2 ORDER BY user_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, groupID, models.MemberStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved members: %w", err)
	}
	return ids, nil
}

// GetPreference loads the group preference row, or sql.ErrNoRows.
func (r *GroupRepository) GetPreference(ctx context.Context, groupID string) (*models.GroupPreference, error) {
	const query = `SELECT id, group_id, preferred_hours_per_week, preference_text, preference_summary, change_log, created_at, updated_at
FROM group_preferences WHERE group_id = $1`
	var pref models.GroupPreference
	if err := r.db.GetContext(ctx, &pref, query, groupID); err != nil {
		return nil, err
	}
	return &pref, nil
}

// EnsurePreference returns the group's preference row, creating it with the
// given default target the first time the group is planned.
func (r *GroupRepository) EnsurePreference(ctx context.Context, groupID string, defaultHours float64) (*models.GroupPreference, error) {
	pref, err := r.GetPreference(ctx, groupID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get group preference: %w", err)
	}

	now := time.Now().UTC()
	created := &models.GroupPreference{
		ID:                    uuid.NewString(),
		GroupID:               groupID,
		PreferredHoursPerWeek: defaultHours,
		ChangeLog:             types.JSONText(`[]`),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	const insert = `INSERT INTO group_preferences (id, group_id, preferred_hours_per_week, preference_text, preference_summary, change_log, created_at, updated_at)
VALUES ($1, $2, $3, '', NULL, $4, $5, $5)
ON CONFLICT (group_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, created.ID, groupID, defaultHours, created.ChangeLog, now); err != nil {
		return nil, fmt.Errorf("create group preference: %w", err)
	}
	// Re-read in case a concurrent planner won the insert.
	pref, err = r.GetPreference(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("reload group preference: %w", err)
	}
	return pref, nil
}

// UpdatePreference saves new preference content and appends to the change log.
func (r *GroupRepository) UpdatePreference(ctx context.Context, pref *models.GroupPreference, changedBy string) error {
	entry := map[string]any{
		"changed_by": changedBy,
		"changed_at": time.Now().UTC().Format(time.RFC3339),
		"hours":      pref.PreferredHoursPerWeek,
	}
	var log []map[string]any
	if len(pref.ChangeLog) > 0 {
		_ = json.Unmarshal(pref.ChangeLog, &log)
	}
	log = append(log, entry)
	encoded, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode preference change log: %w", err)
	}
	pref.ChangeLog = types.JSONText(encoded)

	const query = `UPDATE group_preferences
SET preferred_hours_per_week = $2, preference_text = $3, preference_summary = $4, change_log = $5, updated_at = NOW()
WHERE group_id = $1`
	if _, err := r.db.ExecContext(ctx, query, pref.GroupID, pref.PreferredHoursPerWeek, pref.PreferenceText, pref.PreferenceSummary, pref.ChangeLog); err != nil {
		return fmt.Errorf("update group preference: %w", err)
	}
	return nil
}
