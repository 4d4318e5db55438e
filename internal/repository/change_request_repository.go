package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// ChangeRequestRepository persists change requests and their vote log. The
// vote log is append-only per user: the unique (request_id, user_id) pair is
// upserted so a resubmission overwrites instead of duplicating.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository builds the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

func (r *ChangeRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const changeRequestColumns = `id, group_id, group_block_id, week_start, type, original_day, original_start, original_end,
proposed_day, proposed_start, proposed_end, requester_id, reason, status, resolution, created_at, resolved_at`

// Create inserts a pending request.
func (r *ChangeRequestRepository) Create(ctx context.Context, exec sqlx.ExtContext, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	request.Status = models.RequestStatusPending

	const query = `INSERT INTO change_requests (id, group_id, group_block_id, week_start, type, original_day, original_start, original_end,
proposed_day, proposed_start, proposed_end, requester_id, reason, status, created_at)
VALUES (:id, :group_id, :group_block_id, :week_start, :type, :original_day, :original_start, :original_end,
:proposed_day, :proposed_start, :proposed_end, :requester_id, :reason, :status, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, request); err != nil {
		return fmt.Errorf("insert change request: %w", err)
	}
	return nil
}

// FindByID loads one request.
func (r *ChangeRequestRepository) FindByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	const query = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByGroup returns the group's requests, newest first.
func (r *ChangeRequestRepository) ListByGroup(ctx context.Context, groupID string) ([]models.ChangeRequest, error) {
	const query = `SELECT ` + changeRequestColumns + `
FROM change_requests WHERE group_id = $1 ORDER BY created_at DESC`
	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, query, groupID); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// MarkResolved transitions a pending request to a terminal state. The status
// guard keeps a request from resolving twice under concurrent votes.
func (r *ChangeRequestRepository) MarkResolved(ctx context.Context, exec sqlx.ExtContext, id, status, resolution string) (bool, error) {
	const query = `UPDATE change_requests SET status = $2, resolution = $3, resolved_at = NOW()
WHERE id = $1 AND status = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, id, status, resolution, models.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve change request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve change request rows: %w", err)
	}
	return affected == 1, nil
}

// UpsertVote records one member's decision, overwriting a prior vote.
func (r *ChangeRequestRepository) UpsertVote(ctx context.Context, exec sqlx.ExtContext, requestID, userID string, approved bool) error {
	const query = `INSERT INTO change_request_approvals (id, request_id, user_id, approved, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (request_id, user_id) DO UPDATE SET approved = EXCLUDED.approved, created_at = EXCLUDED.created_at`
	if _, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), requestID, userID, approved); err != nil {
		return fmt.Errorf("upsert change request vote: %w", err)
	}
	return nil
}

// ListVotes returns the vote log for a request.
func (r *ChangeRequestRepository) ListVotes(ctx context.Context, requestID string) ([]models.Approval, error) {
	const query = `SELECT id, request_id, user_id, approved, created_at
FROM change_request_approvals WHERE request_id = $1 ORDER BY created_at ASC`
	var votes []models.Approval
	if err := r.db.SelectContext(ctx, &votes, query, requestID); err != nil {
		return nil, fmt.Errorf("list change request votes: %w", err)
	}
	return votes, nil
}
