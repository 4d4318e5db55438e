package models

import "time"

// Change request statuses. Pending is the only non-terminal state.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Change request types.
const (
	RequestTypeMove   = "move"
	RequestTypeResize = "resize"
)

// ChangeRequest proposes moving or resizing a canonical group meeting slot.
// Every approved member must approve before it applies; a single rejection or
// the expiry window resolves it as rejected.
type ChangeRequest struct {
	ID            string     `db:"id" json:"id"`
	GroupID       string     `db:"group_id" json:"group_id"`
	GroupBlockID  string     `db:"group_block_id" json:"group_block_id"`
	WeekStart     time.Time  `db:"week_start" json:"week_start"`
	Type          string     `db:"type" json:"type"`
	OriginalDay   int        `db:"original_day" json:"original_day"`
	OriginalStart string     `db:"original_start" json:"original_start"`
	OriginalEnd   string     `db:"original_end" json:"original_end"`
	ProposedDay   int        `db:"proposed_day" json:"proposed_day"`
	ProposedStart string     `db:"proposed_start" json:"proposed_start"`
	ProposedEnd   string     `db:"proposed_end" json:"proposed_end"`
	RequesterID   string     `db:"requester_id" json:"requester_id"`
	Reason        string     `db:"reason" json:"reason"`
	Status        string     `db:"status" json:"status"`
	Resolution    *string    `db:"resolution" json:"resolution,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Terminal reports whether the request has reached a final state.
func (r ChangeRequest) Terminal() bool {
	return r.Status != RequestStatusPending
}

// ExpiredAt reports whether a pending request has outlived the expiry window
// as of the given instant.
func (r ChangeRequest) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return r.Status == RequestStatusPending && now.Sub(r.CreatedAt) > ttl
}

// Approval is one member's vote on a change request. At most one row exists
// per (request, user); a resubmitted vote overwrites the previous one.
type Approval struct {
	ID        string    `db:"id" json:"id"`
	RequestID string    `db:"request_id" json:"request_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
