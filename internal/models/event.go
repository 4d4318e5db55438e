package models

// Notification event types emitted on workflow transitions. Delivery is
// fire-and-forget; the planner only guarantees emission.
const (
	EventChangeRequested = "change-requested"
	EventChangeApproved  = "change-approved"
	EventChangeRejected  = "change-rejected"
	EventPlanReady       = "plan-ready"
)

// Event is a notification payload handed to the delivery subsystem.
type Event struct {
	Type       string         `json:"type"`
	Recipients []string       `json:"recipients"`
	Payload    map[string]any `json:"payload,omitempty"`
}
