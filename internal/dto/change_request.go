package dto

// CreateChangeRequestRequest proposes a move or resize of a group meeting.
type CreateChangeRequestRequest struct {
	UserID        string `json:"userId" validate:"required"`
	GroupBlockID  string `json:"groupBlockId" validate:"required"`
	ProposedDay   int    `json:"proposedDay" validate:"min=0,max=6"`
	ProposedStart string `json:"proposedStart" validate:"required"`
	ProposedEnd   string `json:"proposedEnd" validate:"required"`
	Reason        string `json:"reason"`
}

// VoteRequest casts one member's decision on a pending change request.
type VoteRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Approve *bool  `json:"approve" validate:"required"`
}

// VoteResponse reflects the request state after the vote settled.
type VoteResponse struct {
	RequestID  string `json:"requestId"`
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
	Votes      int    `json:"votes"`
	Eligible   int    `json:"eligible"`
}
