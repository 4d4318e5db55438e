package dto

// GeneratePlansRequest triggers weekly plan generation. Scope narrows the run
// to one user or one group; with neither set the batch covers all users.
// WeekStart accepts any date inside the target week and is normalized to the
// Sunday that starts it.
type GeneratePlansRequest struct {
	WeekStart string  `json:"weekStart" validate:"required"`
	UserID    *string `json:"userId" validate:"omitempty,uuid4|min=1"`
	GroupID   *string `json:"groupId" validate:"omitempty,uuid4|min=1"`
}

// CourseShortfall reports hours that could not be placed for a course.
type CourseShortfall struct {
	CourseID         string `json:"courseId"`
	RequestedMinutes int    `json:"requestedMinutes"`
	PlacedMinutes    int    `json:"placedMinutes"`
	ShortfallMinutes int    `json:"shortfallMinutes"`
}

// UserPlanReport summarises one user's generation outcome.
type UserPlanReport struct {
	UserID       string            `json:"userId"`
	PlanID       string            `json:"planId,omitempty"`
	Blocks       int               `json:"blocks"`
	UsedFallback bool              `json:"usedFallback"`
	Shortfalls   []CourseShortfall `json:"shortfalls,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// GroupPlanReport summarises one group's meeting placement.
type GroupPlanReport struct {
	GroupID          string `json:"groupId"`
	Blocks           int    `json:"blocks"`
	TargetMinutes    int    `json:"targetMinutes"`
	PlacedMinutes    int    `json:"placedMinutes"`
	ShortfallMinutes int    `json:"shortfallMinutes"`
	Error            string `json:"error,omitempty"`
}

// GeneratePlansResponse is the batch outcome, per unit of work. A failure in
// one unit never aborts the others.
type GeneratePlansResponse struct {
	WeekStart string            `json:"weekStart"`
	Users     []UserPlanReport  `json:"users"`
	Groups    []GroupPlanReport `json:"groups"`
}

// ApplyEditRequest moves or resizes a single plan block. For personal blocks
// the edit applies immediately after validation; for group blocks it opens a
// change request instead.
type ApplyEditRequest struct {
	UserID    string `json:"userId" validate:"required"`
	DayOfWeek *int   `json:"dayOfWeek" validate:"omitempty,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Reason    string `json:"reason"`
}

// ApplyEditResponse reports the edit outcome. ChangeRequestID is set when the
// edit targeted a group block and was routed to the approval workflow.
type ApplyEditResponse struct {
	Applied         bool   `json:"applied"`
	ChangeRequestID string `json:"changeRequestId,omitempty"`
	RejectedReason  string `json:"rejectedReason,omitempty"`
}
