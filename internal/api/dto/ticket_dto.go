package dto

import "time"

// MergeDraftsRequest combines two or more drafts into a new one.
type MergeDraftsRequest struct {
	DraftIDs           []string   `json:"draft_ids" validate:"required,min=2,dive,required"`
	Title              string     `json:"title" validate:"required"`
	Summary            string     `json:"summary"`
	SuggestedSolutions string     `json:"suggested_solutions"`
	Categories         []string   `json:"categories"`
	Deadline           *time.Time `json:"deadline"`
	AssigneeEmail      *string    `json:"assignee_email"`
}

// UpdateDraftRequest edits a draft. Absent fields are left unchanged.
type UpdateDraftRequest struct {
	Title              *string    `json:"title"`
	Summary            *string    `json:"summary"`
	SuggestedSolutions *string    `json:"suggested_solutions"`
	Deadline           *time.Time `json:"deadline"`
	ClearDeadline      bool       `json:"clear_deadline"`
	Categories         *[]string  `json:"categories"`
	AssigneeEmail      *string    `json:"assignee_email"`
}

// UnlinkRequest names the request to split off a draft.
type UnlinkRequest struct {
	UserRequestID string `json:"user_request_id" validate:"required"`
}

// PromoteRequest overrides draft fields when promoting.
type PromoteRequest struct {
	Deadline      *time.Time `json:"deadline"`
	AssigneeEmail *string    `json:"assignee_email"`
}

// UpdateTicketRequest is a partial ticket update.
type UpdateTicketRequest struct {
	Status        *string    `json:"status"`
	Deadline      *time.Time `json:"deadline"`
	ClearDeadline bool       `json:"clear_deadline"`
	AssigneeEmail *string    `json:"assignee_email"`
	ClearAssignee bool       `json:"clear_assignee"`
}

// CommentRequest adds a staff comment.
type CommentRequest struct {
	Text     string `json:"text" validate:"required"`
	Internal bool   `json:"internal"`
}

// UserRequestResponse describes one submission linked to a draft.
type UserRequestResponse struct {
	ID             string    `json:"id"`
	RequesterEmail string    `json:"requester_email"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// DraftResponse is the admin view of a draft.
type DraftResponse struct {
	ID                 string                `json:"id"`
	Title              string                `json:"title"`
	Summary            string                `json:"summary"`
	SuggestedSolutions string                `json:"suggested_solutions"`
	SuggestedAssignee  *string               `json:"suggested_assignee,omitempty"`
	Deadline           *time.Time            `json:"deadline,omitempty"`
	Categories         []string              `json:"categories"`
	Assignees          []string              `json:"assignees"`
	Requests           []UserRequestResponse `json:"requests"`
	CreatedAt          time.Time             `json:"created_at"`
}

// TicketResponse is the staff view of an active ticket.
type TicketResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Content            string     `json:"content"`
	SuggestedSolutions string     `json:"suggested_solutions"`
	Status             string     `json:"status"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	Categories         []string   `json:"categories"`
	Assignees          []string   `json:"assignees"`
	Followers          []string   `json:"followers,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CommentResponse is one ticket comment.
type CommentResponse struct {
	ID          string    `json:"id"`
	AuthorEmail string    `json:"author_email"`
	Body        string    `json:"body"`
	Internal    bool      `json:"internal"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse is one audit trail row.
type HistoryResponse struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Details     string    `json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}
