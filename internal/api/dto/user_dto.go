package dto

import "time"

// UserRegisterRequest payload for new requester accounts.
type UserRegisterRequest struct {
	Name     string `json:"name" validate:"omitempty,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitRequest is the public intake payload. Length limits are applied by
// truncation, not rejection.
type SubmitRequest struct {
	Email string `json:"email" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

// SubmitResponse is returned after a request is accepted.
type SubmitResponse struct {
	TrackingToken string `json:"tracking_token"`
	UserRequestID string `json:"user_request_id"`
	DraftTicketID string `json:"draft_ticket_id"`
}

// RequestSummary is one row of the requester's submission list.
type RequestSummary struct {
	ID            string    `json:"id"`
	TrackingToken string    `json:"tracking_token"`
	Body          string    `json:"body"`
	Stage         string    `json:"stage"`
	Status        string    `json:"status"`
	Title         string    `json:"title,omitempty"`
	TicketID      *string   `json:"ticket_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublicCommentRequest is a requester comment on the tracking page.
type PublicCommentRequest struct {
	Email string `json:"email" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

// TrackingResponse is the requester-facing view of one submission.
type TrackingResponse struct {
	Stage         string            `json:"stage"`
	Status        string            `json:"status"`
	TrackingToken string            `json:"tracking_token"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	RequestBody   string            `json:"request_body"`
	Title         string            `json:"title,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	TicketID      *string           `json:"ticket_id,omitempty"`
	Content       string            `json:"content,omitempty"`
	Deadline      *time.Time        `json:"deadline,omitempty"`
	Comments      []CommentResponse `json:"comments,omitempty"`
	Assignees     []string          `json:"assignees,omitempty"`
}
