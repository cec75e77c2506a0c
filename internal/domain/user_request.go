package domain

import "time"

// UserRequest is one raw submission. It is immutable once created; only its
// draft/ticket links change.
type UserRequest struct {
	ID             string
	RequesterEmail string
	Body           string
	TrackingToken  string
	CreatedAt      time.Time
}

// RequestStage tells where a submission currently sits in the lifecycle.
type RequestStage string

const (
	StagePending RequestStage = "Pending"
	StageDraft   RequestStage = "Draft"
	StageActive  RequestStage = "Active"
)

// RequestSummary is a requester-facing row for the "my requests" listing.
type RequestSummary struct {
	Request  UserRequest
	Stage    RequestStage
	Status   string
	Title    string
	TicketID *string
}
