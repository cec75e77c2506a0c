package events

import (
	"time"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestSubmitted    EventType = "request_submitted"
	EventTicketPromoted      EventType = "ticket_promoted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestSubmittedPayload is emitted once per accepted submission.
type RequestSubmittedPayload struct {
	Email         string `json:"email"`
	TrackingToken string `json:"tracking_token"`
	UserRequestID string `json:"user_request_id"`
	DraftTicketID string `json:"draft_ticket_id"`
}

// TicketPromotedPayload carries one entry per distinct follower.
type TicketPromotedPayload struct {
	TicketID  string              `json:"ticket_id"`
	DraftID   string              `json:"draft_id"`
	Title     string              `json:"title"`
	Status    domain.TicketStatus `json:"status"`
	Followers []domain.Follower   `json:"followers"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  string              `json:"ticket_id"`
	Title     string              `json:"title"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Followers []domain.Follower   `json:"followers"`
}
