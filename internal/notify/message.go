// Package notify carries requester notifications from the lifecycle services
// to the mail transport. Delivery is best effort: nothing here is retried.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names a notification template.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindStatusUpdate Kind = "status_update"
)

// Message is one queued notification.
type Message struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	To            string    `json:"to"`
	TrackingToken string    `json:"tracking_token"`
	TicketTitle   string    `json:"ticket_title,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewConfirmation builds a submission confirmation.
func NewConfirmation(to, token string) Message {
	return Message{
		ID:            uuid.NewString(),
		Kind:          KindConfirmation,
		To:            to,
		TrackingToken: token,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewStatusUpdate builds a ticket status notification.
func NewStatusUpdate(to, title, status, token string) Message {
	return Message{
		ID:            uuid.NewString(),
		Kind:          KindStatusUpdate,
		To:            to,
		TrackingToken: token,
		TicketTitle:   title,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}

// Sender delivers notifications to requesters.
type Sender interface {
	SendConfirmation(ctx context.Context, email, trackingToken string) error
	SendStatusUpdate(ctx context.Context, email, ticketTitle, status, trackingToken string) error
}

// Deliver routes msg to the matching Sender method.
func Deliver(ctx context.Context, sender Sender, msg Message) error {
	switch msg.Kind {
	case KindConfirmation:
		return sender.SendConfirmation(ctx, msg.To, msg.TrackingToken)
	case KindStatusUpdate:
		return sender.SendStatusUpdate(ctx, msg.To, msg.TicketTitle, msg.Status, msg.TrackingToken)
	default:
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
}

// TrackingLink joins the public tracking page URL and a token.
func TrackingLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/" + token
}
