package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for active tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "New"
	TicketStatusAssigned TicketStatus = "Assigned"
	TicketStatusSolving  TicketStatus = "Solving"
	TicketStatusSolved   TicketStatus = "Solved"
	TicketStatusFailed   TicketStatus = "Failed"
)

// TicketStatuses lists every status in progression order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusSolving,
	TicketStatusSolved,
	TicketStatusFailed,
}

// ParseTicketStatus accepts a status name case-insensitively.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range TicketStatuses {
		if strings.EqualFold(string(status), trimmed) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, status := range TicketStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Rank is the position of s in the progression; both terminal states share a rank.
func (s TicketStatus) Rank() int {
	switch s {
	case TicketStatusNew:
		return 0
	case TicketStatusAssigned:
		return 1
	case TicketStatusSolving:
		return 2
	case TicketStatusSolved, TicketStatusFailed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether s ends the lifecycle.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusSolved || s == TicketStatusFailed
}

// Ticket is an active, tracked unit of work created by promoting a draft.
type Ticket struct {
	ID                 string
	Title              string
	Content            string
	SuggestedSolutions string
	Status             TicketStatus
	Deadline           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Categories []string
	Assignees  []string
	Followers  []string
}

// Follower pairs a follower email with the tracking token of that follower's
// own submission, so each notification carries a personal link.
type Follower struct {
	Email         string
	TrackingToken string
}
