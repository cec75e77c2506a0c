package domain

import "time"

// History action labels.
const (
	ActionPromoted        = "Promoted"
	ActionStatusUpdated   = "Status Updated"
	ActionDeadlineUpdated = "Deadline Updated"
	ActionAssigneeUpdated = "Assignee Updated"
	ActionAssigneeRemoved = "Assignee Removed"
)

// HistoryEntry is an immutable audit trail entry.
type HistoryEntry struct {
	ID          string
	TicketID    string
	Action      string
	PerformedBy string
	Details     string
	CreatedAt   time.Time
}
