package domain

import "time"

// Comment is a note on a ticket. Internal comments are hidden from requesters.
type Comment struct {
	ID          string
	TicketID    string
	AuthorEmail string
	Body        string
	IsInternal  bool
	CreatedAt   time.Time
}
