package domain

import "time"

// TrackingView is what a requester sees for one submission.
type TrackingView struct {
	Stage         RequestStage
	Status        string
	TrackingToken string
	SubmittedAt   time.Time
	RequestBody   string

	Title   string
	Summary string

	TicketID  *string
	Content   string
	Deadline  *time.Time
	Comments  []Comment
	Assignees []string
}
