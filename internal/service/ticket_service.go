package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// TicketService coordinates active ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	staff       repository.StaffRepository
	comments    repository.CommentRepository
	history     repository.TicketHistoryRepository
	transitions TransitionPolicy
	uow         unitOfWork
	events      publisher
	logger      *zap.Logger
}

// TicketUpdateInput describes a partial ticket update. Only fields that
// differ from the stored ticket produce history.
type TicketUpdateInput struct {
	Status        *domain.TicketStatus
	Deadline      *time.Time
	ClearDeadline bool
	AssigneeEmail *string
	ClearAssignee bool
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
	Statuses      []domain.TicketStatus
	AssigneeEmail *string
	Limit         int
	Offset        int
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	transitions := deps.Transitions
	if transitions == nil {
		transitions = PermissiveTransitions{}
	}
	return &TicketService{
		tickets:     deps.Repos.Tickets,
		staff:       deps.Repos.Staff,
		comments:    deps.Repos.Comments,
		history:     deps.Repos.History,
		transitions: transitions,
		uow:         newUnitOfWork(deps),
		events:      publisher{dispatcher: deps.Dispatcher, logger: deps.logger()},
		logger:      deps.logger(),
	}
}

// UpdateStatus moves the ticket to status.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, performedBy string) (*domain.Ticket, error) {
	return s.Update(ctx, id, TicketUpdateInput{Status: &status}, performedBy)
}

// UpdateDeadline sets the deadline, or clears it when deadline is nil.
func (s *TicketService) UpdateDeadline(ctx context.Context, id string, deadline *time.Time, performedBy string) (*domain.Ticket, error) {
	return s.Update(ctx, id, TicketUpdateInput{Deadline: deadline, ClearDeadline: deadline == nil}, performedBy)
}

// UpdateAssignee replaces the assignee, or removes it when email is nil or empty.
func (s *TicketService) UpdateAssignee(ctx context.Context, id string, email *string, performedBy string) (*domain.Ticket, error) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return s.Update(ctx, id, TicketUpdateInput{ClearAssignee: true}, performedBy)
	}
	return s.Update(ctx, id, TicketUpdateInput{AssigneeEmail: email}, performedBy)
}

// Update applies every requested change in one transaction and appends one
// history entry per field whose value actually changed.
func (s *TicketService) Update(ctx context.Context, id string, input TicketUpdateInput, performedBy string) (*domain.Ticket, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status",
			map[string]any{"status": string(*input.Status)})
	}

	var (
		oldStatus     domain.TicketStatus
		statusChanged bool
		title         string
	)
	err := s.uow.run(ctx, "update_ticket", func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
		}
		title = ticket.Title
		entries := []domain.HistoryEntry{}
		dirty := false

		if input.Status != nil && *input.Status != ticket.Status {
			if err := s.transitions.Allow(ticket.Status, *input.Status); err != nil {
				return apperrors.NewConsistencyViolation(err.Error(), map[string]any{
					"from": string(ticket.Status),
					"to":   string(*input.Status),
				})
			}
			oldStatus = ticket.Status
			entries = append(entries, domain.HistoryEntry{
				Action:  domain.ActionStatusUpdated,
				Details: fmt.Sprintf("from %s to %s", ticket.Status, *input.Status),
			})
			ticket.Status = *input.Status
			statusChanged = true
			dirty = true
		}

		switch {
		case input.ClearDeadline:
			if ticket.Deadline != nil {
				ticket.Deadline = nil
				entries = append(entries, domain.HistoryEntry{Action: domain.ActionDeadlineUpdated, Details: "cleared"})
				dirty = true
			}
		case input.Deadline != nil:
			if ticket.Deadline == nil || !ticket.Deadline.Equal(*input.Deadline) {
				deadline := input.Deadline.UTC()
				ticket.Deadline = &deadline
				entries = append(entries, domain.HistoryEntry{
					Action:  domain.ActionDeadlineUpdated,
					Details: deadline.Format(time.RFC3339),
				})
				dirty = true
			}
		}

		if dirty {
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}

		entry, err := s.applyAssignee(ctx, id, input)
		if err != nil {
			return err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}

		for i := range entries {
			entries[i].TicketID = id
			entries[i].PerformedBy = performedBy
			if err := s.history.Create(ctx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStatusChange(ctx, id, title, oldStatus, *input.Status, performedBy)
	}
	return s.GetTicket(ctx, id)
}

func (s *TicketService) applyAssignee(ctx context.Context, id string, input TicketUpdateInput) (*domain.HistoryEntry, error) {
	var target string
	switch {
	case input.ClearAssignee:
	case input.AssigneeEmail != nil:
		target = strings.TrimSpace(*input.AssigneeEmail)
	default:
		return nil, nil
	}

	current, err := s.tickets.ListAssignees(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == "" {
		if len(current) == 0 {
			return nil, nil
		}
		if err := s.tickets.ReplaceAssignee(ctx, id, nil); err != nil {
			return nil, err
		}
		return &domain.HistoryEntry{Action: domain.ActionAssigneeRemoved, Details: "Assignee removed"}, nil
	}

	if len(current) == 1 && current[0] == target {
		return nil, nil
	}
	if _, err := s.staff.GetByEmail(ctx, target); err != nil {
		return nil, notFoundOr(err, "specialist", map[string]any{"email": target})
	}
	if err := s.tickets.ReplaceAssignee(ctx, id, &target); err != nil {
		return nil, err
	}
	return &domain.HistoryEntry{
		Action:  domain.ActionAssigneeUpdated,
		Details: "Assignee updated to " + target,
	}, nil
}

func (s *TicketService) publishStatusChange(ctx context.Context, id, title string, from, to domain.TicketStatus, actor string) {
	followers, err := s.tickets.ListFollowers(ctx, id)
	if err != nil {
		s.logger.Warn("load followers failed", zap.String("ticket_id", id), zap.Error(err))
		return
	}
	s.events.publish(ctx, events.Event{
		Type:  events.EventTicketStatusChanged,
		Actor: actor,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  id,
			Title:     title,
			OldStatus: from,
			NewStatus: to,
			Followers: followers,
		},
	})
}

// AddComment appends a comment to an active ticket. It does not touch history.
func (s *TicketService) AddComment(ctx context.Context, id, author, text string, internal bool) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"text": "required"})
	}

	comment := &domain.Comment{
		TicketID:    id,
		AuthorEmail: author,
		Body:        domain.Truncate(text, domain.MaxTextLength),
		IsInternal:  internal,
	}
	err := s.uow.run(ctx, "add_comment", func(ctx context.Context) error {
		if _, err := s.tickets.GetByID(ctx, id); err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
		}
		return s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// GetTicket returns the ticket with categories, assignees and followers.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := loadTicket(ctx, s.tickets, id)
	if err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "ticket", map[string]any{"ticket_id": id}))
	}
	return ticket, nil
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": string(status)})
		}
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:      filter.Statuses,
		AssigneeEmail: filter.AssigneeEmail,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range tickets {
		if tickets[i].Assignees, err = s.tickets.ListAssignees(ctx, tickets[i].ID); err != nil {
			return nil, apperrors.MapError(err)
		}
		if tickets[i].Categories, err = s.tickets.ListCategories(ctx, tickets[i].ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return tickets, nil
}

// ListHistory returns the audit trail oldest first.
func (s *TicketService) ListHistory(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "ticket", map[string]any{"ticket_id": id}))
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListComments returns the ticket's comments oldest first.
func (s *TicketService) ListComments(ctx context.Context, id string, includeInternal bool) ([]domain.Comment, error) {
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "ticket", map[string]any{"ticket_id": id}))
	}
	comments, err := s.comments.ListByTicket(ctx, id, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

func loadTicket(ctx context.Context, tickets repository.TicketRepository, id string) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Categories, err = tickets.ListCategories(ctx, id); err != nil {
		return nil, err
	}
	if ticket.Assignees, err = tickets.ListAssignees(ctx, id); err != nil {
		return nil, err
	}
	followers, err := tickets.ListFollowers(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket.Followers = make([]string, 0, len(followers))
	for _, f := range followers {
		ticket.Followers = append(ticket.Followers, f.Email)
	}
	return ticket, nil
}
