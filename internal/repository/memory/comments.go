package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

type commentRepo struct{ s *Store }

// Comments exposes the store as a repository.CommentRepository.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

func (r commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	unlock, err := r.s.begin(ctx, "comments.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.s.state.tickets[comment.TicketID]; !ok {
		return fmt.Errorf("%w: ticket_comments.ticket_id %q", ErrConstraint, comment.TicketID)
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = r.s.now()
	r.s.state.comments = append(r.s.state.comments, *comment)
	return nil
}

func (r commentRepo) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	unlock, err := r.s.begin(ctx, "comments.ListByTicket")
	if err != nil {
		return nil, err
	}
	defer unlock()
	result := []domain.Comment{}
	for _, comment := range r.s.state.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type historyRepo struct{ s *Store }

// History exposes the store as a repository.TicketHistoryRepository.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

func (r historyRepo) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	unlock, err := r.s.begin(ctx, "history.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.s.state.tickets[entry.TicketID]; !ok {
		return fmt.Errorf("%w: ticket_history.ticket_id %q", ErrConstraint, entry.TicketID)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = r.s.now()
	r.s.state.history = append(r.s.state.history, *entry)
	return nil
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	unlock, err := r.s.begin(ctx, "history.ListByTicket")
	if err != nil {
		return nil, err
	}
	defer unlock()
	result := []domain.HistoryEntry{}
	for _, entry := range r.s.state.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}
