package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

type ticketRepo struct{ s *Store }

// Tickets exposes the store as a repository.TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	unlock, err := r.s.begin(ctx, "tickets.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := r.s.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.state.tickets[ticket.ID] = cloneTicket(*ticket)
	r.s.state.track(ticket.ID)
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	unlock, err := r.s.begin(ctx, "tickets.Update")
	if err != nil {
		return err
	}
	defer unlock()
	existing, ok := r.s.state.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Status = ticket.Status
	existing.Deadline = cloneTime(ticket.Deadline)
	existing.UpdatedAt = r.s.now()
	r.s.state.tickets[ticket.ID] = existing
	ticket.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.get(ctx, "tickets.GetByID", id)
}

func (r ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.get(ctx, "tickets.GetForUpdate", id)
}

func (r ticketRepo) get(ctx context.Context, op, id string) (*domain.Ticket, error) {
	unlock, err := r.s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ticket, ok := r.s.state.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	unlock, err := r.s.begin(ctx, "tickets.List")
	if err != nil {
		return nil, err
	}
	defer unlock()
	st := r.s.state

	statuses := map[domain.TicketStatus]bool{}
	for _, status := range filter.Statuses {
		statuses[status] = true
	}

	result := []domain.Ticket{}
	for id, ticket := range st.tickets {
		if len(statuses) > 0 && !statuses[ticket.Status] {
			continue
		}
		if filter.AssigneeEmail != nil {
			if _, ok := st.ticketAssignees[id][*filter.AssigneeEmail]; !ok {
				continue
			}
		}
		result = append(result, cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return st.order[result[i].ID] > st.order[result[j].ID] })
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) FindByRequest(ctx context.Context, requestID string) (*domain.Ticket, error) {
	unlock, err := r.s.begin(ctx, "tickets.FindByRequest")
	if err != nil {
		return nil, err
	}
	defer unlock()
	st := r.s.state
	var (
		found *domain.Ticket
		best  int64
	)
	for ticketID, members := range st.ticketRequests {
		if _, ok := members[requestID]; !ok {
			continue
		}
		ticket, ok := st.tickets[ticketID]
		if !ok {
			continue
		}
		if found == nil || st.order[ticketID] > best {
			out := cloneTicket(ticket)
			found = &out
			best = st.order[ticketID]
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r ticketRepo) LinkRequests(ctx context.Context, ticketID string, requestIDs []string) error {
	unlock, err := r.s.begin(ctx, "tickets.LinkRequests")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.tickets[ticketID]; !ok {
		return fmt.Errorf("%w: ticket_requests.ticket_id %q", ErrConstraint, ticketID)
	}
	for _, requestID := range requestIDs {
		if _, ok := st.requests[requestID]; !ok {
			return fmt.Errorf("%w: ticket_requests.user_request_id %q", ErrConstraint, requestID)
		}
		addTo(st.ticketRequests, ticketID, requestID)
	}
	return nil
}

func (r ticketRepo) ListRequestIDs(ctx context.Context, ticketID string) ([]string, error) {
	unlock, err := r.s.begin(ctx, "tickets.ListRequestIDs")
	if err != nil {
		return nil, err
	}
	defer unlock()
	requests := r.s.state.requestsIn(r.s.state.ticketRequests[ticketID])
	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.ID)
	}
	return ids, nil
}

func (r ticketRepo) AddFollowers(ctx context.Context, ticketID string, emails []string) error {
	unlock, err := r.s.begin(ctx, "tickets.AddFollowers")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.tickets[ticketID]; !ok {
		return fmt.Errorf("%w: ticket_followers.ticket_id %q", ErrConstraint, ticketID)
	}
	for _, email := range emails {
		if _, ok := st.userByEmail(email); !ok {
			return fmt.Errorf("%w: ticket_followers.email %q", ErrConstraint, email)
		}
		addTo(st.ticketFollowers, ticketID, email)
	}
	return nil
}

func (r ticketRepo) ListFollowers(ctx context.Context, ticketID string) ([]domain.Follower, error) {
	unlock, err := r.s.begin(ctx, "tickets.ListFollowers")
	if err != nil {
		return nil, err
	}
	defer unlock()
	st := r.s.state
	origins := st.requestsIn(st.ticketRequests[ticketID])

	result := []domain.Follower{}
	for _, email := range sortedMembers(st.ticketFollowers[ticketID]) {
		follower := domain.Follower{Email: email}
		for _, req := range origins {
			if req.RequesterEmail == email {
				follower.TrackingToken = req.TrackingToken
				break
			}
		}
		result = append(result, follower)
	}
	return result, nil
}

func (r ticketRepo) AddCategories(ctx context.Context, ticketID string, categories []string) error {
	unlock, err := r.s.begin(ctx, "tickets.AddCategories")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.s.state.tickets[ticketID]; !ok {
		return fmt.Errorf("%w: ticket_categories.ticket_id %q", ErrConstraint, ticketID)
	}
	for _, category := range categories {
		addTo(r.s.state.ticketCategories, ticketID, category)
	}
	return nil
}

func (r ticketRepo) ListCategories(ctx context.Context, ticketID string) ([]string, error) {
	unlock, err := r.s.begin(ctx, "tickets.ListCategories")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedMembers(r.s.state.ticketCategories[ticketID]), nil
}

func (r ticketRepo) ReplaceAssignee(ctx context.Context, ticketID string, email *string) error {
	unlock, err := r.s.begin(ctx, "tickets.ReplaceAssignee")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.tickets[ticketID]; !ok {
		return fmt.Errorf("%w: ticket_assignees.ticket_id %q", ErrConstraint, ticketID)
	}
	delete(st.ticketAssignees, ticketID)
	if email == nil {
		return nil
	}
	if _, ok := st.staffByEmail(*email); !ok {
		return fmt.Errorf("%w: ticket_assignees.assignee_email %q", ErrConstraint, *email)
	}
	addTo(st.ticketAssignees, ticketID, *email)
	return nil
}

func (r ticketRepo) ListAssignees(ctx context.Context, ticketID string) ([]string, error) {
	unlock, err := r.s.begin(ctx, "tickets.ListAssignees")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedMembers(r.s.state.ticketAssignees[ticketID]), nil
}
