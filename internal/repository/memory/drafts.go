package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

type draftRepo struct{ s *Store }

// Drafts exposes the store as a repository.DraftTicketRepository.
func (s *Store) Drafts() repository.DraftTicketRepository { return draftRepo{s} }

func (r draftRepo) Create(ctx context.Context, draft *domain.DraftTicket) error {
	unlock, err := r.s.begin(ctx, "drafts.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	draft.CreatedAt = r.s.now()
	r.s.state.drafts[draft.ID] = cloneDraft(*draft)
	r.s.state.track(draft.ID)
	return nil
}

func (r draftRepo) Update(ctx context.Context, draft *domain.DraftTicket) error {
	unlock, err := r.s.begin(ctx, "drafts.Update")
	if err != nil {
		return err
	}
	defer unlock()
	existing, ok := r.s.state.drafts[draft.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Title = draft.Title
	existing.Summary = draft.Summary
	existing.SuggestedSolutions = draft.SuggestedSolutions
	existing.SuggestedAssignee = cloneString(draft.SuggestedAssignee)
	existing.Deadline = cloneTime(draft.Deadline)
	r.s.state.drafts[draft.ID] = existing
	return nil
}

func (r draftRepo) GetByID(ctx context.Context, id string) (*domain.DraftTicket, error) {
	return r.get(ctx, "drafts.GetByID", id)
}

func (r draftRepo) GetForUpdate(ctx context.Context, id string) (*domain.DraftTicket, error) {
	return r.get(ctx, "drafts.GetForUpdate", id)
}

func (r draftRepo) get(ctx context.Context, op, id string) (*domain.DraftTicket, error) {
	unlock, err := r.s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer unlock()
	draft, ok := r.s.state.drafts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneDraft(draft)
	return &out, nil
}

func (r draftRepo) List(ctx context.Context) ([]domain.DraftTicket, error) {
	unlock, err := r.s.begin(ctx, "drafts.List")
	if err != nil {
		return nil, err
	}
	defer unlock()
	result := make([]domain.DraftTicket, 0, len(r.s.state.drafts))
	for _, draft := range r.s.state.drafts {
		result = append(result, cloneDraft(draft))
	}
	order := r.s.state.order
	sort.Slice(result, func(i, j int) bool { return order[result[i].ID] > order[result[j].ID] })
	return result, nil
}

func (r draftRepo) Delete(ctx context.Context, id string) error {
	unlock, err := r.s.begin(ctx, "drafts.Delete")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.drafts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.drafts, id)
	delete(st.draftRequests, id)
	delete(st.draftCategories, id)
	delete(st.draftAssignees, id)
	return nil
}

func (r draftRepo) FindByRequest(ctx context.Context, requestID string) (*domain.DraftTicket, error) {
	unlock, err := r.s.begin(ctx, "drafts.FindByRequest")
	if err != nil {
		return nil, err
	}
	defer unlock()
	st := r.s.state
	var (
		found *domain.DraftTicket
		best  int64
	)
	for draftID, members := range st.draftRequests {
		if _, ok := members[requestID]; !ok {
			continue
		}
		draft, ok := st.drafts[draftID]
		if !ok {
			continue
		}
		if found == nil || st.order[draftID] > best {
			out := cloneDraft(draft)
			found = &out
			best = st.order[draftID]
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r draftRepo) LinkRequest(ctx context.Context, draftID, requestID string) error {
	unlock, err := r.s.begin(ctx, "drafts.LinkRequest")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.drafts[draftID]; !ok {
		return fmt.Errorf("%w: draft_ticket_requests.draft_ticket_id %q", ErrConstraint, draftID)
	}
	if _, ok := st.requests[requestID]; !ok {
		return fmt.Errorf("%w: draft_ticket_requests.user_request_id %q", ErrConstraint, requestID)
	}
	addTo(st.draftRequests, draftID, requestID)
	return nil
}

func (r draftRepo) UnlinkRequest(ctx context.Context, draftID, requestID string) error {
	unlock, err := r.s.begin(ctx, "drafts.UnlinkRequest")
	if err != nil {
		return err
	}
	defer unlock()
	members := r.s.state.draftRequests[draftID]
	if _, ok := members[requestID]; !ok {
		return repository.ErrNotFound
	}
	delete(members, requestID)
	return nil
}

func (r draftRepo) RepointRequests(ctx context.Context, fromDraftID, toDraftID string) (int64, error) {
	unlock, err := r.s.begin(ctx, "drafts.RepointRequests")
	if err != nil {
		return 0, err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.drafts[toDraftID]; !ok {
		return 0, fmt.Errorf("%w: draft_ticket_requests.draft_ticket_id %q", ErrConstraint, toDraftID)
	}
	members := st.draftRequests[fromDraftID]
	for requestID := range members {
		addTo(st.draftRequests, toDraftID, requestID)
	}
	delete(st.draftRequests, fromDraftID)
	return int64(len(members)), nil
}

func (r draftRepo) DeleteRequestLinks(ctx context.Context, draftID string) error {
	unlock, err := r.s.begin(ctx, "drafts.DeleteRequestLinks")
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.s.state.draftRequests, draftID)
	return nil
}

func (r draftRepo) ListRequests(ctx context.Context, draftID string) ([]domain.UserRequest, error) {
	unlock, err := r.s.begin(ctx, "drafts.ListRequests")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return r.s.state.requestsIn(r.s.state.draftRequests[draftID]), nil
}

func (r draftRepo) AddCategories(ctx context.Context, draftID string, categories []string) error {
	unlock, err := r.s.begin(ctx, "drafts.AddCategories")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.s.state.drafts[draftID]; !ok {
		return fmt.Errorf("%w: draft_ticket_categories.draft_ticket_id %q", ErrConstraint, draftID)
	}
	for _, category := range categories {
		addTo(r.s.state.draftCategories, draftID, category)
	}
	return nil
}

func (r draftRepo) DeleteCategories(ctx context.Context, draftID string) error {
	unlock, err := r.s.begin(ctx, "drafts.DeleteCategories")
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.s.state.draftCategories, draftID)
	return nil
}

func (r draftRepo) ListCategories(ctx context.Context, draftID string) ([]string, error) {
	unlock, err := r.s.begin(ctx, "drafts.ListCategories")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedMembers(r.s.state.draftCategories[draftID]), nil
}

func (r draftRepo) AddAssignee(ctx context.Context, draftID, email string) error {
	unlock, err := r.s.begin(ctx, "drafts.AddAssignee")
	if err != nil {
		return err
	}
	defer unlock()
	st := r.s.state
	if _, ok := st.drafts[draftID]; !ok {
		return fmt.Errorf("%w: draft_ticket_assignees.draft_ticket_id %q", ErrConstraint, draftID)
	}
	if _, ok := st.staffByEmail(email); !ok {
		return fmt.Errorf("%w: draft_ticket_assignees.assignee_email %q", ErrConstraint, email)
	}
	addTo(st.draftAssignees, draftID, email)
	return nil
}

func (r draftRepo) DeleteAssignees(ctx context.Context, draftID string) error {
	unlock, err := r.s.begin(ctx, "drafts.DeleteAssignees")
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.s.state.draftAssignees, draftID)
	return nil
}

func (r draftRepo) ListAssignees(ctx context.Context, draftID string) ([]string, error) {
	unlock, err := r.s.begin(ctx, "drafts.ListAssignees")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedMembers(r.s.state.draftAssignees[draftID]), nil
}
