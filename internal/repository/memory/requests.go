package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

type requestRepo struct{ s *Store }

// Requests exposes the store as a repository.UserRequestRepository.
func (s *Store) Requests() repository.UserRequestRepository { return requestRepo{s} }

func (r requestRepo) Create(ctx context.Context, req *domain.UserRequest) error {
	unlock, err := r.s.begin(ctx, "requests.Create")
	if err != nil {
		return err
	}
	defer unlock()

	st := r.s.state
	if _, ok := st.userByEmail(req.RequesterEmail); !ok {
		return fmt.Errorf("%w: user_requests.requester_email %q", ErrConstraint, req.RequesterEmail)
	}
	for _, existing := range st.requests {
		if existing.TrackingToken == req.TrackingToken {
			return fmt.Errorf("%w: user_requests.tracking_token", ErrConstraint)
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = r.s.now()
	st.requests[req.ID] = *req
	st.track(req.ID)
	return nil
}

func (r requestRepo) GetByID(ctx context.Context, id string) (*domain.UserRequest, error) {
	unlock, err := r.s.begin(ctx, "requests.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	req, ok := r.s.state.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r requestRepo) GetByTokenAndEmail(ctx context.Context, token, email string) (*domain.UserRequest, error) {
	unlock, err := r.s.begin(ctx, "requests.GetByTokenAndEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, req := range r.s.state.requests {
		if req.TrackingToken == token && req.RequesterEmail == email {
			return &req, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r requestRepo) ListByEmail(ctx context.Context, email string) ([]domain.UserRequest, error) {
	unlock, err := r.s.begin(ctx, "requests.ListByEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()
	result := []domain.UserRequest{}
	for _, req := range r.s.state.requests {
		if req.RequesterEmail == email {
			result = append(result, req)
		}
	}
	order := r.s.state.order
	sort.Slice(result, func(i, j int) bool { return order[result[i].ID] > order[result[j].ID] })
	return result, nil
}

// requestsIn returns the requests in members, oldest first.
func (st *state) requestsIn(members set) []domain.UserRequest {
	result := make([]domain.UserRequest, 0, len(members))
	for id := range members {
		if req, ok := st.requests[id]; ok {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return st.order[result[i].ID] < st.order[result[j].ID] })
	return result
}
