package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
)

type userRepo struct{ s *Store }

// Users exposes the store as a repository.UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	unlock, err := r.s.begin(ctx, "users.Create")
	if err != nil {
		return err
	}
	defer unlock()
	return r.s.state.insertUser(user, r.s.now())
}

func (st *state) insertUser(user *domain.User, now time.Time) error {
	for _, existing := range st.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: users.email %q", ErrConstraint, user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	st.users[user.ID] = *user
	st.track(user.ID)
	return nil
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	unlock, err := r.s.begin(ctx, "users.Update")
	if err != nil {
		return err
	}
	defer unlock()
	existing, ok := r.s.state.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = user.Name
	existing.PasswordHash = user.PasswordHash
	existing.Status = user.Status
	existing.UpdatedAt = r.s.now()
	r.s.state.users[user.ID] = existing
	*user = existing
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	unlock, err := r.s.begin(ctx, "users.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	user, ok := r.s.state.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	unlock, err := r.s.begin(ctx, "users.GetByEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if user, ok := r.s.state.userByEmail(email); ok {
		return &user, nil
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) EnsureByEmail(ctx context.Context, email string) (*domain.User, error) {
	unlock, err := r.s.begin(ctx, "users.EnsureByEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if user, ok := r.s.state.userByEmail(email); ok {
		return &user, nil
	}
	user := &domain.User{
		Name:   domain.NameFromEmail(email),
		Email:  email,
		Status: domain.UserStatusActive,
	}
	if err := r.s.state.insertUser(user, r.s.now()); err != nil {
		return nil, err
	}
	return user, nil
}

func (st *state) userByEmail(email string) (domain.User, bool) {
	for _, user := range st.users {
		if user.Email == email {
			return user, true
		}
	}
	return domain.User{}, false
}

type staffRepo struct{ s *Store }

// Staff exposes the store as a repository.StaffRepository.
func (s *Store) Staff() repository.StaffRepository { return staffRepo{s} }

func (r staffRepo) Create(ctx context.Context, staff *domain.StaffMember) error {
	unlock, err := r.s.begin(ctx, "staff.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.s.state.staffByEmail(staff.Email); ok {
		return fmt.Errorf("%w: staff_members.email %q", ErrConstraint, staff.Email)
	}
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := r.s.now()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.s.state.staff[staff.ID] = *staff
	r.s.state.track(staff.ID)
	return nil
}

func (r staffRepo) Update(ctx context.Context, staff *domain.StaffMember) error {
	unlock, err := r.s.begin(ctx, "staff.Update")
	if err != nil {
		return err
	}
	defer unlock()
	existing, ok := r.s.state.staff[staff.ID]
	if !ok {
		return repository.ErrNotFound
	}
	staff.CreatedAt = existing.CreatedAt
	staff.UpdatedAt = r.s.now()
	r.s.state.staff[staff.ID] = *staff
	return nil
}

func (r staffRepo) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	unlock, err := r.s.begin(ctx, "staff.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	staff, ok := r.s.state.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &staff, nil
}

func (r staffRepo) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	unlock, err := r.s.begin(ctx, "staff.GetByEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if staff, ok := r.s.state.staffByEmail(email); ok {
		return &staff, nil
	}
	return nil, repository.ErrNotFound
}

func (r staffRepo) List(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	unlock, err := r.s.begin(ctx, "staff.List")
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := []domain.StaffMember{}
	for _, staff := range r.s.state.staff {
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		result = append(result, staff)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (st *state) staffByEmail(email string) (domain.StaffMember, bool) {
	for _, staff := range st.staff {
		if staff.Email == email {
			return staff, true
		}
	}
	return domain.StaffMember{}, false
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
