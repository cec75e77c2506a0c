package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/config"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// StaffService manages administrators and specialists.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
	uow        unitOfWork
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.AuthConfig, deps Dependencies) *StaffService {
	return &StaffService{
		staff:      deps.Repos.Staff,
		bcryptCost: cfg.BcryptCost,
		uow:        newUnitOfWork(deps),
	}
}

func requireAdmin(actor *domain.StaffMember) error {
	if actor == nil || actor.Role != domain.StaffRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// ListSpecialists returns the active specialists a ticket can be assigned to.
func (s *StaffService) ListSpecialists(ctx context.Context) ([]domain.StaffMember, error) {
	role := domain.StaffRoleSpecialist
	active := true
	return s.ListStaffMembers(ctx, StaffListFilters{Role: &role, Active: &active, Limit: 500})
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, filters StaffListFilters) ([]domain.StaffMember, error) {
	members, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// CreateStaffMember registers an admin or specialist. Only admins may call it.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email = cleanEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if role != domain.StaffRoleAdmin && role != domain.StaffRoleSpecialist {
		return nil, apperrors.NewValidationError("unknown staff role", map[string]any{"role": string(role)})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.NameFromEmail(email)
	}

	member := &domain.StaffMember{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	err = s.uow.run(ctx, "create_staff", func(ctx context.Context) error {
		if _, err := s.staff.GetByEmail(ctx, email); err == nil {
			return apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return s.staff.Create(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// SetActive enables or disables a staff member.
func (s *StaffService) SetActive(ctx context.Context, actor *domain.StaffMember, staffID string, active bool) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var member *domain.StaffMember
	err := s.uow.run(ctx, "update_staff", func(ctx context.Context) error {
		found, err := s.staff.GetByID(ctx, staffID)
		if err != nil {
			return notFoundOr(err, "staff member", map[string]any{"staff_id": staffID})
		}
		found.Active = active
		member = found
		return s.staff.Update(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
