package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/config"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	uow        unitOfWork
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps Dependencies) *AuthService {
	return &AuthService{
		users:      deps.Repos.Users,
		staff:      deps.Repos.Staff,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		uow:        newUnitOfWork(deps),
		logger:     deps.logger(),
	}
}

// RegisterUser creates a requester account. A requester who already
// submitted without an account claims the row created at submission.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	email = cleanEmail(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password are required", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.NameFromEmail(email)
	}

	var user *domain.User
	err = s.uow.run(ctx, "register", func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			user = &domain.User{
				Name:         name,
				Email:        email,
				PasswordHash: hash,
				Status:       domain.UserStatusActive,
			}
			return s.users.Create(ctx, user)
		case err != nil:
			return err
		case existing.PasswordHash != "":
			return apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		existing.Name = name
		existing.PasswordHash = hash
		user = existing
		return s.users.Update(ctx, existing)
	})
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginUser authenticates a requester.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, cleanEmail(email))
	if err != nil {
		return nil, "", time.Time{}, s.loginFailure(err)
	}
	if user.PasswordHash == "" || user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginStaff authenticates staff and returns role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, cleanEmail(email))
	if err != nil {
		return nil, "", time.Time{}, s.loginFailure(err)
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// EnsureBootstrapAdmin creates the first administrator when no staff member
// with that email exists yet.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	email = cleanEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.staff.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.StaffMember{
		Name:         domain.NameFromEmail(email),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleAdmin,
		Active:       true,
	}
	if err := s.staff.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) loginFailure(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return apperrors.MapError(err)
}
