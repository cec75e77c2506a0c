package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ceivoice/ticket-service/internal/config"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository/memory"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            bcrypt.MinCost,
	}
}

func newAuthFixture(t *testing.T) (*AuthService, *StaffService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	deps := Dependencies{Repos: store.Set()}
	authSvc := NewAuthService(testAuthConfig(), deps)
	require.NoError(t, authSvc.EnsureBootstrapAdmin(context.Background(), "root@example.com", "rootpass"))
	return authSvc, NewStaffService(testAuthConfig(), deps), store
}

func TestRegisterAndLoginUser(t *testing.T) {
	authSvc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	user, token, _, err := authSvc.RegisterUser(ctx, "", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a", user.Name)
	assert.NotEmpty(t, token)

	claims, err := authSvc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)

	_, _, _, err = authSvc.RegisterUser(ctx, "Again", "a@x.com", "secret2")
	requireCode(t, err, apperrors.CodeConflict)

	_, _, _, err = authSvc.LoginUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, _, _, err = authSvc.LoginUser(ctx, "a@x.com", "wrong")
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, _, err = authSvc.LoginUser(ctx, "nobody@x.com", "secret1")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestRegisterUser_ClaimsSubmissionAccount(t *testing.T) {
	authSvc, _, store := newAuthFixture(t)
	ctx := context.Background()
	existing, err := store.Users().EnsureByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	_, _, _, err = authSvc.LoginUser(ctx, "a@x.com", "")
	requireCode(t, err, apperrors.CodeUnauthorized)

	user, _, _, err := authSvc.RegisterUser(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "Alice", user.Name)
}

func TestLoginStaff(t *testing.T) {
	authSvc, staffSvc, _ := newAuthFixture(t)
	ctx := context.Background()

	admin, token, _, err := authSvc.LoginStaff(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAdmin, admin.Role)
	claims, err := authSvc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.StaffRoleAdmin, *claims.Role)

	specialist, err := staffSvc.CreateStaffMember(ctx, admin, "Spec", "spec@x.com", "specpass", domain.StaffRoleSpecialist)
	require.NoError(t, err)
	_, err = staffSvc.SetActive(ctx, admin, specialist.ID, false)
	require.NoError(t, err)

	_, _, _, err = authSvc.LoginStaff(ctx, "spec@x.com", "specpass")
	requireCode(t, err, apperrors.CodeForbidden)
	_, _, _, err = authSvc.LoginStaff(ctx, "root@example.com", "nope")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestEnsureBootstrapAdmin_IsIdempotent(t *testing.T) {
	authSvc, staffSvc, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, authSvc.EnsureBootstrapAdmin(ctx, "root@example.com", "other"))
	require.NoError(t, authSvc.EnsureBootstrapAdmin(ctx, "", ""))

	members, err := staffSvc.ListStaffMembers(ctx, StaffListFilters{})
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestStaffService(t *testing.T) {
	authSvc, staffSvc, _ := newAuthFixture(t)
	ctx := context.Background()
	admin, _, _, err := authSvc.LoginStaff(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)

	specialist, err := staffSvc.CreateStaffMember(ctx, admin, "", "spec@x.com", "specpass", domain.StaffRoleSpecialist)
	require.NoError(t, err)
	assert.Equal(t, "spec", specialist.Name)
	assert.True(t, specialist.Active)

	_, err = staffSvc.CreateStaffMember(ctx, admin, "Dup", "spec@x.com", "specpass", domain.StaffRoleSpecialist)
	requireCode(t, err, apperrors.CodeConflict)
	_, err = staffSvc.CreateStaffMember(ctx, admin, "Bad", "bad@x.com", "pw", domain.StaffRole("OWNER"))
	requireCode(t, err, apperrors.CodeValidation)
	_, err = staffSvc.CreateStaffMember(ctx, specialist, "Nope", "nope@x.com", "pw", domain.StaffRoleSpecialist)
	requireCode(t, err, apperrors.CodeForbidden)

	specialists, err := staffSvc.ListSpecialists(ctx)
	require.NoError(t, err)
	require.Len(t, specialists, 1)
	assert.Equal(t, "spec@x.com", specialists[0].Email)

	_, err = staffSvc.SetActive(ctx, admin, specialist.ID, false)
	require.NoError(t, err)
	specialists, err = staffSvc.ListSpecialists(ctx)
	require.NoError(t, err)
	assert.Empty(t, specialists)

	_, err = staffSvc.SetActive(ctx, admin, "missing", true)
	requireCode(t, err, apperrors.CodeNotFound)
}
