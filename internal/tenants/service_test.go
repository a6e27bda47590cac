package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

func newDirectory(t *testing.T) *Service {
	t.Helper()
	svc := NewService(kv.NewMemoryStore(), nil)
	svc.WithNow(func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) })
	return svc
}

func provisionInput() CreateCompanyInput {
	return CreateCompanyInput{
		Name:          "Acme Industries",
		Domain:        "acme.example.com",
		AdminFullName: "Jordan Mills",
		AdminEmail:    "jordan@acme.example.com",
		MaxUsers:      10,
	}
}

func TestCreateCompanyProvisionsAllThreeRecords(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	assert.Equal(t, CompanyStatusProvisioning, result.Company.Status)
	assert.Equal(t, UserStatusPending, result.Admin.Status)
	assert.True(t, result.Admin.RequiresPasswordChange)
	assert.NotEmpty(t, result.Token)
	assert.Len(t, result.TempPassword, 16)

	// stored token holds only the bcrypt hash
	stored, err := svc.tokens.Get(ctx, result.Token)
	require.NoError(t, err)
	assert.NotEqual(t, result.TempPassword, stored.TempPasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.TempPasswordHash), []byte(result.TempPassword)))
}

func TestCreateCompanyRejectsDuplicateDomain(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	_, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	input := provisionInput()
	input.AdminEmail = "other@acme.example.com"
	_, err = svc.CreateCompany(ctx, input)
	assert.ErrorIs(t, err, ErrDomainTaken)
}

func TestTokenConsumedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	first := svc.ConsumeToken(ctx, result.Token)
	require.True(t, first.Valid)
	require.NotNil(t, first.Token)
	assert.Equal(t, result.Admin.ID, first.Token.UserID)

	second := svc.ConsumeToken(ctx, result.Token)
	assert.False(t, second.Valid)
	assert.Equal(t, "Invalid token.", second.Error)
}

func TestExpiredTokenRejectedButNotPurged(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Date(2025, 4, 30, 8, 0, 0, 0, time.UTC) })
	validation := svc.ConsumeToken(ctx, result.Token)
	assert.False(t, validation.Valid)
	assert.Equal(t, "Token has expired.", validation.Error)

	// rejected on lookup, still in the store
	_, err = svc.tokens.Get(ctx, result.Token)
	assert.NoError(t, err)
}

func TestCompleteOnboardingActivatesUserAndCompany(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	user, err := svc.CompleteOnboarding(ctx, result.Token, "rose-bud-2025!")
	require.NoError(t, err)
	assert.Equal(t, UserStatusActive, user.Status)
	assert.False(t, user.RequiresPasswordChange)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("rose-bud-2025!")))

	company, err := svc.GetCompany(ctx, result.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, CompanyStatusActive, company.Status)
}

func TestCompanyStatusToggle(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	// provisioning companies cannot be toggled
	_, err = svc.SetCompanyStatus(ctx, result.Company.ID, CompanyStatusSuspended)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CompleteOnboarding(ctx, result.Token, "rose-bud-2025!")
	require.NoError(t, err)

	suspended, err := svc.SetCompanyStatus(ctx, result.Company.ID, CompanyStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, CompanyStatusSuspended, suspended.Status)

	restored, err := svc.SetCompanyStatus(ctx, result.Company.ID, CompanyStatusActive)
	require.NoError(t, err)
	assert.Equal(t, CompanyStatusActive, restored.Status)

	// only the two admin states are reachable
	_, err = svc.SetCompanyStatus(ctx, result.Company.ID, CompanyStatusProvisioning)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUserStatusToggleRequiresOnboarding(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	result, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	_, err = svc.SetUserStatus(ctx, result.Admin.ID, UserStatusSuspended)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CompleteOnboarding(ctx, result.Token, "rose-bud-2025!")
	require.NoError(t, err)

	suspended, err := svc.SetUserStatus(ctx, result.Admin.ID, UserStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, UserStatusSuspended, suspended.Status)
}

func TestListUsersIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	svc := newDirectory(t)

	first, err := svc.CreateCompany(ctx, provisionInput())
	require.NoError(t, err)

	other := provisionInput()
	other.Domain = "globex.example.com"
	other.AdminEmail = "kim@globex.example.com"
	second, err := svc.CreateCompany(ctx, other)
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx, first.Company.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, first.Admin.ID, users[0].ID)
	assert.NotEqual(t, second.Admin.ID, users[0].ID)
}
