package tenants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

const (
	companiesCollection = "companies"
	usersCollection     = "users"
	tokensCollection    = "onboarding_tokens"

	tokenTTL = 72 * time.Hour
)

var (
	// ErrDomainTaken indicates the company domain is already registered.
	ErrDomainTaken = errors.New("tenants: domain already registered")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("tenants: email already registered")
	// ErrNotFound indicates a missing directory record.
	ErrNotFound = errors.New("tenants: not found")
	// ErrInvalidTransition rejects status changes outside the lifecycle.
	ErrInvalidTransition = errors.New("tenants: invalid status transition")
)

// invalidTokenMessage is the single message returned for unknown or already
// consumed tokens, so callers cannot probe which tokens ever existed.
const invalidTokenMessage = "Invalid token."

// Service is the multi-tenant company and user directory.
type Service struct {
	companies *kv.Collection[Company]
	users     *kv.Collection[User]
	tokens    *kv.Collection[OnboardingToken]
	logger    *slog.Logger
	now       func() time.Time
}

// NewService binds the directory to a kv store.
func NewService(store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		companies: kv.NewCollection(store, companiesCollection, func(c Company) string { return c.ID }),
		users:     kv.NewCollection(store, usersCollection, func(u User) string { return u.ID }),
		tokens:    kv.NewCollection(store, tokensCollection, func(t OnboardingToken) string { return t.Token }),
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateCompanyInput groups tenant provisioning fields.
type CreateCompanyInput struct {
	Name          string
	Domain        string
	AdminFullName string
	AdminEmail    string
	Features      map[string]bool
	MaxUsers      int
}

// CreateCompanyResult carries everything the provisioning flow produced. The
// temporary password appears here once and is never retrievable again.
type CreateCompanyResult struct {
	Company      Company
	Admin        User
	Token        string
	TempPassword string
	ExpiresAt    time.Time
}

// CreateCompany provisions a tenant: placeholder admin user, company record,
// onboarding token. The sequence spans three collections without a shared
// transaction; when a later step fails, the earlier writes are compensated
// so no orphaned user or company survives.
func (s *Service) CreateCompany(ctx context.Context, input CreateCompanyInput) (CreateCompanyResult, error) {
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	email := strings.ToLower(strings.TrimSpace(input.AdminEmail))
	if input.Name == "" || domain == "" || email == "" {
		return CreateCompanyResult{}, errors.New("tenants: name, domain and admin email required")
	}
	if _, err := s.companies.FindOne(ctx, func(c Company) bool { return c.Domain == domain }); err == nil {
		return CreateCompanyResult{}, fmt.Errorf("%w: %s", ErrDomainTaken, domain)
	}
	if _, err := s.users.FindOne(ctx, func(u User) bool { return strings.EqualFold(u.Email, email) }); err == nil {
		return CreateCompanyResult{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	now := s.now()
	companyID := uuid.NewString()
	admin := User{
		ID:                     uuid.NewString(),
		CompanyID:              companyID,
		FullName:               input.AdminFullName,
		Email:                  email,
		Role:                   RoleAdmin,
		Status:                 UserStatusPending,
		RequiresPasswordChange: true,
		CreatedAt:              now,
	}
	if err := s.users.Insert(ctx, admin); err != nil {
		return CreateCompanyResult{}, err
	}

	maxUsers := input.MaxUsers
	if maxUsers <= 0 {
		maxUsers = 25
	}
	company := Company{
		ID:        companyID,
		Name:      input.Name,
		Domain:    domain,
		Status:    CompanyStatusProvisioning,
		Features:  input.Features,
		MaxUsers:  maxUsers,
		CreatedAt: now,
	}
	if err := s.companies.Insert(ctx, company); err != nil {
		s.compensate(ctx, "user", func() error { return s.users.Delete(ctx, admin.ID) })
		return CreateCompanyResult{}, err
	}

	tempPassword := generateTempPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.compensate(ctx, "company", func() error { return s.companies.Delete(ctx, company.ID) })
		s.compensate(ctx, "user", func() error { return s.users.Delete(ctx, admin.ID) })
		return CreateCompanyResult{}, err
	}
	token := OnboardingToken{
		Token:            uuid.NewString(),
		CompanyID:        companyID,
		UserID:           admin.ID,
		Email:            email,
		TempPasswordHash: string(hash),
		ExpiresAt:        now.Add(tokenTTL),
		CreatedAt:        now,
	}
	if err := s.tokens.Insert(ctx, token); err != nil {
		s.compensate(ctx, "company", func() error { return s.companies.Delete(ctx, company.ID) })
		s.compensate(ctx, "user", func() error { return s.users.Delete(ctx, admin.ID) })
		return CreateCompanyResult{}, err
	}

	return CreateCompanyResult{
		Company:      company,
		Admin:        admin,
		Token:        token.Token,
		TempPassword: tempPassword,
		ExpiresAt:    token.ExpiresAt,
	}, nil
}

func (s *Service) compensate(ctx context.Context, entity string, undo func() error) {
	if err := undo(); err != nil && s.logger != nil {
		s.logger.Error("tenant provisioning compensation failed",
			slog.String("entity", entity), slog.Any("error", err))
	}
}

// ConsumeToken validates and consumes an onboarding token. A successful call
// deletes the token, so a second call with the same string is invalid.
// Expired tokens are rejected on lookup but not proactively purged.
func (s *Service) ConsumeToken(ctx context.Context, token string) TokenValidation {
	record, err := s.tokens.Get(ctx, token)
	if err != nil {
		return TokenValidation{Valid: false, Error: invalidTokenMessage}
	}
	if s.now().After(record.ExpiresAt) {
		return TokenValidation{Valid: false, Error: "Token has expired."}
	}
	if err := s.tokens.Delete(ctx, token); err != nil {
		// lost the race to another consumer
		return TokenValidation{Valid: false, Error: invalidTokenMessage}
	}
	return TokenValidation{Valid: true, Token: &record}
}

// CompleteOnboarding consumes the token, activates the admin user with the
// caller's chosen password, and moves the company from PROVISIONING to
// ACTIVE.
func (s *Service) CompleteOnboarding(ctx context.Context, token, newPassword string) (User, error) {
	if len(newPassword) < 8 {
		return User{}, errors.New("tenants: password must be at least 8 characters")
	}
	validation := s.ConsumeToken(ctx, token)
	if !validation.Valid {
		return User{}, fmt.Errorf("tenants: %s", validation.Error)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	var activated User
	err = s.users.Update(ctx, validation.Token.UserID, func(u User) User {
		u.Status = UserStatusActive
		u.RequiresPasswordChange = false
		u.PasswordHash = string(hash)
		activated = u
		return u
	})
	if err != nil {
		return User{}, err
	}
	err = s.companies.Update(ctx, validation.Token.CompanyID, func(c Company) Company {
		if c.Status == CompanyStatusProvisioning {
			c.Status = CompanyStatusActive
		}
		return c
	})
	if err != nil {
		return User{}, err
	}
	return activated, nil
}

// GetCompany returns a tenant by id.
func (s *Service) GetCompany(ctx context.Context, id string) (Company, error) {
	company, err := s.companies.Get(ctx, id)
	if err != nil {
		return Company{}, ErrNotFound
	}
	return company, nil
}

// ListCompanies returns every tenant.
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.companies.Find(ctx, nil)
}

// SetCompanyStatus toggles a tenant between ACTIVE and SUSPENDED. Companies
// still provisioning are activated only through onboarding.
func (s *Service) SetCompanyStatus(ctx context.Context, id string, status CompanyStatus) (Company, error) {
	if status != CompanyStatusActive && status != CompanyStatusSuspended {
		return Company{}, fmt.Errorf("%w: company -> %s", ErrInvalidTransition, status)
	}
	current, err := s.GetCompany(ctx, id)
	if err != nil {
		return Company{}, err
	}
	if current.Status == CompanyStatusProvisioning {
		return Company{}, fmt.Errorf("%w: company %s is still provisioning", ErrInvalidTransition, id)
	}
	current.Status = status
	if err := s.companies.Update(ctx, id, func(c Company) Company {
		c.Status = status
		return c
	}); err != nil {
		return Company{}, err
	}
	return current, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return user, nil
}

// ListUsers returns a tenant's users.
func (s *Service) ListUsers(ctx context.Context, companyID string) ([]User, error) {
	return s.users.Find(ctx, func(u User) bool { return u.CompanyID == companyID })
}

// SetUserStatus toggles a user between ACTIVE and SUSPENDED. Pending users
// are activated only through onboarding.
func (s *Service) SetUserStatus(ctx context.Context, id string, status UserStatus) (User, error) {
	if status != UserStatusActive && status != UserStatusSuspended {
		return User{}, fmt.Errorf("%w: user -> %s", ErrInvalidTransition, status)
	}
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if current.Status == UserStatusPending {
		return User{}, fmt.Errorf("%w: user %s has not completed onboarding", ErrInvalidTransition, id)
	}
	current.Status = status
	if err := s.users.Update(ctx, id, func(u User) User {
		u.Status = status
		return u
	}); err != nil {
		return User{}, err
	}
	return current, nil
}

func generateTempPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
