package tenants

import "time"

// CompanyStatus enumerates the tenant lifecycle.
type CompanyStatus string

const (
	CompanyStatusProvisioning CompanyStatus = "PROVISIONING"
	CompanyStatusActive       CompanyStatus = "ACTIVE"
	CompanyStatusSuspended    CompanyStatus = "SUSPENDED"
)

// UserStatus enumerates the user lifecycle.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusPending   UserStatus = "PENDING"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Role enumerates application roles.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleAdmin          Role = "ADMIN"
	RoleFinanceManager Role = "FINANCE_MANAGER"
	RoleAccountant     Role = "ACCOUNTANT"
	RoleAuditor        Role = "AUDITOR"
	RoleViewer         Role = "VIEWER"
)

// Company is a tenant record. Domain is unique across tenants.
type Company struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	Status    CompanyStatus   `json:"status"`
	Features  map[string]bool `json:"features,omitempty"`
	MaxUsers  int             `json:"max_users"`
	CreatedAt time.Time       `json:"created_at"`
}

// User is a directory record scoped to a company. CompanyID "0" is reserved
// for the platform owner.
type User struct {
	ID                     string     `json:"id"`
	CompanyID              string     `json:"company_id"`
	FullName               string     `json:"full_name"`
	Email                  string     `json:"email"`
	Role                   Role       `json:"role"`
	Department             string     `json:"department,omitempty"`
	Status                 UserStatus `json:"status"`
	RequiresPasswordChange bool       `json:"requires_password_change"`
	PasswordHash           string     `json:"password_hash,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// OnboardingToken is a single-use credential bundle. Only the bcrypt hash of
// the temporary password is stored; the raw value is returned exactly once
// at creation.
type OnboardingToken struct {
	Token            string    `json:"token"`
	CompanyID        string    `json:"company_id"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	TempPasswordHash string    `json:"temp_password_hash"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// TokenValidation is the outcome of a consume attempt.
type TokenValidation struct {
	Valid bool             `json:"valid"`
	Error string           `json:"error,omitempty"`
	Token *OnboardingToken `json:"-"`
}
