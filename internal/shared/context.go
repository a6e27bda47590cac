package shared

import "context"

// PlatformCompanyID is the reserved tenant of the platform owner.
const PlatformCompanyID = "0"

// Identity describes the authenticated caller as resolved by the session
// collaborator. A nil Identity means no valid session.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

// IsPlatformOwner reports whether the caller operates outside tenant scope.
func (id *Identity) IsPlatformOwner() bool {
	return id != nil && id.CompanyID == PlatformCompanyID
}

type contextKey string

const identityKey contextKey = "identity"

// ContextWithIdentity attaches the caller identity to the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity or nil when unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
