package tenants

import (
	"net/http"

	"github.com/nexusledger/nexusledger/internal/platform/httpx"
	"github.com/nexusledger/nexusledger/internal/shared"
)

// IdentityResolver is the opaque session collaborator: it yields the
// caller's identity or nil when unauthenticated.
type IdentityResolver interface {
	Resolve(r *http.Request) *shared.Identity
}

// HeaderResolver trusts identity headers set by the fronting gateway.
type HeaderResolver struct{}

// Resolve implements IdentityResolver.
func (HeaderResolver) Resolve(r *http.Request) *shared.Identity {
	userID := r.Header.Get("X-User-ID")
	companyID := r.Header.Get("X-Company-ID")
	if userID == "" || companyID == "" {
		return nil
	}
	return &shared.Identity{
		UserID:    userID,
		CompanyID: companyID,
		Role:      r.Header.Get("X-User-Role"),
	}
}

// Middleware resolves and vets the caller against the directory: a missing
// identity is a 401, a suspended user or tenant is a 403. The platform owner
// tenant bypasses the company check.
func Middleware(service *Service, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolver.Resolve(r)
			if id == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
				return
			}
			user, err := service.GetUser(r.Context(), id.UserID)
			if err != nil || user.CompanyID != id.CompanyID {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown session identity")
				return
			}
			if user.Status != UserStatusActive {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "user is not active")
				return
			}
			if !id.IsPlatformOwner() {
				company, err := service.GetCompany(r.Context(), id.CompanyID)
				if err != nil || company.Status != CompanyStatusActive {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant is not active")
					return
				}
			}
			id.Role = string(user.Role)
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
}
