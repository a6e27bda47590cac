package tenants

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nexusledger/nexusledger/internal/platform/httpx"
	"github.com/nexusledger/nexusledger/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// MountAdminRoutes registers tenant administration endpoints. These sit
// behind the identity middleware and are meant for the platform owner.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/companies", h.ListCompanies)
	r.Post("/companies", h.CreateCompany)
	r.Get("/companies/{id}", h.GetCompany)
	r.Post("/companies/{id}/status", h.SetCompanyStatus)
	r.Get("/users", h.ListUsers)
	r.Post("/users/{id}/status", h.SetUserStatus)
}

// MountOnboardingRoutes registers the unauthenticated onboarding flow.
func (h *Handler) MountOnboardingRoutes(r chi.Router) {
	r.Post("/complete", h.CompleteOnboarding)
}

type createCompanyRequest struct {
	Name          string          `json:"name" validate:"required"`
	Domain        string          `json:"domain" validate:"required,fqdn"`
	AdminFullName string          `json:"admin_full_name" validate:"required"`
	AdminEmail    string          `json:"admin_email" validate:"required,email"`
	Features      map[string]bool `json:"features"`
	MaxUsers      int             `json:"max_users"`
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if !id.IsPlatformOwner() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "platform owner only")
		return
	}
	var req createCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.CreateCompany(r.Context(), CreateCompanyInput{
		Name:          req.Name,
		Domain:        req.Domain,
		AdminFullName: req.AdminFullName,
		AdminEmail:    req.AdminEmail,
		Features:      req.Features,
		MaxUsers:      req.MaxUsers,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"company":       result.Company,
		"admin":         sanitizeUser(result.Admin),
		"token":         result.Token,
		"temp_password": result.TempPassword,
		"expires_at":    result.ExpiresAt,
	})
}

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if !id.IsPlatformOwner() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "platform owner only")
		return
	}
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	companyID := chi.URLParam(r, "id")
	if !id.IsPlatformOwner() && id.CompanyID != companyID {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "company belongs to another tenant")
		return
	}
	company, err := h.service.GetCompany(r.Context(), companyID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) SetCompanyStatus(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if !id.IsPlatformOwner() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "platform owner only")
		return
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	company, err := h.service.SetCompanyStatus(r.Context(), chi.URLParam(r, "id"), CompanyStatus(req.Status))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	companyID := id.CompanyID
	if id.IsPlatformOwner() {
		if q := r.URL.Query().Get("company_id"); q != "" {
			companyID = q
		}
	}
	users, err := h.service.ListUsers(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, sanitizeUser(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	target, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if !id.IsPlatformOwner() && target.CompanyID != id.CompanyID {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "user belongs to another tenant")
		return
	}
	user, err := h.service.SetUserStatus(r.Context(), target.ID, UserStatus(req.Status))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sanitizeUser(user))
}

type completeOnboardingRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req completeOnboardingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.CompleteOnboarding(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Onboarding Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, sanitizeUser(user))
}

func sanitizeUser(u User) User {
	u.PasswordHash = ""
	return u
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDomainTaken), errors.Is(err, ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("tenant operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
