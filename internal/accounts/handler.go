package accounts

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

// MountRoutes registers chart of accounts endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/tree", h.Tree)
	r.Put("/{code}", h.Save)
	r.Delete("/{code}", h.Delete)
}

type saveAccountRequest struct {
	Name       string  `json:"name" validate:"required"`
	Type       string  `json:"type" validate:"required"`
	ParentCode string  `json:"parent_code"`
	Balance    float64 `json:"balance"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	accounts, err := h.service.List(r.Context(), id.CompanyID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	tree, err := h.service.Tree(r.Context(), id.CompanyID)
	if err != nil {
		h.logger.Error("account tree", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tree": tree})
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	var req saveAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.Save(r.Context(), Account{
		CompanyID:  id.CompanyID,
		Code:       chi.URLParam(r, "code"),
		Name:       req.Name,
		Type:       AccountType(req.Type),
		ParentCode: req.ParentCode,
		Balance:    req.Balance,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id.CompanyID, chi.URLParam(r, "code")); err != nil {
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSystemAccount), errors.Is(err, ErrNonZeroBalance), errors.Is(err, ErrHasChildren),
		errors.Is(err, ErrUnknownType), errors.Is(err, ErrParentMissing), errors.Is(err, ErrCycle):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
