package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nexusledger/nexusledger/internal/platform/httpx"
	"github.com/nexusledger/nexusledger/internal/shared"
)

// Suggester proposes entry descriptions from line context. An empty result
// means no suggestion is available.
type Suggester interface {
	Suggest(ctx context.Context, prompt string) string
}

type Handler struct {
	service   *Service
	suggester Suggester
	logger    *slog.Logger
	validate  *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// WithSuggester enables the description suggestion endpoint.
func (h *Handler) WithSuggester(s Suggester) *Handler {
	h.suggester = s
	return h
}

// MountRoutes registers journal and general ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/batch", h.CreateBatch)
	r.Get("/gl", h.GL)
	r.Post("/suggest-description", h.SuggestDescription)
	r.Get("/{number}", h.Get)
	r.Post("/{number}/reverse", h.Reverse)
}

type lineRequest struct {
	AccountID   string  `json:"account_id" validate:"required"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	CostCenter  string  `json:"cost_center"`
	Description string  `json:"description"`
}

type createEntryRequest struct {
	Reference         string        `json:"reference"`
	TransactionDate   string        `json:"transaction_date" validate:"required"`
	Type              string        `json:"type"`
	Description       string        `json:"description"`
	Currency          string        `json:"currency"`
	ExchangeRate      float64       `json:"exchange_rate"`
	ReportingCurrency string        `json:"reporting_currency"`
	Status            string        `json:"status"`
	Period            string        `json:"period"`
	Lines             []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (req createEntryRequest) toEntry(id *shared.Identity) JournalEntry {
	lines := make([]JournalLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			CostCenter:  l.CostCenter,
			Description: l.Description,
		})
	}
	return JournalEntry{
		CompanyID:         id.CompanyID,
		Reference:         req.Reference,
		TransactionDate:   req.TransactionDate,
		Type:              JournalType(req.Type),
		Description:       req.Description,
		Currency:          req.Currency,
		ExchangeRate:      req.ExchangeRate,
		ReportingCurrency: req.ReportingCurrency,
		Status:            JournalStatus(req.Status),
		UserID:            id.UserID,
		Period:            req.Period,
		Lines:             lines,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	entries, err := h.service.List(r.Context(), id.CompanyID)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	entry, err := h.service.Get(r.Context(), id.CompanyID, chi.URLParam(r, "number"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Save(r.Context(), req.toEntry(id))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	var req struct {
		Entries []createEntryRequest `json:"entries" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	batch := make([]JournalEntry, 0, len(req.Entries))
	for _, item := range req.Entries {
		batch = append(batch, item.toEntry(id))
	}
	saved, err := h.service.SaveBatch(r.Context(), batch)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"entries": saved})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	reversal, err := h.service.Reverse(r.Context(), id.CompanyID, chi.URLParam(r, "number"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) GL(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	rows, err := h.service.GLTransactions(r.Context(), id.CompanyID)
	if err != nil {
		h.logger.Error("derive gl", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": rows})
}

// SuggestDescription asks the suggestion service for an entry description
// built from the lines the caller has keyed so far. The response carries an
// empty suggestion when the service is disabled or unreachable.
func (h *Handler) SuggestDescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string        `json:"reference"`
		Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	suggestion := ""
	if h.suggester != nil {
		suggestion = h.suggester.Suggest(r.Context(), suggestionPrompt(req.Reference, req.Lines))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"description": suggestion})
}

func suggestionPrompt(reference string, lines []lineRequest) string {
	var b strings.Builder
	b.WriteString("Write a one-line journal entry description for these lines")
	if reference != "" {
		fmt.Fprintf(&b, " (reference %s)", reference)
	}
	b.WriteString(":")
	for _, line := range lines {
		fmt.Fprintf(&b, "\naccount %s debit %.2f credit %.2f", line.AccountID, line.Debit, line.Credit)
	}
	return b.String()
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrNoLines), errors.Is(err, ErrLineBothSides),
		errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrUnknownAccount), errors.Is(err, ErrNotPosted),
		errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("journal operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
