package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/nexusledger/nexusledger/internal/platform/httpx"
	"github.com/nexusledger/nexusledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	group   singleflight.Group
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/trial-balance.csv", h.TrialBalanceCSV)
}

// buildOnce collapses concurrent builds of the same tenant/period report.
func (h *Handler) buildOnce(ctx context.Context, companyID, period string) (TrialBalance, error) {
	key := fmt.Sprintf("tb:%s:%s", companyID, period)
	result := h.group.DoChan(key, func() (any, error) {
		return h.service.TrialBalance(ctx, companyID, period)
	})
	select {
	case <-ctx.Done():
		return TrialBalance{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return TrialBalance{}, res.Err
		}
		return res.Val.(TrialBalance), nil
	}
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	report, err := h.buildOnce(r.Context(), id.CompanyID, r.URL.Query().Get("period"))
	if err != nil {
		h.logger.Error("build trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) TrialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	report, err := h.buildOnce(r.Context(), id.CompanyID, r.URL.Query().Get("period"))
	if err != nil {
		h.logger.Error("build trial balance csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.csv"`)
	if err := WriteTrialBalanceCSV(w, report); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
	}
}
