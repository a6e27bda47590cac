package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/reports"
	"github.com/nexusledger/nexusledger/internal/tenants"
	"github.com/nexusledger/nexusledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Directory       *tenants.Service
	Resolver        tenants.IdentityResolver
	AccountsHandler *accounts.Handler
	JournalHandler  *journal.Handler
	ReportsHandler  *reports.Handler
	TenantsHandler  *tenants.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Onboarding is reachable without an identity: the token is the
	// credential.
	if params.TenantsHandler != nil {
		r.Route("/onboarding", params.TenantsHandler.MountOnboardingRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.Directory != nil {
			resolver := params.Resolver
			if resolver == nil {
				resolver = tenants.HeaderResolver{}
			}
			r.Use(tenants.Middleware(params.Directory, resolver))
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.JournalHandler != nil {
			r.Route("/journals", params.JournalHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.TenantsHandler != nil {
			r.Route("/admin", params.TenantsHandler.MountAdminRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
