package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian/internal/authz"
	"github.com/meridian-erp/meridian/internal/coa"
	dochttp "github.com/meridian-erp/meridian/internal/documents/http"
	"github.com/meridian-erp/meridian/internal/reports"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AccountsHandler *coa.Handler
	InvoiceHandler  *dochttp.Handler
	JournalHandler  *dochttp.Handler
	ReportsHandler  *reports.Handler
	AuthzMiddleware authz.Middleware
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/accounting", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Require("accounts.read"))
			params.AccountsHandler.MountRoutes(r)
		})
		r.Route("/invoices", func(r chi.Router) {
			params.InvoiceHandler.MountRoutes(r)
		})
		r.Route("/journals", func(r chi.Router) {
			params.JournalHandler.MountRoutes(r)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Require("reports.read"))
			params.ReportsHandler.MountRoutes(r)
		})
	})

	return r
}
