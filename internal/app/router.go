package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sgep-io/sgep/internal/catalog"
	"github.com/sgep-io/sgep/internal/dashboard"
	"github.com/sgep-io/sgep/internal/knowledge"
	"github.com/sgep-io/sgep/internal/observability"
	"github.com/sgep-io/sgep/internal/suppliers"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	SupplierHandler  *suppliers.Handler
	KnowledgeHandler *knowledge.Handler
	DashboardHandler *dashboard.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with SGEP defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/produtos", params.CatalogHandler.MountRoutes)
	r.Route("/fornecedores", params.SupplierHandler.MountRoutes)
	r.Route("/base-conhecimento", params.KnowledgeHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
