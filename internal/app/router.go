package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/Christophertabanag/Inventory-System/internal/audit/http"
	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/labels"
	"github.com/Christophertabanag/Inventory-System/internal/observability"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/stocktake"
	"github.com/Christophertabanag/Inventory-System/internal/view"
	"github.com/Christophertabanag/Inventory-System/jobs"
	"github.com/Christophertabanag/Inventory-System/report"
	"github.com/Christophertabanag/Inventory-System/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	InventoryHandler    *inventory.Handler
	InventoryAPIHandler *inventory.APIHandler
	SalesHandler        *inventory.SalesHandler
	StocktakeHandler    *stocktake.Handler
	StocktakeAPIHandler *stocktake.APIHandler
	LabelsHandler       *labels.Handler
	AuditHandler        *audithttp.Handler
	ReportHandler       *report.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.InventoryHandler != nil {
		if params.LabelsHandler != nil {
			params.InventoryHandler.WithBarcodeImage(params.LabelsHandler.BarcodePNG)
		}
		params.InventoryHandler.MountRoutes(r)
	}
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.StocktakeHandler != nil {
		r.Route("/stocktake", params.StocktakeHandler.MountRoutes)
	}
	if params.LabelsHandler != nil {
		r.Route("/labels", params.LabelsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	r.Route("/api/v1", func(api chi.Router) {
		if params.InventoryAPIHandler != nil {
			params.InventoryAPIHandler.MountRoutes(api)
		}
		if params.StocktakeAPIHandler != nil {
			params.StocktakeAPIHandler.MountRoutes(api)
		}
	})
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
