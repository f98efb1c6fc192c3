package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/cashbox"
	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/masterdata"
	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/purchases"
	"github.com/bodega-pos/bodega-pos/internal/sales"
	"github.com/bodega-pos/bodega-pos/internal/shrinkage"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Pool              *pgxpool.Pool
	CatalogHandler    *catalog.Handler
	SalesHandler      *sales.Handler
	PurchasesHandler  *purchases.Handler
	ShrinkageHandler  *shrinkage.Handler
	CashboxHandler    *cashbox.Handler
	TrashHandler      *trash.Handler
	MasterdataHandler *masterdata.Handler
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	params.CatalogHandler.MountRoutes(r)
	params.SalesHandler.MountRoutes(r)
	params.PurchasesHandler.MountRoutes(r)
	params.ShrinkageHandler.MountRoutes(r)
	params.CashboxHandler.MountRoutes(r)
	params.TrashHandler.MountRoutes(r)
	params.MasterdataHandler.MountRoutes(r)

	return r
}
