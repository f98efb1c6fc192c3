package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/productos", h.handleList)
	r.Post("/productos", h.handleCreate)
	r.Get("/productos/{id}", h.handleGet)
	r.Put("/productos/{id}", h.handleUpdate)
	r.Delete("/productos/{id}", h.handleDelete)
}

type productPayload struct {
	Nombre           string  `json:"nombre" validate:"required"`
	IDCategoria      int64   `json:"id_categoria"`
	IDUnidad         int64   `json:"id_unidad"`
	PrecioVenta      float64 `json:"precio_venta" validate:"gte=0"`
	PrecioCompra     float64 `json:"precio_compra" validate:"gte=0"`
	StockActual      float64 `json:"stock_actual"`
	StockMinimo      float64 `json:"stock_minimo" validate:"gte=0"`
	StockMaximo      float64 `json:"stock_maximo" validate:"gte=0"`
	CambiaEstado     bool    `json:"cambia_estado"`
	CambiaApariencia bool    `json:"cambia_apariencia"`
	TiempoCambio     int     `json:"tiempo_cambio" validate:"gte=0"`
}

func (p productPayload) toProduct() Product {
	return Product{
		Nombre: p.Nombre, IDCategoria: p.IDCategoria, IDUnidad: p.IDUnidad,
		PrecioVenta: p.PrecioVenta, PrecioCompra: p.PrecioCompra,
		StockActual: p.StockActual, StockMinimo: p.StockMinimo, StockMaximo: p.StockMaximo,
		CambiaEstado: p.CambiaEstado, CambiaApariencia: p.CambiaApariencia,
		TiempoCambio: p.TiempoCambio,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{Search: r.URL.Query().Get("buscar")}
	if raw := r.URL.Query().Get("categoria"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			filters.CategoryID = &id
		}
	}
	filters.LowStock = r.URL.Query().Get("stock_bajo") == "1"
	if raw := r.URL.Query().Get("limit"); raw != "" {
		filters.Limit, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		filters.Offset, _ = strconv.Atoi(raw)
	}

	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("catalog list failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"productos": products, "total": total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), payload.toProduct())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), id, payload.toProduct()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "eliminado": true})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %w", httpx.ErrValidation)
	}
	return id, nil
}
