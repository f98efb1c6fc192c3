package purchases

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for compras.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs purchases handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/compras", h.handleList)
	r.Post("/compras", h.handleOpen)
	r.Get("/compras/{id}", h.handleGet)
	r.Delete("/compras/{id}", h.handleRemove)
	r.Post("/compras/detalle", h.handleAddLine)
	r.Delete("/compras/detalle/{id}", h.handleRemoveLine)
}

type openPayload struct {
	IDProveedor   int64      `json:"id_proveedor" validate:"required,gt=0"`
	IDUsuario     int64      `json:"id_usuario" validate:"required,gt=0"`
	Fecha         *time.Time `json:"fecha"`
	Observaciones string     `json:"observaciones"`
}

type addLinePayload struct {
	IDCompra       int64   `json:"id_compra" validate:"required,gt=0"`
	IDProducto     int64   `json:"id_producto" validate:"required,gt=0"`
	Cantidad       float64 `json:"cantidad" validate:"required,gt=0"`
	PrecioUnitario float64 `json:"precio_unitario" validate:"required,gt=0"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	purchases, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("purchase list failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"compras": purchases, "total": total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchase, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var payload openPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.Open(r.Context(), OpenInput{
		IDProveedor:   payload.IDProveedor,
		IDUsuario:     payload.IDUsuario,
		Fecha:         payload.Fecha,
		Observaciones: payload.Observaciones,
	})
	if err != nil {
		h.logger.Error("purchase open failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id_compra": id})
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var payload addLinePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.AddLine(r.Context(), AddLineInput{
		IDCompra:       payload.IDCompra,
		IDProducto:     payload.IDProducto,
		Cantidad:       payload.Cantidad,
		PrecioUnitario: payload.PrecioUnitario,
	})
	if err != nil {
		h.logger.Error("purchase add line failed", "compra", payload.IDCompra, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveLine(r.Context(), id); err != nil {
		h.logger.Error("purchase remove line failed", "detalle", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "eliminado": true})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.logger.Error("purchase remove failed", "compra", id, "error", err)
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
