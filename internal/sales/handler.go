package sales

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

// Handler wires HTTP endpoints for ventas.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/ventas", h.handleCreate)
	r.Get("/ventas/{id}", h.handleGet)
}

type createPayload struct {
	IDCliente *int64      `json:"id_cliente"`
	IDUsuario int64       `json:"id_usuario" validate:"required,gt=0"`
	IDCaja    *int64      `json:"id_caja"`
	Fecha     *time.Time  `json:"fecha"`
	Lineas    []LineInput `json:"detalles" validate:"required,min=1,dive"`
	Subtotal  float64     `json:"subtotal"`
	Impuesto  float64     `json:"impuesto" validate:"gte=0"`
	Total     float64     `json:"total"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Create(r.Context(), CreateInput{
		IDCliente: payload.IDCliente,
		IDUsuario: payload.IDUsuario,
		IDCaja:    payload.IDCaja,
		Fecha:     payload.Fecha,
		Lineas:    payload.Lineas,
		Subtotal:  payload.Subtotal,
		Impuesto:  payload.Impuesto,
		Total:     payload.Total,
	})
	if err != nil {
		h.logger.Error("sale creation failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("id inválido: %w", httpx.ErrValidation))
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}
