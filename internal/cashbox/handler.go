package cashbox

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for caja sessions.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs cashbox handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers caja routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/cajas", h.handleOpen)
	r.Get("/cajas/{id}", h.handleGet)
	r.Put("/cajas/{id}/cerrar", h.handleClose)
}

type openPayload struct {
	IDUsuario    int64   `json:"id_usuario" validate:"required,gt=0"`
	MontoInicial float64 `json:"monto_inicial" validate:"gte=0"`
}

type closePayload struct {
	MontoFinal float64 `json:"monto_final" validate:"gte=0"`
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
	sess, err := h.service.Open(r.Context(), payload.IDUsuario, payload.MontoInicial)
	if err != nil {
		h.logger.Error("caja open failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, movements, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"caja": sess, "movimientos": movements})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload closePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess, err := h.service.Close(r.Context(), id, payload.MontoFinal)
	if err != nil {
		h.logger.Error("caja close failed", "caja", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %w", httpx.ErrValidation)
	}
	return id, nil
}
