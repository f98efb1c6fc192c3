package shrinkage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// ScanEnqueuer queues an automatic pass for background execution instead of
// running it on the request goroutine.
type ScanEnqueuer interface {
	EnqueueShrinkageScan(ctx context.Context, at time.Time) (string, error)
}

// Handler wires HTTP endpoints for mermas.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	notifier *Notifier
	enqueuer ScanEnqueuer
	validate *validator.Validate
}

// NewHandler constructs shrinkage handler. enqueuer may be nil, in which case
// procesar-cambios always runs inline.
func NewHandler(logger *slog.Logger, service *Service, notifier *Notifier, enqueuer ScanEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, notifier: notifier, enqueuer: enqueuer, validate: validator.New()}
}

// MountRoutes registers merma routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mermas", h.handleList)
	r.Post("/mermas", h.handleRegister)
	r.Delete("/mermas/{id}", h.handleDelete)
	r.Post("/mermas/transformar", h.handleTransform)
	r.Post("/mermas/procesar-cambios", h.handleProcess)
	r.Get("/mermas/notificaciones", h.handleNotifications)
}

type registerPayload struct {
	IDProducto int64   `json:"id_producto" validate:"required,gt=0"`
	Cantidad   float64 `json:"cantidad" validate:"required,gt=0"`
	Motivo     string  `json:"motivo" validate:"required"`
	IDUsuario  *int64  `json:"id_usuario"`
}

type transformPayload struct {
	IDProductoOrigen int64   `json:"id_producto_origen" validate:"required,gt=0"`
	NombreDestino    string  `json:"nombre_destino" validate:"required"`
	Cantidad         float64 `json:"cantidad" validate:"required,gt=0"`
	CrearDestino     bool    `json:"crear_destino"`
	IDUsuario        *int64  `json:"id_usuario"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("merma list failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mermas": records})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Register(r.Context(), RegisterInput{
		IDProducto: payload.IDProducto,
		Cantidad:   payload.Cantidad,
		Motivo:     payload.Motivo,
		IDUsuario:  payload.IDUsuario,
	})
	if err != nil {
		h.logger.Error("merma register failed", "producto", payload.IDProducto, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("id inválido: %w", httpx.ErrValidation))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("merma delete failed", "merma", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "revertida": true})
}

func (h *Handler) handleTransform(w http.ResponseWriter, r *http.Request) {
	var payload transformPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Transform(r.Context(), TransformInput{
		IDProductoOrigen: payload.IDProductoOrigen,
		NombreDestino:    payload.NombreDestino,
		Cantidad:         payload.Cantidad,
		CrearDestino:     payload.CrearDestino,
		IDUsuario:        payload.IDUsuario,
	})
	if err != nil {
		h.logger.Error("merma transform failed", "origen", payload.IDProductoOrigen, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer != nil && isAsync(r) {
		jobID, err := h.enqueuer.EnqueueShrinkageScan(r.Context(), time.Now().UTC())
		if err != nil {
			h.logger.Error("enqueue shrinkage scan failed", "error", err)
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "encolado": true})
		return
	}
	result, err := h.service.ProcessChanges(r.Context())
	if err != nil {
		h.logger.Error("automatic shrinkage pass failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func isAsync(r *http.Request) bool {
	switch r.URL.Query().Get("async") {
	case "1", "true":
		return true
	}
	return false
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"notificaciones": []Notification{}})
		return
	}
	feed, err := h.notifier.Feed(r.Context())
	if err != nil {
		h.logger.Error("notification feed failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notificaciones": feed})
}
