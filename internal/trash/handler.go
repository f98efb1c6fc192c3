package trash

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the papelera.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs trash handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers papelera routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/papelera", h.handleList)
	r.Post("/papelera/restore/{id}", h.handleRestore)
	r.Delete("/papelera/{id}", h.handlePurge)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("papelera list failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"papelera": items})
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Restore(r.Context(), id); err != nil {
		h.logger.Error("papelera restore failed", "entrada", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "restaurado": true})
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Purge(r.Context(), id); err != nil {
		h.logger.Error("papelera purge failed", "entrada", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "purgado": true})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %w", httpx.ErrValidation)
	}
	return id, nil
}
