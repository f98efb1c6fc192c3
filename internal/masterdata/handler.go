package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// Handler wires CRUD endpoints for categorias, proveedores and clientes.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	audit    AuditPort
	validate *validator.Validate
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewHandler constructs masterdata handler.
func NewHandler(logger *slog.Logger, repo *Repository, audit AuditPort) *Handler {
	return &Handler{logger: logger, repo: repo, audit: audit, validate: validator.New()}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categorias", h.handleListCategories)
	r.Post("/categorias", h.handleCreateCategory)
	r.Put("/categorias/{id}", h.handleUpdateCategory)
	r.Delete("/categorias/{id}", h.deleteHandler(trash.TableCategorias))

	r.Get("/proveedores", h.handleListSuppliers)
	r.Post("/proveedores", h.handleCreateSupplier)
	r.Put("/proveedores/{id}", h.handleUpdateSupplier)
	r.Delete("/proveedores/{id}", h.deleteHandler(trash.TableProveedores))

	r.Get("/clientes", h.handleListClients)
	r.Post("/clientes", h.handleCreateClient)
	r.Put("/clientes/{id}", h.handleUpdateClient)
	r.Delete("/clientes/{id}", h.deleteHandler(trash.TableClientes))
}

type categoryPayload struct {
	Nombre      string `json:"nombre" validate:"required"`
	Descripcion string `json:"descripcion"`
}

type supplierPayload struct {
	Nombre    string `json:"nombre" validate:"required"`
	Contacto  string `json:"contacto"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
}

type clientPayload struct {
	Nombre   string `json:"nombre" validate:"required"`
	Telefono string `json:"telefono"`
	Correo   string `json:"correo" validate:"omitempty,email"`
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListCategories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categorias": items})
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.repo.CreateCategory(r.Context(), Category{Nombre: payload.Nombre, Descripcion: payload.Descripcion})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.repo.UpdateCategory(r.Context(), id, Category{Nombre: payload.Nombre, Descripcion: payload.Descripcion}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListSuppliers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"proveedores": items})
}

func (h *Handler) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var payload supplierPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.repo.CreateSupplier(r.Context(), Supplier{
		Nombre: payload.Nombre, Contacto: payload.Contacto,
		Telefono: payload.Telefono, Direccion: payload.Direccion,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload supplierPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.repo.UpdateSupplier(r.Context(), id, Supplier{
		Nombre: payload.Nombre, Contacto: payload.Contacto,
		Telefono: payload.Telefono, Direccion: payload.Direccion,
	}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListClients(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clientes": items})
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var payload clientPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.repo.CreateClient(r.Context(), Client{
		Nombre: payload.Nombre, Telefono: payload.Telefono, Correo: payload.Correo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload clientPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.repo.UpdateClient(r.Context(), id, Client{
		Nombre: payload.Nombre, Telefono: payload.Telefono, Correo: payload.Correo,
	}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) deleteHandler(table trash.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		actor := shared.ActorFromContext(r.Context())
		if err := h.repo.SoftDelete(r.Context(), table, id, actor); err != nil {
			h.logger.Error("masterdata delete failed", "tabla", table, "id", id, "error", err)
			httpx.RespondError(w, err)
			return
		}
		if h.audit != nil {
			_ = h.audit.Record(r.Context(), shared.AuditLog{
				ActorID:  actor,
				Action:   "masterdata:eliminar",
				Entity:   string(table),
				EntityID: fmt.Sprintf("%d", id),
			})
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "eliminado": true})
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %w", httpx.ErrValidation)
	}
	return id, nil
}
