package catalog

import (
	"context"
	"fmt"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int64, p Product) error
	SoftDelete(ctx context.Context, id int64, userID int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns products matching filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a product.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if err := validate(p); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "producto:crear", created.ID, map[string]any{"nombre": created.Nombre})
	return created, nil
}

// Update validates and rewrites catalog fields.
func (s *Service) Update(ctx context.Context, id int64, p Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return err
	}
	s.record(ctx, "producto:actualizar", id, map[string]any{"nombre": p.Nombre})
	return nil
}

// Delete soft-deletes a product, archiving it in the papelera.
func (s *Service) Delete(ctx context.Context, id int64) error {
	actor := shared.ActorFromContext(ctx)
	if err := s.repo.SoftDelete(ctx, id, actor); err != nil {
		return err
	}
	s.record(ctx, "producto:eliminar", id, nil)
	return nil
}

func validate(p Product) error {
	if p.Nombre == "" {
		return fmt.Errorf("nombre es obligatorio: %w", httpx.ErrValidation)
	}
	if p.PrecioVenta < 0 || p.PrecioCompra < 0 {
		return fmt.Errorf("precio no puede ser negativo: %w", httpx.ErrValidation)
	}
	if p.TiempoCambio < 0 {
		return fmt.Errorf("tiempo_cambio no puede ser negativo: %w", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "productos",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
