package shrinkage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
	"github.com/bodega-pos/bodega-pos/internal/stock"
)

// Bounds for the automatic pass: the affected quantity never exceeds ten
// units nor the floor of available stock, and aims for at least three.
const (
	autoUpperBound = 10
	autoLowerBound = 3
)

// TxRepository exposes the operations available inside a shrinkage
// transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	FindActiveProductByName(ctx context.Context, name string) (catalog.Product, bool, error)
	CreateProduct(ctx context.Context, p catalog.Product) (int64, error)
	InsertRecord(ctx context.Context, rec Record) (int64, error)
	GetRecordForUpdate(ctx context.Context, id int64) (Record, error)
	DeleteRecord(ctx context.Context, id int64) error
	ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error)
	ApplyStockAny(ctx context.Context, productID int64, delta float64) (float64, error)
	ListEligibleForUpdate(ctx context.Context, now time.Time) ([]catalog.Product, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListRecords(ctx context.Context) ([]Record, error)
	ListLowStock(ctx context.Context) ([]catalog.Product, error)
	ListChangeDue(ctx context.Context, deadline time.Time) ([]catalog.Product, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates shrinkage workflows.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	logger  *slog.Logger
	randInt func(n int) int
	now     func() time.Time
}

// NewService builds Service. The random source is injectable so the batch
// pass is deterministic under test.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		audit:   audit,
		logger:  logger,
		randInt: rand.IntN,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns all shrinkage records.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.ListRecords(ctx)
}

// Register records manual spoilage and decrements stock. The quantity must
// not exceed current stock.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Record, error) {
	if input.IDProducto <= 0 {
		return Record{}, fmt.Errorf("id_producto es obligatorio: %w", httpx.ErrValidation)
	}
	if input.Cantidad <= 0 {
		return Record{}, fmt.Errorf("cantidad debe ser positiva: %w", httpx.ErrValidation)
	}
	if input.Motivo == "" {
		return Record{}, fmt.Errorf("motivo es obligatorio: %w", httpx.ErrValidation)
	}

	var rec Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetProductForUpdate(ctx, input.IDProducto)
		if err != nil {
			return err
		}
		if input.Cantidad > p.StockActual {
			return &stock.InsufficientStockError{ProductID: p.ID, Current: p.StockActual, Requested: input.Cantidad}
		}
		rec = Record{
			IDProducto: input.IDProducto,
			Producto:   p.Nombre,
			Cantidad:   input.Cantidad,
			Motivo:     input.Motivo,
			IDUsuario:  input.IDUsuario,
			Fecha:      s.now(),
		}
		id, err := tx.InsertRecord(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id
		_, err = tx.ApplyStock(ctx, input.IDProducto, -input.Cantidad)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	s.record(ctx, "merma:registrar", rec.ID, map[string]any{
		"id_producto": input.IDProducto, "cantidad": input.Cantidad,
	})
	return rec, nil
}

// Delete reverses a shrinkage: stock is restored unconditionally and the
// record removed. No papelera snapshot is written, a merma is its own ledger
// entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var restored float64
	var productID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetRecordForUpdate(ctx, id)
		if err != nil {
			return err
		}
		productID = rec.IDProducto
		restored = rec.Cantidad
		if _, err := tx.ApplyStockAny(ctx, rec.IDProducto, rec.Cantidad); err != nil {
			return err
		}
		return tx.DeleteRecord(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "merma:revertir", id, map[string]any{
		"id_producto": productID, "cantidad_restaurada": restored,
	})
	return nil
}

// Transform moves quantity from the origin product into a destination product
// by name, creating the destination when allowed. Both stock movements commit
// together.
func (s *Service) Transform(ctx context.Context, input TransformInput) (TransformResult, error) {
	if input.IDProductoOrigen <= 0 {
		return TransformResult{}, fmt.Errorf("id_producto_origen es obligatorio: %w", httpx.ErrValidation)
	}
	if input.NombreDestino == "" {
		return TransformResult{}, fmt.Errorf("nombre_destino es obligatorio: %w", httpx.ErrValidation)
	}
	if input.Cantidad <= 0 {
		return TransformResult{}, fmt.Errorf("cantidad debe ser positiva: %w", httpx.ErrValidation)
	}

	var result TransformResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		origin, err := tx.GetProductForUpdate(ctx, input.IDProductoOrigen)
		if err != nil {
			return err
		}
		if input.Cantidad > origin.StockActual {
			return &stock.InsufficientStockError{ProductID: origin.ID, Current: origin.StockActual, Requested: input.Cantidad}
		}
		if SameName(origin.Nombre, input.NombreDestino) {
			return ErrSameProduct
		}

		res, err := s.moveToDestination(ctx, tx, origin, input.NombreDestino, input.Cantidad, input.CrearDestino)
		if err != nil {
			return err
		}
		newOrigin, err := tx.ApplyStock(ctx, origin.ID, -input.Cantidad)
		if err != nil {
			return err
		}
		res.StockOrigen = newOrigin
		result = res
		return nil
	})
	if err != nil {
		return TransformResult{}, err
	}
	s.record(ctx, "merma:transformar", input.IDProductoOrigen, map[string]any{
		"destino": input.NombreDestino, "cantidad": input.Cantidad, "destino_creado": result.DestinoCreado,
	})
	return result, nil
}

// moveToDestination adds quantity to the product named destino, cloning the
// origin when the destination does not exist and creation is allowed. A
// transformed product never auto-transforms again: its change flags are
// cleared on creation.
func (s *Service) moveToDestination(ctx context.Context, tx TxRepository, origin catalog.Product, destino string, qty float64, create bool) (TransformResult, error) {
	dest, found, err := tx.FindActiveProductByName(ctx, destino)
	if err != nil {
		return TransformResult{}, err
	}
	if found {
		if dest.ID == origin.ID {
			return TransformResult{}, ErrSameProduct
		}
		newDest, err := tx.ApplyStock(ctx, dest.ID, qty)
		if err != nil {
			return TransformResult{}, err
		}
		return TransformResult{
			IDProductoOrigen:  origin.ID,
			IDProductoDestino: dest.ID,
			Cantidad:          qty,
			StockDestino:      newDest,
		}, nil
	}
	if !create {
		return TransformResult{}, ErrDestinationMissing
	}

	clone := catalog.Product{
		Nombre:        destino,
		IDCategoria:   origin.IDCategoria,
		IDUnidad:      origin.IDUnidad,
		PrecioVenta:   origin.PrecioVenta,
		PrecioCompra:  origin.PrecioCompra,
		StockActual:   qty,
		StockMinimo:   origin.StockMinimo,
		StockMaximo:   origin.StockMaximo,
		FechaCreacion: s.now(),
	}
	destID, err := tx.CreateProduct(ctx, clone)
	if err != nil {
		return TransformResult{}, err
	}
	return TransformResult{
		IDProductoOrigen:  origin.ID,
		IDProductoDestino: destID,
		DestinoCreado:     true,
		Cantidad:          qty,
		StockDestino:      qty,
	}, nil
}

// ProcessChanges runs the automatic pass: every active flagged product whose
// age reached tiempo_cambio and still has stock gets a bounded random
// quantity spoiled, transformed, or both. The whole pass is one transaction.
func (s *Service) ProcessChanges(ctx context.Context) (BatchResult, error) {
	now := s.now()
	result := BatchResult{Mermas: []BatchShrinkage{}, Transformaciones: []BatchTransformation{}}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		products, err := tx.ListEligibleForUpdate(ctx, now)
		if err != nil {
			return err
		}
		for _, p := range products {
			qty := s.pickQuantity(p.StockActual)
			if qty == 0 {
				continue
			}
			elapsed := int(now.Sub(p.FechaCreacion).Hours() / 24)
			available := p.StockActual
			touched := false

			if p.CambiaEstado {
				motivo := fmt.Sprintf("Cambio de estado automático tras %d días", elapsed)
				rec := Record{
					IDProducto: p.ID,
					Cantidad:   float64(qty),
					Motivo:     motivo,
					Fecha:      now,
					Automatica: true,
				}
				if _, err := tx.InsertRecord(ctx, rec); err != nil {
					return err
				}
				newStock, err := tx.ApplyStock(ctx, p.ID, -float64(qty))
				if err != nil {
					return err
				}
				available = newStock
				touched = true
				result.Mermas = append(result.Mermas, BatchShrinkage{
					IDProducto: p.ID, Producto: p.Nombre, Cantidad: float64(qty), Motivo: motivo,
				})
			}

			if p.CambiaApariencia {
				// When both flags fire, the spoilage above may have left less
				// than the picked quantity; the transfer is capped so stock
				// never goes below zero.
				transferQty := float64(qty)
				if transferQty > available {
					transferQty = math.Floor(available)
				}
				if transferQty >= 1 {
					destino := DeriveTransformedName(p.Nombre)
					res, err := s.moveToDestination(ctx, tx, p, destino, transferQty, true)
					if err != nil {
						return err
					}
					if _, err := tx.ApplyStock(ctx, p.ID, -transferQty); err != nil {
						return err
					}
					touched = true
					result.Transformaciones = append(result.Transformaciones, BatchTransformation{
						IDProductoOrigen:  p.ID,
						Origen:            p.Nombre,
						IDProductoDestino: res.IDProductoDestino,
						Destino:           destino,
						Cantidad:          transferQty,
						DestinoCreado:     res.DestinoCreado,
					})
				}
			}

			if touched {
				result.Procesados++
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	s.logger.Info("automatic shrinkage pass completed",
		"procesados", result.Procesados,
		"mermas", len(result.Mermas),
		"transformaciones", len(result.Transformaciones))
	s.record(ctx, "merma:procesar_cambios", 0, map[string]any{
		"procesados":       result.Procesados,
		"mermas":           len(result.Mermas),
		"transformaciones": len(result.Transformaciones),
	})
	return result, nil
}

// pickQuantity draws the affected quantity for one product: a positive
// integer at most min(10, floor(stock)), with a floor of min(3, upper). Zero
// means skip.
func (s *Service) pickQuantity(stockActual float64) int {
	upper := int(math.Min(autoUpperBound, math.Floor(stockActual)))
	if upper <= 0 {
		return 0
	}
	lower := autoLowerBound
	if lower > upper {
		lower = upper
	}
	if upper == lower {
		return lower
	}
	return lower + s.randInt(upper-lower+1)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "mermas",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
