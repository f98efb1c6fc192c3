package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// TxRepository exposes the operations available inside a purchase transaction.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	InsertLine(ctx context.Context, line PurchaseLine) (int64, error)
	GetLineForUpdate(ctx context.Context, lineID int64) (PurchaseLine, error)
	ListLines(ctx context.Context, purchaseID int64, includeDeleted bool) ([]PurchaseLine, error)
	SoftDeleteLine(ctx context.Context, lineID int64, userID int64) error
	SoftDeletePurchase(ctx context.Context, id int64, userID int64) error
	CountActiveLines(ctx context.Context, purchaseID int64) (int, error)
	RecomputeTotal(ctx context.Context, purchaseID int64) (float64, error)
	ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error)
	ApplyStockChecked(ctx context.Context, productID int64, qty float64) (float64, error)
	ArchiveTrash(ctx context.Context, entry trash.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, limit, offset int) ([]Purchase, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase flows.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs purchases service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Get returns a purchase with its active lines.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase headers.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Purchase, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Open creates a header with zero total; lines arrive in later calls.
func (s *Service) Open(ctx context.Context, input OpenInput) (int64, error) {
	if input.IDProveedor == 0 {
		return 0, fmt.Errorf("id_proveedor es obligatorio: %w", httpx.ErrValidation)
	}
	if input.IDUsuario == 0 {
		return 0, fmt.Errorf("id_usuario es obligatorio: %w", httpx.ErrValidation)
	}
	fecha := time.Now().UTC()
	if input.Fecha != nil {
		fecha = *input.Fecha
	}

	var purchaseID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPurchase(ctx, Purchase{
			IDProveedor:   input.IDProveedor,
			IDUsuario:     input.IDUsuario,
			Fecha:         fecha,
			Observaciones: input.Observaciones,
		})
		if err != nil {
			return err
		}
		purchaseID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, "compra:abrir", purchaseID, map[string]any{"id_proveedor": input.IDProveedor})
	return purchaseID, nil
}

// AddLine inserts a line, increments the product's stock and recomputes the
// header total, all in one transaction.
func (s *Service) AddLine(ctx context.Context, input AddLineInput) (AddLineResult, error) {
	if input.IDCompra <= 0 {
		return AddLineResult{}, fmt.Errorf("id_compra es obligatorio: %w", httpx.ErrValidation)
	}
	if input.IDProducto <= 0 {
		return AddLineResult{}, fmt.Errorf("id_producto es obligatorio: %w", httpx.ErrValidation)
	}
	if input.Cantidad <= 0 {
		return AddLineResult{}, fmt.Errorf("cantidad debe ser positiva: %w", httpx.ErrValidation)
	}
	if input.PrecioUnitario <= 0 {
		return AddLineResult{}, fmt.Errorf("precio_unitario debe ser positivo: %w", httpx.ErrValidation)
	}

	var result AddLineResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, input.IDCompra); err != nil {
			return err
		}
		line := PurchaseLine{
			IDCompra:       input.IDCompra,
			IDProducto:     input.IDProducto,
			Cantidad:       input.Cantidad,
			PrecioUnitario: input.PrecioUnitario,
			TotalLinea:     input.Cantidad * input.PrecioUnitario,
		}
		lineID, err := tx.InsertLine(ctx, line)
		if err != nil {
			return err
		}
		line.ID = lineID
		if _, err := tx.ApplyStock(ctx, input.IDProducto, input.Cantidad); err != nil {
			return err
		}
		total, err := tx.RecomputeTotal(ctx, input.IDCompra)
		if err != nil {
			return err
		}
		result = AddLineResult{Line: line, Total: total}
		return nil
	})
	if err != nil {
		return AddLineResult{}, err
	}
	s.record(ctx, "compra:agregar_detalle", input.IDCompra, map[string]any{
		"id_producto": input.IDProducto, "cantidad": input.Cantidad,
	})
	return result, nil
}

// RemoveLine reverses the line's stock contribution, soft-deletes it,
// archives its snapshot in the papelera and recomputes the header total. When
// the last active line goes, the header is soft-deleted too and a header-level
// snapshot lands in the papelera as well.
func (s *Service) RemoveLine(ctx context.Context, lineID int64) error {
	actor := shared.ActorFromContext(ctx)
	var cascaded bool
	var purchaseID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		line, err := tx.GetLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		purchaseID = line.IDCompra

		if _, err := tx.ApplyStockChecked(ctx, line.IDProducto, line.Cantidad); err != nil {
			return err
		}
		if err := tx.SoftDeleteLine(ctx, lineID, actor); err != nil {
			return err
		}
		snapshot, err := trash.MarshalSnapshot(trash.PurchaseLineSnapshot{
			ID:             line.ID,
			IDCompra:       line.IDCompra,
			IDProducto:     line.IDProducto,
			Producto:       line.Producto,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
		})
		if err != nil {
			return err
		}
		if err := tx.ArchiveTrash(ctx, trash.Entry{
			Tabla:     trash.TableDetalleCompras,
			RecordID:  line.ID,
			Contenido: snapshot,
			UserID:    actor,
		}); err != nil {
			return err
		}
		if _, err := tx.RecomputeTotal(ctx, line.IDCompra); err != nil {
			return err
		}

		remaining, err := tx.CountActiveLines(ctx, line.IDCompra)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		cascaded = true
		return s.archiveAndSoftDelete(ctx, tx, line.IDCompra, actor)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "compra:eliminar_detalle", lineID, map[string]any{
		"id_compra": purchaseID, "cascada": cascaded,
	})
	return nil
}

// Remove soft-deletes the whole purchase: every still-active line has its
// stock contribution reversed exactly once, then one header snapshot is
// archived. Lines already soft-deleted are left untouched so their stock is
// never reversed twice.
func (s *Service) Remove(ctx context.Context, purchaseID int64) error {
	actor := shared.ActorFromContext(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, purchaseID); err != nil {
			return err
		}
		lines, err := tx.ListLines(ctx, purchaseID, true)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.IsDeleted {
				continue
			}
			if _, err := tx.ApplyStockChecked(ctx, line.IDProducto, line.Cantidad); err != nil {
				return err
			}
			if err := tx.SoftDeleteLine(ctx, line.ID, actor); err != nil {
				return err
			}
		}
		if _, err := tx.RecomputeTotal(ctx, purchaseID); err != nil {
			return err
		}
		return s.archiveAndSoftDelete(ctx, tx, purchaseID, actor)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "compra:eliminar", purchaseID, nil)
	return nil
}

// archiveAndSoftDelete writes the header-level papelera snapshot embedding
// every line regardless of soft-delete state, then soft-deletes the header.
func (s *Service) archiveAndSoftDelete(ctx context.Context, tx TxRepository, purchaseID int64, actor int64) error {
	header, err := tx.GetPurchaseForUpdate(ctx, purchaseID)
	if err != nil {
		return err
	}
	lines, err := tx.ListLines(ctx, purchaseID, true)
	if err != nil {
		return err
	}

	snapshotLines := make([]trash.PurchaseLineSnapshot, 0, len(lines))
	for _, line := range lines {
		snapshotLines = append(snapshotLines, trash.PurchaseLineSnapshot{
			ID:             line.ID,
			IDCompra:       line.IDCompra,
			IDProducto:     line.IDProducto,
			Producto:       line.Producto,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
			IsDeleted:      line.IsDeleted,
		})
	}
	snapshot, err := trash.MarshalSnapshot(trash.PurchaseSnapshot{
		ID:            header.ID,
		IDProveedor:   header.IDProveedor,
		Proveedor:     header.Proveedor,
		IDUsuario:     header.IDUsuario,
		Fecha:         header.Fecha,
		Observaciones: header.Observaciones,
		Total:         header.Total,
		Lineas:        snapshotLines,
	})
	if err != nil {
		return err
	}

	if err := tx.ArchiveTrash(ctx, trash.Entry{
		Tabla:     trash.TableCompras,
		RecordID:  purchaseID,
		Contenido: snapshot,
		UserID:    actor,
	}); err != nil {
		return err
	}
	return tx.SoftDeletePurchase(ctx, purchaseID, actor)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "compras",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
