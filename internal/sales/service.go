package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/cashbox"
	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
)

// TxRepository exposes the operations available inside the sale transaction.
type TxRepository interface {
	SessionExists(ctx context.Context, id int64) (bool, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleLine(ctx context.Context, line SaleLine) error
	ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error)
	AddSessionTotal(ctx context.Context, sessionID int64, amount float64) error
	InsertMovement(ctx context.Context, m cashbox.Movement) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates sale creation.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// Create commits the sale header, its lines, every stock decrement and the
// optional caja update as one transaction. Stock is allowed to go negative:
// the till stays available, the drift is logged.
func (s *Service) Create(ctx context.Context, input CreateInput) (Result, error) {
	if input.IDUsuario == 0 {
		return Result{}, fmt.Errorf("id_usuario es obligatorio: %w", httpx.ErrValidation)
	}
	if len(input.Lineas) == 0 {
		return Result{}, fmt.Errorf("la venta requiere al menos una línea: %w", httpx.ErrValidation)
	}
	for i, line := range input.Lineas {
		if line.IDProducto <= 0 {
			return Result{}, fmt.Errorf("línea %d: id_producto es obligatorio: %w", i+1, httpx.ErrValidation)
		}
		if line.Cantidad <= 0 {
			return Result{}, fmt.Errorf("línea %d: cantidad debe ser positiva: %w", i+1, httpx.ErrValidation)
		}
		if line.PrecioUnitario <= 0 {
			return Result{}, fmt.Errorf("línea %d: precio_unitario debe ser positivo: %w", i+1, httpx.ErrValidation)
		}
		if line.Descuento < 0 {
			return Result{}, fmt.Errorf("línea %d: descuento no puede ser negativo: %w", i+1, httpx.ErrValidation)
		}
	}

	subtotal := 0.0
	lines := make([]SaleLine, 0, len(input.Lineas))
	for _, line := range input.Lineas {
		lineTotal := line.Cantidad*line.PrecioUnitario - line.Descuento
		subtotal += lineTotal
		lines = append(lines, SaleLine{
			IDProducto:     line.IDProducto,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
			Descuento:      line.Descuento,
			TotalLinea:     lineTotal,
		})
	}
	total := subtotal + input.Impuesto
	if math.Abs(subtotal-input.Subtotal) > totalTolerance || math.Abs(total-input.Total) > totalTolerance {
		s.logger.Warn("declared sale totals disagree with computed totals",
			"declared_subtotal", input.Subtotal, "computed_subtotal", subtotal,
			"declared_total", input.Total, "computed_total", total)
	}

	fecha := time.Now().UTC()
	if input.Fecha != nil {
		fecha = *input.Fecha
	}

	var saleID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.IDCaja != nil {
			exists, err := tx.SessionExists(ctx, *input.IDCaja)
			if err != nil {
				return err
			}
			if !exists {
				return ErrSessionNotFound
			}
		}

		id, err := tx.InsertSale(ctx, Sale{
			IDCliente: input.IDCliente,
			IDUsuario: input.IDUsuario,
			IDCaja:    input.IDCaja,
			Fecha:     fecha,
			Subtotal:  subtotal,
			Impuesto:  input.Impuesto,
			Total:     total,
		})
		if err != nil {
			return err
		}
		saleID = id

		for _, line := range lines {
			line.IDVenta = saleID
			if err := tx.InsertSaleLine(ctx, line); err != nil {
				return err
			}
			newStock, err := tx.ApplyStock(ctx, line.IDProducto, -line.Cantidad)
			if err != nil {
				return err
			}
			if newStock < 0 {
				s.logger.Warn("sale drove stock negative",
					"venta", saleID, "producto", line.IDProducto, "stock_actual", newStock)
			}
		}

		if input.IDCaja != nil {
			if err := tx.AddSessionTotal(ctx, *input.IDCaja, total); err != nil {
				return err
			}
			if err := tx.InsertMovement(ctx, cashbox.Movement{
				IDCaja:      *input.IDCaja,
				Tipo:        cashbox.TipoIngreso,
				Monto:       total,
				IDVenta:     &saleID,
				Descripcion: fmt.Sprintf("Venta #%d", saleID),
				Fecha:       fecha,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.IDUsuario,
			Action:   "venta:crear",
			Entity:   "ventas",
			EntityID: fmt.Sprintf("%d", saleID),
			Meta: map[string]any{
				"total":    total,
				"lineas":   len(lines),
				"sin_caja": input.IDCaja == nil,
			},
		})
	}
	return Result{ID: saleID, SinCaja: input.IDCaja == nil}, nil
}
