// Package stock holds the transaction-scoped primitives that mutate a
// product's on-hand quantity. Every stock change in the system goes through
// this package, always inside a transaction owned by the calling workflow, so
// stock_actual stays equal to the sum of its committed deltas.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// ErrProductNotFound indicates the product row is missing or soft-deleted.
var ErrProductNotFound = fmt.Errorf("producto no existe: %w", httpx.ErrNotFound)

// InsufficientStockError carries current and requested quantities so callers
// can surface both to the client.
type InsufficientStockError struct {
	ProductID int64
	Current   float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %d: disponible %.2f, solicitado %.2f", e.ProductID, e.Current, e.Requested)
}

// Is lets errors.Is match the httpx sentinel for status mapping.
func (e *InsufficientStockError) Is(target error) bool {
	return target == httpx.ErrInsufficient
}

// Apply adjusts stock_actual by delta as a single atomic update and returns
// the new quantity. Negative results are not rejected here; workflows that
// tolerate them (sales) log a warning, the rest use ApplyChecked first.
func Apply(ctx context.Context, tx pgx.Tx, productID int64, delta float64) (float64, error) {
	var newStock float64
	err := tx.QueryRow(ctx,
		`UPDATE productos SET stock_actual = stock_actual + $2 WHERE id = $1 AND is_deleted = FALSE RETURNING stock_actual`,
		productID, delta,
	).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock: apply delta: %w", err)
	}
	return newStock, nil
}

// ApplyChecked decrements stock by qty only when enough is available. The row
// is locked before the check so two concurrent decrements cannot both read the
// same pre-decrement quantity.
func ApplyChecked(ctx context.Context, tx pgx.Tx, productID int64, qty float64) (float64, error) {
	var current float64
	err := tx.QueryRow(ctx,
		`SELECT stock_actual FROM productos WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`,
		productID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock: lock row: %w", err)
	}
	if current < qty {
		return 0, &InsufficientStockError{ProductID: productID, Current: current, Requested: qty}
	}
	return Apply(ctx, tx, productID, -qty)
}

// ApplyAny adjusts stock regardless of the row's soft-delete state. Restore
// paths replay stored deltas unconditionally, even onto a product that is
// itself sitting in the papelera.
func ApplyAny(ctx context.Context, tx pgx.Tx, productID int64, delta float64) (float64, error) {
	var newStock float64
	err := tx.QueryRow(ctx,
		`UPDATE productos SET stock_actual = stock_actual + $2 WHERE id = $1 RETURNING stock_actual`,
		productID, delta,
	).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock: apply delta: %w", err)
	}
	return newStock, nil
}
