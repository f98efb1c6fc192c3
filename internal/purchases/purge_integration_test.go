//go:build integration

package purchases

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/testdb"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

func TestPurgeArchivedPurchaseRemovesLines(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var provID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO proveedores (nombre) VALUES ('Distribuidora Sur') RETURNING id`).Scan(&provID))
	var prodID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO productos (nombre, stock_actual) VALUES ('Queso Fresco', 0) RETURNING id`).Scan(&prodID))

	svc := NewService(NewRepository(pool), nil, logger)
	purchaseID, err := svc.Open(ctx, OpenInput{IDProveedor: provID, IDUsuario: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, AddLineInput{IDCompra: purchaseID, IDProducto: prodID, Cantidad: 6, PrecioUnitario: 2.5})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, purchaseID))

	trashSvc := trash.NewService(trash.NewRepository(pool), nil)
	items, err := trashSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, trash.TableCompras, items[0].Tabla)

	// Purging the header takes its soft-deleted lines with it.
	require.NoError(t, trashSvc.Purge(ctx, items[0].ID))

	var headers, lines int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM compras WHERE id = $1`, purchaseID).Scan(&headers))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM detalle_compras WHERE id_compra = $1`, purchaseID).Scan(&lines))
	require.Zero(t, headers)
	require.Zero(t, lines)

	items, err = trashSvc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}
