//go:build integration

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/testdb"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

func TestPurgeProductWithHistory(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()

	svc := NewService(NewRepository(pool), nil)
	p, err := svc.Create(ctx, Product{Nombre: "Yogur Natural", StockActual: 5, PrecioVenta: 3})
	require.NoError(t, err)

	// Sale and merma history referencing the product.
	var ventaID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO ventas (id_usuario, subtotal, total) VALUES (1, 3, 3) RETURNING id`).Scan(&ventaID))
	_, err = pool.Exec(ctx,
		`INSERT INTO detalle_ventas (id_venta, id_producto, cantidad, precio_unitario, total_linea)
		VALUES ($1, $2, 1, 3, 3)`, ventaID, p.ID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO mermas (id_producto, cantidad, motivo) VALUES ($1, 1, 'dañado')`, p.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))

	trashSvc := trash.NewService(trash.NewRepository(pool), nil)
	items, err := trashSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, trashSvc.Purge(ctx, items[0].ID))

	var productos, detalles, mermas, ventas int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM productos WHERE id = $1`, p.ID).Scan(&productos))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM detalle_ventas WHERE id_producto = $1`, p.ID).Scan(&detalles))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM mermas WHERE id_producto = $1`, p.ID).Scan(&mermas))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM ventas WHERE id = $1`, ventaID).Scan(&ventas))
	require.Zero(t, productos)
	require.Zero(t, detalles)
	require.Zero(t, mermas)
	require.Equal(t, 1, ventas)
}
