package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/cashbox"
	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/stock"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get returns a sale header with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	err := r.pool.QueryRow(ctx,
		`SELECT id, id_cliente, id_usuario, id_caja, fecha, subtotal, impuesto, total
		FROM ventas WHERE id = $1`, id,
	).Scan(&sale.ID, &sale.IDCliente, &sale.IDUsuario, &sale.IDCaja, &sale.Fecha,
		&sale.Subtotal, &sale.Impuesto, &sale.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return Sale{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, id_venta, id_producto, cantidad, precio_unitario, descuento, total_linea
		FROM detalle_ventas WHERE id_venta = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.IDVenta, &line.IDProducto, &line.Cantidad,
			&line.PrecioUnitario, &line.Descuento, &line.TotalLinea); err != nil {
			return Sale{}, err
		}
		sale.Lineas = append(sale.Lineas, line)
	}
	return sale, rows.Err()
}

func (t *txRepository) SessionExists(ctx context.Context, id int64) (bool, error) {
	return cashbox.SessionExists(ctx, t.tx, id)
}

func (t *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO ventas (id_cliente, id_usuario, id_caja, fecha, subtotal, impuesto, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		sale.IDCliente, sale.IDUsuario, sale.IDCaja, sale.Fecha,
		sale.Subtotal, sale.Impuesto, sale.Total,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertSaleLine(ctx context.Context, line SaleLine) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO detalle_ventas (id_venta, id_producto, cantidad, precio_unitario, descuento, total_linea)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		line.IDVenta, line.IDProducto, line.Cantidad, line.PrecioUnitario, line.Descuento, line.TotalLinea)
	return err
}

func (t *txRepository) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	return stock.Apply(ctx, t.tx, productID, delta)
}

func (t *txRepository) AddSessionTotal(ctx context.Context, sessionID int64, amount float64) error {
	return cashbox.AddSaleTotal(ctx, t.tx, sessionID, amount)
}

func (t *txRepository) InsertMovement(ctx context.Context, m cashbox.Movement) error {
	return cashbox.InsertMovement(ctx, t.tx, m)
}
