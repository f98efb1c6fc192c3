package purchases

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/stock"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// Repository persists purchases in PostgreSQL.
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

// Get returns an active purchase with its active lines.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, COALESCE(c.id_proveedor, 0), COALESCE(p.nombre, ''), c.id_usuario, c.fecha, c.observaciones, c.total
		FROM compras c LEFT JOIN proveedores p ON p.id = c.id_proveedor
		WHERE c.id = $1 AND c.is_deleted = FALSE`, id,
	).Scan(&p.ID, &p.IDProveedor, &p.Proveedor, &p.IDUsuario, &p.Fecha, &p.Observaciones, &p.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	if err != nil {
		return Purchase{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.id_compra, d.id_producto, COALESCE(pr.nombre, ''), d.cantidad, d.precio_unitario, d.total_linea, d.is_deleted
		FROM detalle_compras d LEFT JOIN productos pr ON pr.id = d.id_producto
		WHERE d.id_compra = $1 AND d.is_deleted = FALSE ORDER BY d.id ASC`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line PurchaseLine
		if err := rows.Scan(&line.ID, &line.IDCompra, &line.IDProducto, &line.Producto,
			&line.Cantidad, &line.PrecioUnitario, &line.TotalLinea, &line.IsDeleted); err != nil {
			return Purchase{}, err
		}
		p.Lineas = append(p.Lineas, line)
	}
	return p, rows.Err()
}

// List returns active purchase headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Purchase, int, error) {
	if limit <= 0 {
		limit = 100
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM compras WHERE is_deleted = FALSE`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, COALESCE(c.id_proveedor, 0), COALESCE(p.nombre, ''), c.id_usuario, c.fecha, c.observaciones, c.total
		FROM compras c LEFT JOIN proveedores p ON p.id = c.id_proveedor
		WHERE c.is_deleted = FALSE ORDER BY c.fecha DESC, c.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.IDProveedor, &p.Proveedor, &p.IDUsuario, &p.Fecha, &p.Observaciones, &p.Total); err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, rows.Err()
}

func (t *txRepository) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO compras (id_proveedor, id_usuario, fecha, observaciones, total)
		VALUES (NULLIF($1, 0), $2, $3, $4, 0) RETURNING id`,
		p.IDProveedor, p.IDUsuario, p.Fecha, p.Observaciones,
	).Scan(&id)
	return id, err
}

func (t *txRepository) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := t.tx.QueryRow(ctx,
		`SELECT id, COALESCE(id_proveedor, 0), id_usuario, fecha, observaciones, total
		FROM compras WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, id,
	).Scan(&p.ID, &p.IDProveedor, &p.IDUsuario, &p.Fecha, &p.Observaciones, &p.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, err
}

func (t *txRepository) InsertLine(ctx context.Context, line PurchaseLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO detalle_compras (id_compra, id_producto, cantidad, precio_unitario, total_linea)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		line.IDCompra, line.IDProducto, line.Cantidad, line.PrecioUnitario, line.TotalLinea,
	).Scan(&id)
	return id, err
}

func (t *txRepository) GetLineForUpdate(ctx context.Context, lineID int64) (PurchaseLine, error) {
	var line PurchaseLine
	err := t.tx.QueryRow(ctx,
		`SELECT id, id_compra, id_producto, cantidad, precio_unitario, total_linea, is_deleted
		FROM detalle_compras WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, lineID,
	).Scan(&line.ID, &line.IDCompra, &line.IDProducto, &line.Cantidad,
		&line.PrecioUnitario, &line.TotalLinea, &line.IsDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseLine{}, ErrLineNotFound
	}
	return line, err
}

func (t *txRepository) ListLines(ctx context.Context, purchaseID int64, includeDeleted bool) ([]PurchaseLine, error) {
	query := `SELECT d.id, d.id_compra, d.id_producto, COALESCE(pr.nombre, ''), d.cantidad, d.precio_unitario, d.total_linea, d.is_deleted
	FROM detalle_compras d LEFT JOIN productos pr ON pr.id = d.id_producto
	WHERE d.id_compra = $1`
	if !includeDeleted {
		query += ` AND d.is_deleted = FALSE`
	}
	query += ` ORDER BY d.id ASC`

	rows, err := t.tx.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []PurchaseLine{}
	for rows.Next() {
		var line PurchaseLine
		if err := rows.Scan(&line.ID, &line.IDCompra, &line.IDProducto, &line.Producto,
			&line.Cantidad, &line.PrecioUnitario, &line.TotalLinea, &line.IsDeleted); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (t *txRepository) SoftDeleteLine(ctx context.Context, lineID int64, userID int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE detalle_compras SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2
		WHERE id = $1 AND is_deleted = FALSE`, lineID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (t *txRepository) SoftDeletePurchase(ctx context.Context, id int64, userID int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE compras SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2
		WHERE id = $1 AND is_deleted = FALSE`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (t *txRepository) CountActiveLines(ctx context.Context, purchaseID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM detalle_compras WHERE id_compra = $1 AND is_deleted = FALSE`,
		purchaseID).Scan(&count)
	return count, err
}

func (t *txRepository) RecomputeTotal(ctx context.Context, purchaseID int64) (float64, error) {
	var total float64
	err := t.tx.QueryRow(ctx,
		`UPDATE compras SET total = COALESCE(
			(SELECT SUM(total_linea) FROM detalle_compras WHERE id_compra = $1 AND is_deleted = FALSE), 0)
		WHERE id = $1 RETURNING total`, purchaseID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrPurchaseNotFound
	}
	return total, err
}

func (t *txRepository) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	return stock.Apply(ctx, t.tx, productID, delta)
}

func (t *txRepository) ApplyStockChecked(ctx context.Context, productID int64, qty float64) (float64, error) {
	return stock.ApplyChecked(ctx, t.tx, productID, qty)
}

func (t *txRepository) ArchiveTrash(ctx context.Context, entry trash.Entry) error {
	return trash.Insert(ctx, t.tx, entry)
}
