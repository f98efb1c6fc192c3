package shrinkage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/stock"
)

const productColumns = `id, nombre, COALESCE(id_categoria, 0), id_unidad, precio_venta, precio_compra,
stock_actual, stock_minimo, stock_maximo, cambia_estado, cambia_apariencia, tiempo_cambio,
fecha_creacion, is_deleted, deleted_at, deleted_by`

// Repository persists mermas in PostgreSQL.
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

// ListRecords returns all mermas, newest first.
func (r *Repository) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.id_producto, COALESCE(p.nombre, ''), m.cantidad, m.motivo, m.id_usuario, m.fecha, m.automatica
		FROM mermas m LEFT JOIN productos p ON p.id = m.id_producto
		ORDER BY m.fecha DESC, m.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.IDProducto, &rec.Producto, &rec.Cantidad,
			&rec.Motivo, &rec.IDUsuario, &rec.Fecha, &rec.Automatica); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListLowStock returns active products at or below their minimum stock.
func (r *Repository) ListLowStock(ctx context.Context) ([]catalog.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM productos
		WHERE is_deleted = FALSE AND stock_minimo > 0 AND stock_actual <= stock_minimo
		ORDER BY nombre ASC`)
}

// ListChangeDue returns active flagged products whose automatic change
// deadline falls before the given instant.
func (r *Repository) ListChangeDue(ctx context.Context, deadline time.Time) ([]catalog.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM productos
		WHERE is_deleted = FALSE AND stock_actual > 0
		AND (cambia_estado = TRUE OR cambia_apariencia = TRUE)
		AND fecha_creacion + make_interval(days => tiempo_cambio) <= $1
		ORDER BY nombre ASC`, deadline)
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Nombre, &p.IDCategoria, &p.IDUnidad, &p.PrecioVenta, &p.PrecioCompra,
		&p.StockActual, &p.StockMinimo, &p.StockMaximo, &p.CambiaEstado, &p.CambiaApariencia,
		&p.TiempoCambio, &p.FechaCreacion, &p.IsDeleted, &p.DeletedAt, &p.DeletedBy)
	return p, err
}

func (t *txRepository) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM productos WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

// FindActiveProductByName matches case- and accent-insensitively, the same
// folding SameName applies. The translate call narrows candidates in SQL so
// "Platano Maduro" still hits a stored "Plátano Maduro"; SameName has the
// final word on each candidate.
func (t *txRepository) FindActiveProductByName(ctx context.Context, name string) (catalog.Product, bool, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+productColumns+` FROM productos
		WHERE is_deleted = FALSE
		AND LOWER(translate(nombre, 'áéíóúüñÁÉÍÓÚÜÑ', 'aeiouunAEIOUUN')) = $1`,
		foldName(name))
	if err != nil {
		return catalog.Product{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return catalog.Product{}, false, err
		}
		if SameName(p.Nombre, name) {
			return p, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return catalog.Product{}, false, err
	}
	return catalog.Product{}, false, nil
}

func (t *txRepository) CreateProduct(ctx context.Context, p catalog.Product) (int64, error) {
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = time.Now().UTC()
	}
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO productos (nombre, id_categoria, id_unidad, precio_venta, precio_compra,
		stock_actual, stock_minimo, stock_maximo, cambia_estado, cambia_apariencia, tiempo_cambio, fecha_creacion)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		p.Nombre, p.IDCategoria, p.IDUnidad, p.PrecioVenta, p.PrecioCompra,
		p.StockActual, p.StockMinimo, p.StockMaximo, p.CambiaEstado, p.CambiaApariencia,
		p.TiempoCambio, p.FechaCreacion,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	if rec.Fecha.IsZero() {
		rec.Fecha = time.Now().UTC()
	}
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO mermas (id_producto, cantidad, motivo, id_usuario, fecha, automatica)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		rec.IDProducto, rec.Cantidad, rec.Motivo, rec.IDUsuario, rec.Fecha, rec.Automatica,
	).Scan(&id)
	return id, err
}

func (t *txRepository) GetRecordForUpdate(ctx context.Context, id int64) (Record, error) {
	var rec Record
	err := t.tx.QueryRow(ctx,
		`SELECT id, id_producto, cantidad, motivo, id_usuario, fecha, automatica
		FROM mermas WHERE id = $1 FOR UPDATE`, id,
	).Scan(&rec.ID, &rec.IDProducto, &rec.Cantidad, &rec.Motivo, &rec.IDUsuario, &rec.Fecha, &rec.Automatica)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (t *txRepository) DeleteRecord(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM mermas WHERE id = $1`, id)
	return err
}

func (t *txRepository) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	return stock.Apply(ctx, t.tx, productID, delta)
}

func (t *txRepository) ApplyStockAny(ctx context.Context, productID int64, delta float64) (float64, error) {
	return stock.ApplyAny(ctx, t.tx, productID, delta)
}

func (t *txRepository) ListEligibleForUpdate(ctx context.Context, now time.Time) ([]catalog.Product, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+productColumns+` FROM productos
		WHERE is_deleted = FALSE AND stock_actual > 0
		AND (cambia_estado = TRUE OR cambia_apariencia = TRUE)
		AND fecha_creacion + make_interval(days => tiempo_cambio) <= $1
		ORDER BY id ASC FOR UPDATE`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
