package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// id_categoria is NULL for uncategorized products and when the categoria was
// purged; the domain sees that as 0.
const productColumns = `id, nombre, COALESCE(id_categoria, 0), id_unidad, precio_venta, precio_compra,
stock_actual, stock_minimo, stock_maximo, cambia_estado, cambia_apariencia, tiempo_cambio,
fecha_creacion, is_deleted, deleted_at, deleted_by`

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Nombre, &p.IDCategoria, &p.IDUnidad, &p.PrecioVenta, &p.PrecioCompra,
		&p.StockActual, &p.StockMinimo, &p.StockMaximo, &p.CambiaEstado, &p.CambiaApariencia,
		&p.TiempoCambio, &p.FechaCreacion, &p.IsDeleted, &p.DeletedAt, &p.DeletedBy)
	return p, err
}

// List returns active products matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE is_deleted = FALSE`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND nombre ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		argCount++
		where += ` AND id_categoria = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.LowStock {
		where += ` AND stock_actual <= stock_minimo`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM productos`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	limitArg := argCount
	argCount++
	offsetArg := argCount
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM productos`+where+
			` ORDER BY nombre ASC LIMIT $`+strconv.Itoa(limitArg)+` OFFSET $`+strconv.Itoa(offsetArg), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Get returns an active product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM productos WHERE id = $1 AND is_deleted = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Create inserts a product and returns it with the generated id.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO productos (nombre, id_categoria, id_unidad, precio_venta, precio_compra,
		stock_actual, stock_minimo, stock_maximo, cambia_estado, cambia_apariencia, tiempo_cambio, fecha_creacion)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		p.Nombre, p.IDCategoria, p.IDUnidad, p.PrecioVenta, p.PrecioCompra,
		p.StockActual, p.StockMinimo, p.StockMaximo, p.CambiaEstado, p.CambiaApariencia,
		p.TiempoCambio, p.FechaCreacion,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateName
		}
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	return p, nil
}

// Update rewrites the catalog fields of a product. Stock is deliberately not
// updatable here; only the ledger primitives touch it.
func (r *Repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE productos SET nombre = $2, id_categoria = NULLIF($3, 0), id_unidad = $4, precio_venta = $5,
		precio_compra = $6, stock_minimo = $7, stock_maximo = $8, cambia_estado = $9,
		cambia_apariencia = $10, tiempo_cambio = $11
		WHERE id = $1 AND is_deleted = FALSE`,
		id, p.Nombre, p.IDCategoria, p.IDUnidad, p.PrecioVenta, p.PrecioCompra,
		p.StockMinimo, p.StockMaximo, p.CambiaEstado, p.CambiaApariencia, p.TiempoCambio)
	if err != nil {
		return fmt.Errorf("catalog: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the product deleted and archives a full snapshot into the
// papelera, both in one transaction.
func (r *Repository) SoftDelete(ctx context.Context, id int64, userID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx,
			`SELECT `+productColumns+` FROM productos WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE productos SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2 WHERE id = $1`,
			id, userID); err != nil {
			return err
		}

		snapshot, err := trash.MarshalSnapshot(trash.ProductSnapshot{
			ID: p.ID, Nombre: p.Nombre, IDCategoria: p.IDCategoria, IDUnidad: p.IDUnidad,
			PrecioVenta: p.PrecioVenta, PrecioCompra: p.PrecioCompra,
			StockActual: p.StockActual, StockMinimo: p.StockMinimo, StockMaximo: p.StockMaximo,
			CambiaEstado: p.CambiaEstado, CambiaApariencia: p.CambiaApariencia,
			TiempoCambio: p.TiempoCambio, FechaCreacion: p.FechaCreacion,
		})
		if err != nil {
			return err
		}
		return trash.Insert(ctx, tx, trash.Entry{
			Tabla: trash.TableProductos, RecordID: id, Contenido: snapshot, UserID: userID,
		})
	})
}
