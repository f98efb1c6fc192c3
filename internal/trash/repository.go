package trash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/stock"
)

// Insert writes an envelope inside the caller's transaction. Delete paths use
// this so snapshot and soft-delete commit or roll back together.
func Insert(ctx context.Context, tx pgx.Tx, entry Entry) error {
	if entry.Fecha.IsZero() {
		entry.Fecha = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO papelera (tabla, id_registro, contenido, id_usuario, fecha)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Tabla, entry.RecordID, entry.Contenido, entry.UserID, entry.Fecha)
	if err != nil {
		return fmt.Errorf("trash: insert entry: %w", err)
	}
	return nil
}

// Repository persists papelera envelopes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations a restorer may need inside the
// restore/purge transaction.
type TxRepository interface {
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, table Table, recordID int64) error
	HardDelete(ctx context.Context, table Table, recordID int64) error
	ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error)
	RecomputePurchaseTotal(ctx context.Context, purchaseID int64) error
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

// ListEntries returns all envelopes, newest first.
func (r *Repository) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tabla, id_registro, contenido, id_usuario, fecha
		FROM papelera ORDER BY fecha DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Tabla, &e.RecordID, &e.Contenido, &e.UserID, &e.Fecha); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := t.tx.QueryRow(ctx,
		`SELECT id, tabla, id_registro, contenido, id_usuario, fecha
		FROM papelera WHERE id = $1 FOR UPDATE`, id,
	).Scan(&e.ID, &e.Tabla, &e.RecordID, &e.Contenido, &e.UserID, &e.Fecha)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

func (t *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM papelera WHERE id = $1`, id)
	return err
}

// tableName maps the closed Table enum onto SQL identifiers. The enum is the
// only source of table names reaching the query text.
func tableName(table Table) (string, error) {
	switch table {
	case TableCategorias, TableProveedores, TableProductos, TableClientes, TableCompras, TableDetalleCompras:
		return string(table), nil
	default:
		return "", ErrUnsupportedTable
	}
}

func (t *txRepository) Reactivate(ctx context.Context, table Table, recordID int64) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE `+name+` SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL WHERE id = $1`,
		recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registro original %d en %s no existe: %w", recordID, name, ErrEntryNotFound)
	}
	return nil
}

func (t *txRepository) HardDelete(ctx context.Context, table Table, recordID int64) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `DELETE FROM `+name+` WHERE id = $1`, recordID)
	return err
}

func (t *txRepository) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	return stock.ApplyAny(ctx, t.tx, productID, delta)
}

func (t *txRepository) RecomputePurchaseTotal(ctx context.Context, purchaseID int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE compras SET total = COALESCE(
			(SELECT SUM(total_linea) FROM detalle_compras WHERE id_compra = $1 AND is_deleted = FALSE), 0)
		WHERE id = $1`, purchaseID)
	return err
}
