package masterdata

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/platform/db"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

// Repository persists masterdata entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCategories returns active categories.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nombre, descripcion FROM categorias WHERE is_deleted = FALSE ORDER BY nombre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Descripcion); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categorias (nombre, descripcion) VALUES ($1, $2) RETURNING id`,
		c.Nombre, c.Descripcion).Scan(&c.ID)
	return c, err
}

// UpdateCategory rewrites a category.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, c Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categorias SET nombre = $2, descripcion = $3 WHERE id = $1 AND is_deleted = FALSE`,
		id, c.Nombre, c.Descripcion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSuppliers returns active suppliers.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nombre, contacto, telefono, direccion FROM proveedores WHERE is_deleted = FALSE ORDER BY nombre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Nombre, &s.Contacto, &s.Telefono, &s.Direccion); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proveedores (nombre, contacto, telefono, direccion) VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Nombre, s.Contacto, s.Telefono, s.Direccion).Scan(&s.ID)
	return s, err
}

// UpdateSupplier rewrites a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE proveedores SET nombre = $2, contacto = $3, telefono = $4, direccion = $5
		WHERE id = $1 AND is_deleted = FALSE`,
		id, s.Nombre, s.Contacto, s.Telefono, s.Direccion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListClients returns active clients.
func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nombre, telefono, correo FROM clientes WHERE is_deleted = FALSE ORDER BY nombre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Client{}
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Telefono, &c.Correo); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CreateClient inserts a client.
func (r *Repository) CreateClient(ctx context.Context, c Client) (Client, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clientes (nombre, telefono, correo) VALUES ($1, $2, $3) RETURNING id`,
		c.Nombre, c.Telefono, c.Correo).Scan(&c.ID)
	return c, err
}

// UpdateClient rewrites a client.
func (r *Repository) UpdateClient(ctx context.Context, id int64, c Client) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clientes SET nombre = $2, telefono = $3, correo = $4 WHERE id = $1 AND is_deleted = FALSE`,
		id, c.Nombre, c.Telefono, c.Correo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks any masterdata row deleted and archives a snapshot built
// from the full row, one transaction per call. The snapshot keeps every
// column so a restore loses nothing even if the schema grows.
func (r *Repository) SoftDelete(ctx context.Context, table trash.Table, id int64, userID int64) error {
	tableName, ok := namedTable(table)
	if !ok {
		return trash.ErrUnsupportedTable
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var nombre string
		var rowJSON []byte
		err := tx.QueryRow(ctx,
			`SELECT t.nombre, row_to_json(t) FROM `+tableName+` t WHERE t.id = $1 AND t.is_deleted = FALSE FOR UPDATE`,
			id).Scan(&nombre, &rowJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var campos map[string]any
		if err := json.Unmarshal(rowJSON, &campos); err != nil {
			return err
		}
		snapshot, err := trash.MarshalSnapshot(trash.NamedSnapshot{ID: id, Nombre: nombre, Campos: campos})
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE `+tableName+` SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2 WHERE id = $1`,
			id, userID); err != nil {
			return err
		}
		return trash.Insert(ctx, tx, trash.Entry{
			Tabla: table, RecordID: id, Contenido: snapshot, UserID: userID,
		})
	})
}

func namedTable(table trash.Table) (string, bool) {
	switch table {
	case trash.TableCategorias, trash.TableProveedores, trash.TableClientes:
		return string(table), true
	default:
		return "", false
	}
}
