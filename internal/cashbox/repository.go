package cashbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-pos/bodega-pos/internal/platform/db"
)

// Repository persists caja sessions and movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Open inserts a new session in estado abierta.
func (r *Repository) Open(ctx context.Context, userID int64, montoInicial float64) (Session, error) {
	s := Session{
		IDUsuario:     userID,
		FechaApertura: time.Now().UTC(),
		MontoInicial:  montoInicial,
		Estado:        EstadoAbierta,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO caja (id_usuario, fecha_apertura, monto_inicial, total_ventas, estado)
		VALUES ($1, $2, $3, 0, $4) RETURNING id`,
		s.IDUsuario, s.FechaApertura, s.MontoInicial, s.Estado,
	).Scan(&s.ID)
	if err != nil {
		return Session{}, fmt.Errorf("cashbox: open: %w", err)
	}
	return s, nil
}

// Get returns a session by id.
func (r *Repository) Get(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, id_usuario, fecha_apertura, monto_inicial, total_ventas, fecha_cierre, monto_final, diferencia, estado
		FROM caja WHERE id = $1`, id,
	).Scan(&s.ID, &s.IDUsuario, &s.FechaApertura, &s.MontoInicial, &s.TotalVentas,
		&s.FechaCierre, &s.MontoFinal, &s.Diferencia, &s.Estado)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// Close locks the session, verifies it is still open, and writes the counted
// amount plus the computed variance. The returned session reflects the final
// state.
func (r *Repository) Close(ctx context.Context, id int64, montoFinal float64) (Session, error) {
	var s Session
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id, id_usuario, fecha_apertura, monto_inicial, total_ventas, estado
			FROM caja WHERE id = $1 FOR UPDATE`, id,
		).Scan(&s.ID, &s.IDUsuario, &s.FechaApertura, &s.MontoInicial, &s.TotalVentas, &s.Estado)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if s.Estado == EstadoCerrada {
			return ErrSessionClosed
		}

		now := time.Now().UTC()
		diferencia := montoFinal - (s.MontoInicial + s.TotalVentas)
		if _, err := tx.Exec(ctx,
			`UPDATE caja SET estado = $2, fecha_cierre = $3, monto_final = $4, diferencia = $5 WHERE id = $1`,
			id, EstadoCerrada, now, montoFinal, diferencia); err != nil {
			return err
		}
		s.Estado = EstadoCerrada
		s.FechaCierre = &now
		s.MontoFinal = &montoFinal
		s.Diferencia = &diferencia
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// ListMovements returns the movement ledger for a session.
func (r *Repository) ListMovements(ctx context.Context, sessionID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, id_caja, tipo, monto, id_venta, descripcion, fecha
		FROM movimientos_caja WHERE id_caja = $1 ORDER BY fecha ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.IDCaja, &m.Tipo, &m.Monto, &m.IDVenta, &m.Descripcion, &m.Fecha); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Transaction-scoped helpers used by the sales workflow inside its own
// transaction.

// SessionExists reports whether a caja row exists, locking it when found so a
// concurrent close cannot slip between the check and the total update.
func SessionExists(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var found int64
	err := tx.QueryRow(ctx, `SELECT id FROM caja WHERE id = $1 FOR UPDATE`, id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddSaleTotal increments the session's accumulated sales.
func AddSaleTotal(ctx context.Context, tx pgx.Tx, sessionID int64, amount float64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE caja SET total_ventas = total_ventas + $2 WHERE id = $1`, sessionID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InsertMovement appends a movement to the session ledger.
func InsertMovement(ctx context.Context, tx pgx.Tx, m Movement) error {
	if m.Fecha.IsZero() {
		m.Fecha = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO movimientos_caja (id_caja, tipo, monto, id_venta, descripcion, fecha)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.IDCaja, m.Tipo, m.Monto, m.IDVenta, m.Descripcion, m.Fecha)
	return err
}
