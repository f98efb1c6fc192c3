// Package cashbox manages cash-register sessions (caja) and their append-only
// movement ledger.
package cashbox

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Session lifecycle states.
const (
	EstadoAbierta = "abierta"
	EstadoCerrada = "cerrada"
)

// Movement types recorded in movimientos_caja.
const (
	TipoIngreso = "ingreso"
	TipoEgreso  = "egreso"
)

// Session is a caja: opened with a float, accumulates sales, closed with a
// counted amount and a computed variance. Closed is terminal.
type Session struct {
	ID            int64      `json:"id"`
	IDUsuario     int64      `json:"id_usuario"`
	FechaApertura time.Time  `json:"fecha_apertura"`
	MontoInicial  float64    `json:"monto_inicial"`
	TotalVentas   float64    `json:"total_ventas"`
	FechaCierre   *time.Time `json:"fecha_cierre,omitempty"`
	MontoFinal    *float64   `json:"monto_final,omitempty"`
	Diferencia    *float64   `json:"diferencia,omitempty"`
	Estado        string     `json:"estado"`
}

// Movement is one entry in the session's ledger.
type Movement struct {
	ID          int64     `json:"id"`
	IDCaja      int64     `json:"id_caja"`
	Tipo        string    `json:"tipo"`
	Monto       float64   `json:"monto"`
	IDVenta     *int64    `json:"id_venta,omitempty"`
	Descripcion string    `json:"descripcion"`
	Fecha       time.Time `json:"fecha"`
}

// ErrSessionNotFound indicates the caja does not exist.
var ErrSessionNotFound = fmt.Errorf("caja no existe: %w", httpx.ErrNotFound)

// ErrSessionClosed indicates an operation on an already closed caja.
var ErrSessionClosed = fmt.Errorf("la caja ya está cerrada: %w", httpx.ErrConflict)
