// Package sales implements the sale transaction: header, line items, stock
// decrements and the optional caja movement committed as one atomic unit.
package sales

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Sale is the venta header.
type Sale struct {
	ID        int64      `json:"id"`
	IDCliente *int64     `json:"id_cliente,omitempty"`
	IDUsuario int64      `json:"id_usuario"`
	IDCaja    *int64     `json:"id_caja,omitempty"`
	Fecha     time.Time  `json:"fecha"`
	Subtotal  float64    `json:"subtotal"`
	Impuesto  float64    `json:"impuesto"`
	Total     float64    `json:"total"`
	Lineas    []SaleLine `json:"lineas,omitempty"`
}

// SaleLine is one detalle_ventas row.
type SaleLine struct {
	ID             int64   `json:"id"`
	IDVenta        int64   `json:"id_venta"`
	IDProducto     int64   `json:"id_producto"`
	Cantidad       float64 `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	Descuento      float64 `json:"descuento"`
	TotalLinea     float64 `json:"total_linea"`
}

// LineInput is one requested line item.
type LineInput struct {
	IDProducto     int64   `json:"id_producto"`
	Cantidad       float64 `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	Descuento      float64 `json:"descuento"`
}

// CreateInput carries the full sale request. Subtotal/Impuesto/Total are
// advisory: they are recomputed, and a disagreement beyond the tolerance is
// logged but never rejected.
type CreateInput struct {
	IDCliente *int64
	IDUsuario int64
	IDCaja    *int64
	Fecha     *time.Time
	Lineas    []LineInput
	Subtotal  float64
	Impuesto  float64
	Total     float64
}

// Result reports the committed sale.
type Result struct {
	ID      int64 `json:"id_venta"`
	SinCaja bool  `json:"sin_caja"`
}

// totalTolerance is the allowed disagreement between declared and computed
// amounts before a warning is logged.
const totalTolerance = 0.01

// ErrSessionNotFound indicates the referenced caja does not exist.
var ErrSessionNotFound = fmt.Errorf("caja no existe: %w", httpx.ErrNotFound)

// ErrSaleNotFound indicates the venta does not exist.
var ErrSaleNotFound = fmt.Errorf("venta no existe: %w", httpx.ErrNotFound)
