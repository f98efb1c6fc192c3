// Package purchases implements the two-phase purchase workflow: a header
// opened first, lines added one transaction at a time, and line-level
// soft-delete that cascades to the header when no active lines remain.
package purchases

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Purchase is the compras header. Total is always the sum of total_linea over
// active lines, recomputed after every mutation.
type Purchase struct {
	ID            int64          `json:"id"`
	IDProveedor   int64          `json:"id_proveedor"`
	Proveedor     string         `json:"proveedor,omitempty"`
	IDUsuario     int64          `json:"id_usuario"`
	Fecha         time.Time      `json:"fecha"`
	Observaciones string         `json:"observaciones"`
	Total         float64        `json:"total"`
	IsDeleted     bool           `json:"is_deleted,omitempty"`
	Lineas        []PurchaseLine `json:"lineas,omitempty"`
}

// PurchaseLine is one detalle_compras row.
type PurchaseLine struct {
	ID             int64   `json:"id"`
	IDCompra       int64   `json:"id_compra"`
	IDProducto     int64   `json:"id_producto"`
	Producto       string  `json:"producto,omitempty"`
	Cantidad       float64 `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	TotalLinea     float64 `json:"total_linea"`
	IsDeleted      bool    `json:"is_deleted,omitempty"`
}

// OpenInput opens a purchase header before its lines are known.
type OpenInput struct {
	IDProveedor   int64
	IDUsuario     int64
	Fecha         *time.Time
	Observaciones string
}

// AddLineInput adds one line to an open purchase.
type AddLineInput struct {
	IDCompra       int64
	IDProducto     int64
	Cantidad       float64
	PrecioUnitario float64
}

// AddLineResult reports the inserted line and the recomputed header total.
type AddLineResult struct {
	Line  PurchaseLine `json:"linea"`
	Total float64      `json:"total"`
}

// ErrPurchaseNotFound indicates the compra does not exist or is inactive.
var ErrPurchaseNotFound = fmt.Errorf("compra no existe: %w", httpx.ErrNotFound)

// ErrLineNotFound indicates the detalle does not exist or is inactive.
var ErrLineNotFound = fmt.Errorf("detalle de compra no existe: %w", httpx.ErrNotFound)
