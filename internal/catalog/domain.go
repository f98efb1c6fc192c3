// Package catalog owns the productos table: the single source of truth for a
// product's on-hand quantity and its shrinkage/transformation configuration.
package catalog

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Product is a catalog entry. StockActual is mutated only by the stock ledger
// primitives, always inside the transaction of the triggering workflow.
type Product struct {
	ID               int64      `json:"id"`
	Nombre           string     `json:"nombre"`
	IDCategoria      int64      `json:"id_categoria"`
	IDUnidad         int64      `json:"id_unidad"`
	PrecioVenta      float64    `json:"precio_venta"`
	PrecioCompra     float64    `json:"precio_compra"`
	StockActual      float64    `json:"stock_actual"`
	StockMinimo      float64    `json:"stock_minimo"`
	StockMaximo      float64    `json:"stock_maximo"`
	CambiaEstado     bool       `json:"cambia_estado"`
	CambiaApariencia bool       `json:"cambia_apariencia"`
	TiempoCambio     int        `json:"tiempo_cambio"`
	FechaCreacion    time.Time  `json:"fecha_creacion"`
	IsDeleted        bool       `json:"is_deleted,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	DeletedBy        *int64     `json:"deleted_by,omitempty"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search     string
	CategoryID *int64
	LowStock   bool
	Limit      int
	Offset     int
}

// ErrNotFound indicates the product does not exist or is soft-deleted.
var ErrNotFound = fmt.Errorf("producto no existe: %w", httpx.ErrNotFound)

// ErrDuplicateName indicates another active product already uses the name.
var ErrDuplicateName = fmt.Errorf("ya existe un producto con ese nombre: %w", httpx.ErrDuplicate)
