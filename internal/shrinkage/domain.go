// Package shrinkage implements mermas: manual spoilage registration, stock
// transformation between product identities, and the automatic state-change
// pass that ages flagged products.
package shrinkage

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Record is one mermas row. Deleting a record restores the stock it removed.
type Record struct {
	ID         int64     `json:"id"`
	IDProducto int64     `json:"id_producto"`
	Producto   string    `json:"producto,omitempty"`
	Cantidad   float64   `json:"cantidad"`
	Motivo     string    `json:"motivo"`
	IDUsuario  *int64    `json:"id_usuario,omitempty"`
	Fecha      time.Time `json:"fecha"`
	Automatica bool      `json:"automatica"`
}

// RegisterInput is a manual shrinkage request.
type RegisterInput struct {
	IDProducto int64
	Cantidad   float64
	Motivo     string
	IDUsuario  *int64
}

// TransformInput converts stock from one product identity into another.
type TransformInput struct {
	IDProductoOrigen int64
	NombreDestino    string
	Cantidad         float64
	CrearDestino     bool
	IDUsuario        *int64
}

// TransformResult reports both sides of a committed transformation.
type TransformResult struct {
	IDProductoOrigen  int64   `json:"id_producto_origen"`
	IDProductoDestino int64   `json:"id_producto_destino"`
	DestinoCreado     bool    `json:"destino_creado"`
	Cantidad          float64 `json:"cantidad"`
	StockOrigen       float64 `json:"stock_origen"`
	StockDestino      float64 `json:"stock_destino"`
}

// BatchShrinkage is one automatic spoilage generated by the batch pass.
type BatchShrinkage struct {
	IDProducto int64   `json:"id_producto"`
	Producto   string  `json:"producto"`
	Cantidad   float64 `json:"cantidad"`
	Motivo     string  `json:"motivo"`
}

// BatchTransformation is one automatic appearance change.
type BatchTransformation struct {
	IDProductoOrigen  int64   `json:"id_producto_origen"`
	Origen            string  `json:"origen"`
	IDProductoDestino int64   `json:"id_producto_destino"`
	Destino           string  `json:"destino"`
	Cantidad          float64 `json:"cantidad"`
	DestinoCreado     bool    `json:"destino_creado"`
}

// BatchResult summarizes one automatic pass.
type BatchResult struct {
	Procesados       int                   `json:"productos_procesados"`
	Mermas           []BatchShrinkage      `json:"mermas_generadas"`
	Transformaciones []BatchTransformation `json:"transformaciones_generadas"`
}

// Notification feed item types.
const (
	NotificacionStockBajo   = "stock_bajo"
	NotificacionCambioCerca = "cambio_proximo"
)

// Notification is one alerting entry for the read-only feed.
type Notification struct {
	Tipo        string  `json:"tipo"`
	IDProducto  int64   `json:"id_producto"`
	Producto    string  `json:"producto"`
	StockActual float64 `json:"stock_actual"`
	StockMinimo float64 `json:"stock_minimo,omitempty"`
	DiasRestantes int   `json:"dias_restantes,omitempty"`
}

// ErrRecordNotFound indicates the merma does not exist.
var ErrRecordNotFound = fmt.Errorf("merma no existe: %w", httpx.ErrNotFound)

// ErrDestinationMissing indicates the destination product does not exist and
// creation was not allowed.
var ErrDestinationMissing = fmt.Errorf("producto destino no existe y no se permite crearlo: %w", httpx.ErrValidation)

// ErrSameProduct indicates origin and destination resolve to the same product.
var ErrSameProduct = fmt.Errorf("producto origen y destino son el mismo: %w", httpx.ErrValidation)
