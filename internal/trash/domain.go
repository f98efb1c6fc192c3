// Package trash implements the papelera: a generic soft-delete archive that
// stores a typed snapshot of each deleted record and knows how to restore or
// purge it later.
package trash

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Table identifies a soft-deletable entity. The set is closed: restore and
// purge dispatch through a registry keyed by this type, so an unsupported
// table is rejected up front instead of falling through a default case.
type Table string

const (
	TableCategorias     Table = "categorias"
	TableProveedores    Table = "proveedores"
	TableProductos      Table = "productos"
	TableClientes       Table = "clientes"
	TableCompras        Table = "compras"
	TableDetalleCompras Table = "detalle_compras"
)

// ErrUnsupportedTable indicates an envelope names a table no restorer handles.
var ErrUnsupportedTable = fmt.Errorf("tabla no soportada por la papelera: %w", httpx.ErrValidation)

// ErrEntryNotFound indicates the papelera envelope does not exist.
var ErrEntryNotFound = fmt.Errorf("registro de papelera no existe: %w", httpx.ErrNotFound)

// Entry is the envelope persisted in papelera. Contenido is the kind-specific
// snapshot: its schema is determined by Tabla.
type Entry struct {
	ID        int64           `json:"id"`
	Tabla     Table           `json:"tabla"`
	RecordID  int64           `json:"id_registro"`
	Contenido json.RawMessage `json:"contenido"`
	UserID    int64           `json:"id_usuario"`
	Fecha     time.Time       `json:"fecha"`
}

// ListItem is an Entry enriched with a display name reconstructed from the
// snapshot for the papelera listing.
type ListItem struct {
	Entry
	Nombre string `json:"nombre"`
}

// NamedSnapshot is the payload for simple named entities (categorias,
// proveedores, clientes).
type NamedSnapshot struct {
	ID     int64          `json:"id"`
	Nombre string         `json:"nombre"`
	Campos map[string]any `json:"campos,omitempty"`
}

// ProductSnapshot is the payload for productos.
type ProductSnapshot struct {
	ID               int64     `json:"id"`
	Nombre           string    `json:"nombre"`
	IDCategoria      int64     `json:"id_categoria"`
	IDUnidad         int64     `json:"id_unidad"`
	PrecioVenta      float64   `json:"precio_venta"`
	PrecioCompra     float64   `json:"precio_compra"`
	StockActual      float64   `json:"stock_actual"`
	StockMinimo      float64   `json:"stock_minimo"`
	StockMaximo      float64   `json:"stock_maximo"`
	CambiaEstado     bool      `json:"cambia_estado"`
	CambiaApariencia bool      `json:"cambia_apariencia"`
	TiempoCambio     int       `json:"tiempo_cambio"`
	FechaCreacion    time.Time `json:"fecha_creacion"`
}

// PurchaseLineSnapshot is the payload for a single detalle_compras row. The
// quantity is what the restore path replays against stock.
type PurchaseLineSnapshot struct {
	ID             int64   `json:"id"`
	IDCompra       int64   `json:"id_compra"`
	IDProducto     int64   `json:"id_producto"`
	Producto       string  `json:"producto,omitempty"`
	Cantidad       float64 `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	IsDeleted      bool    `json:"is_deleted"`
}

// PurchaseSnapshot embeds every line of the purchase, deleted or not, so a
// header restore can present the purchase exactly as it existed without a
// second round-trip.
type PurchaseSnapshot struct {
	ID            int64                  `json:"id"`
	IDProveedor   int64                  `json:"id_proveedor"`
	Proveedor     string                 `json:"proveedor,omitempty"`
	IDUsuario     int64                  `json:"id_usuario"`
	Fecha         time.Time              `json:"fecha"`
	Observaciones string                 `json:"observaciones"`
	Total         float64                `json:"total"`
	Lineas        []PurchaseLineSnapshot `json:"lineas"`
}

// MarshalSnapshot serializes a snapshot payload for an Entry.
func MarshalSnapshot(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("trash: marshal snapshot: %w", err)
	}
	return raw, nil
}
