// Package masterdata holds the simple named entities of the back office:
// categorias, proveedores and clientes. All three soft-delete into the
// papelera.
package masterdata

import (
	"fmt"
	"time"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// Category is a categorias row.
type Category struct {
	ID          int64      `json:"id"`
	Nombre      string     `json:"nombre"`
	Descripcion string     `json:"descripcion"`
	IsDeleted   bool       `json:"is_deleted,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Supplier is a proveedores row.
type Supplier struct {
	ID        int64      `json:"id"`
	Nombre    string     `json:"nombre"`
	Contacto  string     `json:"contacto"`
	Telefono  string     `json:"telefono"`
	Direccion string     `json:"direccion"`
	IsDeleted bool       `json:"is_deleted,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Client is a clientes row.
type Client struct {
	ID        int64      `json:"id"`
	Nombre    string     `json:"nombre"`
	Telefono  string     `json:"telefono"`
	Correo    string     `json:"correo"`
	IsDeleted bool       `json:"is_deleted,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ErrNotFound indicates the record does not exist or is soft-deleted.
var ErrNotFound = fmt.Errorf("registro no existe: %w", httpx.ErrNotFound)
