package trash

import (
	"context"
	"encoding/json"
	"fmt"
)

// Restorer reverses one table's soft-delete. Registering a new soft-deletable
// entity means adding an enum value and a Restorer here, not extending a
// string switch.
type Restorer interface {
	Restore(ctx context.Context, tx TxRepository, e Entry) error
	Purge(ctx context.Context, tx TxRepository, e Entry) error
	DisplayName(contenido json.RawMessage) string
}

// namedRestorer handles simple named entities: restore flips is_deleted,
// purge hard-deletes and lets referential cascade take dependents.
type namedRestorer struct {
	table Table
}

func (r namedRestorer) Restore(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.Reactivate(ctx, r.table, e.RecordID)
}

func (r namedRestorer) Purge(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.HardDelete(ctx, r.table, e.RecordID)
}

func (r namedRestorer) DisplayName(contenido json.RawMessage) string {
	var snap NamedSnapshot
	if err := json.Unmarshal(contenido, &snap); err != nil || snap.Nombre == "" {
		return string(r.table)
	}
	return snap.Nombre
}

// productRestorer restores the product row as archived; the archived
// stock_actual is still in the row itself, so no ledger replay is needed.
type productRestorer struct{}

func (productRestorer) Restore(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.Reactivate(ctx, TableProductos, e.RecordID)
}

func (productRestorer) Purge(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.HardDelete(ctx, TableProductos, e.RecordID)
}

func (productRestorer) DisplayName(contenido json.RawMessage) string {
	var snap ProductSnapshot
	if err := json.Unmarshal(contenido, &snap); err != nil || snap.Nombre == "" {
		return string(TableProductos)
	}
	return snap.Nombre
}

// purchaseRestorer reactivates the header only. Its lines stay soft-deleted
// and keep their own papelera-free state: each line needs an explicit restore.
// Cascading here would replay stock for lines the operator may not want back.
type purchaseRestorer struct{}

func (purchaseRestorer) Restore(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.Reactivate(ctx, TableCompras, e.RecordID)
}

func (purchaseRestorer) Purge(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.HardDelete(ctx, TableCompras, e.RecordID)
}

func (purchaseRestorer) DisplayName(contenido json.RawMessage) string {
	var snap PurchaseSnapshot
	if err := json.Unmarshal(contenido, &snap); err != nil {
		return string(TableCompras)
	}
	if snap.Proveedor != "" {
		return fmt.Sprintf("Compra #%d - %s", snap.ID, snap.Proveedor)
	}
	return fmt.Sprintf("Compra #%d", snap.ID)
}

// purchaseLineRestorer reactivates the line, replays its stock increment from
// the snapshot and recomputes the owning header's total.
type purchaseLineRestorer struct{}

func (purchaseLineRestorer) Restore(ctx context.Context, tx TxRepository, e Entry) error {
	var snap PurchaseLineSnapshot
	if err := json.Unmarshal(e.Contenido, &snap); err != nil {
		return fmt.Errorf("trash: decode detalle_compras snapshot: %w", err)
	}
	if err := tx.Reactivate(ctx, TableDetalleCompras, e.RecordID); err != nil {
		return err
	}
	if _, err := tx.ApplyStock(ctx, snap.IDProducto, snap.Cantidad); err != nil {
		return err
	}
	return tx.RecomputePurchaseTotal(ctx, snap.IDCompra)
}

func (purchaseLineRestorer) Purge(ctx context.Context, tx TxRepository, e Entry) error {
	return tx.HardDelete(ctx, TableDetalleCompras, e.RecordID)
}

func (purchaseLineRestorer) DisplayName(contenido json.RawMessage) string {
	var snap PurchaseLineSnapshot
	if err := json.Unmarshal(contenido, &snap); err != nil {
		return string(TableDetalleCompras)
	}
	if snap.Producto != "" {
		return fmt.Sprintf("Detalle de compra #%d - %s", snap.ID, snap.Producto)
	}
	return fmt.Sprintf("Detalle de compra #%d", snap.ID)
}

func defaultRestorers() map[Table]Restorer {
	return map[Table]Restorer{
		TableCategorias:     namedRestorer{table: TableCategorias},
		TableProveedores:    namedRestorer{table: TableProveedores},
		TableClientes:       namedRestorer{table: TableClientes},
		TableProductos:      productRestorer{},
		TableCompras:        purchaseRestorer{},
		TableDetalleCompras: purchaseLineRestorer{},
	}
}
