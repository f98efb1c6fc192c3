package trash

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

type memoryRow struct {
	table   Table
	deleted bool
	gone    bool
}

type memoryRepo struct {
	entries    map[int64]Entry
	rows       map[int64]*memoryRow
	stocks     map[int64]float64
	recomputed []int64
	nextEntry  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries: make(map[int64]Entry),
		rows:    make(map[int64]*memoryRow),
		stocks:  make(map[int64]float64),
	}
}

func (r *memoryRepo) addEntry(e Entry) Entry {
	r.nextEntry++
	e.ID = r.nextEntry
	if e.Fecha.IsZero() {
		e.Fecha = time.Now().UTC()
	}
	r.entries[e.ID] = e
	r.rows[e.RecordID] = &memoryRow{table: e.Tabla, deleted: true}
	return e
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListEntries(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, 0, len(r.entries))
	for id := int64(1); id <= r.nextEntry; id++ {
		if e, ok := r.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	e, ok := t.repo.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (t *memoryTx) DeleteEntry(ctx context.Context, id int64) error {
	delete(t.repo.entries, id)
	return nil
}

func (t *memoryTx) Reactivate(ctx context.Context, table Table, recordID int64) error {
	row, ok := t.repo.rows[recordID]
	if !ok || row.gone {
		return ErrEntryNotFound
	}
	row.deleted = false
	return nil
}

func (t *memoryTx) HardDelete(ctx context.Context, table Table, recordID int64) error {
	row, ok := t.repo.rows[recordID]
	if !ok {
		return ErrEntryNotFound
	}
	row.gone = true
	return nil
}

func (t *memoryTx) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	t.repo.stocks[productID] += delta
	return t.repo.stocks[productID], nil
}

func (t *memoryTx) RecomputePurchaseTotal(ctx context.Context, purchaseID int64) error {
	t.repo.recomputed = append(t.repo.recomputed, purchaseID)
	return nil
}

func TestListReconstructsDisplayNames(t *testing.T) {
	repo := newMemoryRepo()

	catSnap, err := MarshalSnapshot(NamedSnapshot{ID: 1, Nombre: "Lácteos"})
	require.NoError(t, err)
	repo.addEntry(Entry{Tabla: TableCategorias, RecordID: 1, Contenido: catSnap})

	prodSnap, err := MarshalSnapshot(ProductSnapshot{ID: 2, Nombre: "Queso Fresco"})
	require.NoError(t, err)
	repo.addEntry(Entry{Tabla: TableProductos, RecordID: 2, Contenido: prodSnap})

	compraSnap, err := MarshalSnapshot(PurchaseSnapshot{ID: 3, Proveedor: "Distribuidora Sur"})
	require.NoError(t, err)
	repo.addEntry(Entry{Tabla: TableCompras, RecordID: 3, Contenido: compraSnap})

	svc := NewService(repo, nil)
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "Lácteos", items[0].Nombre)
	require.Equal(t, "Queso Fresco", items[1].Nombre)
	require.Equal(t, "Compra #3 - Distribuidora Sur", items[2].Nombre)
}

func TestRestoreNamedEntity(t *testing.T) {
	repo := newMemoryRepo()
	snap, err := MarshalSnapshot(NamedSnapshot{ID: 5, Nombre: "Bebidas"})
	require.NoError(t, err)
	entry := repo.addEntry(Entry{Tabla: TableCategorias, RecordID: 5, Contenido: snap})

	svc := NewService(repo, nil)
	require.NoError(t, svc.Restore(context.Background(), entry.ID))

	require.False(t, repo.rows[5].deleted)
	// The envelope is consumed.
	require.Empty(t, repo.entries)
}

func TestRestoreProductKeepsArchivedStock(t *testing.T) {
	repo := newMemoryRepo()
	snap, err := MarshalSnapshot(ProductSnapshot{ID: 7, Nombre: "Arroz", StockActual: 12})
	require.NoError(t, err)
	entry := repo.addEntry(Entry{Tabla: TableProductos, RecordID: 7, Contenido: snap})

	svc := NewService(repo, nil)
	require.NoError(t, svc.Restore(context.Background(), entry.ID))

	require.False(t, repo.rows[7].deleted)
	// The row keeps its own stock_actual: no ledger replay for productos.
	require.Empty(t, repo.stocks)
}

func TestRestorePurchaseLineReplaysStock(t *testing.T) {
	repo := newMemoryRepo()
	snap, err := MarshalSnapshot(PurchaseLineSnapshot{
		ID: 9, IDCompra: 4, IDProducto: 11, Cantidad: 6, PrecioUnitario: 3,
	})
	require.NoError(t, err)
	entry := repo.addEntry(Entry{Tabla: TableDetalleCompras, RecordID: 9, Contenido: snap})

	svc := NewService(repo, nil)
	require.NoError(t, svc.Restore(context.Background(), entry.ID))

	require.False(t, repo.rows[9].deleted)
	require.InDelta(t, 6, repo.stocks[11], 0.0001)
	require.Equal(t, []int64{4}, repo.recomputed)
}

func TestRestorePurchaseHeaderDoesNotCascade(t *testing.T) {
	repo := newMemoryRepo()
	snap, err := MarshalSnapshot(PurchaseSnapshot{
		ID: 4, Proveedor: "Distribuidora Sur",
		Lineas: []PurchaseLineSnapshot{{ID: 9, IDProducto: 11, Cantidad: 6, IsDeleted: true}},
	})
	require.NoError(t, err)
	entry := repo.addEntry(Entry{Tabla: TableCompras, RecordID: 4, Contenido: snap})

	svc := NewService(repo, nil)
	require.NoError(t, svc.Restore(context.Background(), entry.ID))

	require.False(t, repo.rows[4].deleted)
	// Lines stay soft-deleted and no stock is replayed.
	require.Empty(t, repo.stocks)
}

func TestPurgeHardDeletesWithoutStockReplay(t *testing.T) {
	repo := newMemoryRepo()
	snap, err := MarshalSnapshot(PurchaseLineSnapshot{
		ID: 9, IDCompra: 4, IDProducto: 11, Cantidad: 6,
	})
	require.NoError(t, err)
	entry := repo.addEntry(Entry{Tabla: TableDetalleCompras, RecordID: 9, Contenido: snap})

	svc := NewService(repo, nil)
	require.NoError(t, svc.Purge(context.Background(), entry.ID))

	require.True(t, repo.rows[9].gone)
	require.Empty(t, repo.stocks)
	require.Empty(t, repo.entries)
}

func TestRestoreUnsupportedTable(t *testing.T) {
	repo := newMemoryRepo()
	entry := repo.addEntry(Entry{Tabla: Table("ventas"), RecordID: 1, Contenido: []byte(`{}`)})

	svc := NewService(repo, nil)
	err := svc.Restore(context.Background(), entry.ID)
	require.ErrorIs(t, err, ErrUnsupportedTable)

	// The envelope survives a failed dispatch.
	require.Len(t, repo.entries, 1)
}

func TestRestoreMissingEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.Restore(context.Background(), 77)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
