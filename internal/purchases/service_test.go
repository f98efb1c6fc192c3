package purchases

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/trash"
)

type memoryRepo struct {
	purchases map[int64]Purchase
	lines     map[int64]PurchaseLine
	stocks    map[int64]float64
	archived  []trash.Entry
	nextPID   int64
	nextLID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		purchases: make(map[int64]Purchase),
		lines:     make(map[int64]PurchaseLine),
		stocks:    make(map[int64]float64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	purchases := make(map[int64]Purchase, len(r.purchases))
	for k, v := range r.purchases {
		purchases[k] = v
	}
	lines := make(map[int64]PurchaseLine, len(r.lines))
	for k, v := range r.lines {
		lines[k] = v
	}
	stocks := make(map[int64]float64, len(r.stocks))
	for k, v := range r.stocks {
		stocks[k] = v
	}
	archived := append([]trash.Entry(nil), r.archived...)
	nextP, nextL := r.nextPID, r.nextLID

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.purchases, r.lines, r.stocks, r.archived = purchases, lines, stocks, archived
		r.nextPID, r.nextLID = nextP, nextL
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok || p.IsDeleted {
		return Purchase{}, ErrPurchaseNotFound
	}
	for _, line := range r.lines {
		if line.IDCompra == id && !line.IsDeleted {
			p.Lineas = append(p.Lineas, line)
		}
	}
	return p, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range r.purchases {
		if !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	t.repo.nextPID++
	p.ID = t.repo.nextPID
	t.repo.purchases[p.ID] = p
	return p.ID, nil
}

func (t *memoryTx) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	p, ok := t.repo.purchases[id]
	if !ok || p.IsDeleted {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (t *memoryTx) InsertLine(ctx context.Context, line PurchaseLine) (int64, error) {
	t.repo.nextLID++
	line.ID = t.repo.nextLID
	t.repo.lines[line.ID] = line
	return line.ID, nil
}

func (t *memoryTx) GetLineForUpdate(ctx context.Context, lineID int64) (PurchaseLine, error) {
	line, ok := t.repo.lines[lineID]
	if !ok || line.IsDeleted {
		return PurchaseLine{}, ErrLineNotFound
	}
	return line, nil
}

func (t *memoryTx) ListLines(ctx context.Context, purchaseID int64, includeDeleted bool) ([]PurchaseLine, error) {
	var out []PurchaseLine
	for id := int64(1); id <= t.repo.nextLID; id++ {
		line, ok := t.repo.lines[id]
		if !ok || line.IDCompra != purchaseID {
			continue
		}
		if line.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func (t *memoryTx) SoftDeleteLine(ctx context.Context, lineID int64, userID int64) error {
	line := t.repo.lines[lineID]
	line.IsDeleted = true
	t.repo.lines[lineID] = line
	return nil
}

func (t *memoryTx) SoftDeletePurchase(ctx context.Context, id int64, userID int64) error {
	p := t.repo.purchases[id]
	p.IsDeleted = true
	t.repo.purchases[id] = p
	return nil
}

func (t *memoryTx) CountActiveLines(ctx context.Context, purchaseID int64) (int, error) {
	count := 0
	for _, line := range t.repo.lines {
		if line.IDCompra == purchaseID && !line.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) RecomputeTotal(ctx context.Context, purchaseID int64) (float64, error) {
	total := 0.0
	for _, line := range t.repo.lines {
		if line.IDCompra == purchaseID && !line.IsDeleted {
			total += line.TotalLinea
		}
	}
	p := t.repo.purchases[purchaseID]
	p.Total = total
	t.repo.purchases[purchaseID] = p
	return total, nil
}

func (t *memoryTx) ApplyStock(ctx context.Context, productID int64, delta float64) (float64, error) {
	current, ok := t.repo.stocks[productID]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	current += delta
	t.repo.stocks[productID] = current
	return current, nil
}

func (t *memoryTx) ApplyStockChecked(ctx context.Context, productID int64, qty float64) (float64, error) {
	current, ok := t.repo.stocks[productID]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	if qty > current {
		return 0, httpx.ErrInsufficient
	}
	current -= qty
	t.repo.stocks[productID] = current
	return current, nil
}

func (t *memoryTx) ArchiveTrash(ctx context.Context, entry trash.Entry) error {
	t.repo.archived = append(t.repo.archived, entry)
	return nil
}

func openWithLines(t *testing.T, svc *Service, repo *memoryRepo, lines ...AddLineInput) int64 {
	t.Helper()
	id, err := svc.Open(context.Background(), OpenInput{IDProveedor: 1, IDUsuario: 2})
	require.NoError(t, err)
	for _, line := range lines {
		line.IDCompra = id
		_, err := svc.AddLine(context.Background(), line)
		require.NoError(t, err)
	}
	return id
}

func TestAddLineKeepsTotalConsistent(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	repo.stocks[2] = 0
	svc := NewService(repo, nil, nil)

	id := openWithLines(t, svc, repo,
		AddLineInput{IDProducto: 1, Cantidad: 10, PrecioUnitario: 2},
		AddLineInput{IDProducto: 2, Cantidad: 4, PrecioUnitario: 5},
	)

	p, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.InDelta(t, 40, p.Total, 0.0001) // 20 + 20
	require.Len(t, p.Lineas, 2)
	require.InDelta(t, 10, repo.stocks[1], 0.0001)
	require.InDelta(t, 4, repo.stocks[2], 0.0001)
}

func TestAddLineUnknownPurchase(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	svc := NewService(repo, nil, nil)

	_, err := svc.AddLine(context.Background(), AddLineInput{
		IDCompra: 9, IDProducto: 1, Cantidad: 1, PrecioUnitario: 1,
	})
	require.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestRemoveLineReversesStockAndArchives(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	repo.stocks[2] = 0
	svc := NewService(repo, nil, nil)

	id := openWithLines(t, svc, repo,
		AddLineInput{IDProducto: 1, Cantidad: 10, PrecioUnitario: 2},
		AddLineInput{IDProducto: 2, Cantidad: 4, PrecioUnitario: 5},
	)

	require.NoError(t, svc.RemoveLine(context.Background(), 1))

	require.InDelta(t, 0, repo.stocks[1], 0.0001)
	require.InDelta(t, 4, repo.stocks[2], 0.0001)

	p, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.InDelta(t, 20, p.Total, 0.0001)
	require.Len(t, p.Lineas, 1)

	// The removed line itself went to the papelera.
	require.Len(t, repo.archived, 1)
	require.Equal(t, trash.TableDetalleCompras, repo.archived[0].Tabla)

	var snap trash.PurchaseLineSnapshot
	require.NoError(t, json.Unmarshal(repo.archived[0].Contenido, &snap))
	require.Equal(t, int64(1), snap.IDProducto)
	require.InDelta(t, 10, snap.Cantidad, 0.0001)
}

func TestRemoveLastLineCascadesToHeader(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	svc := NewService(repo, nil, nil)

	id := openWithLines(t, svc, repo,
		AddLineInput{IDProducto: 1, Cantidad: 10, PrecioUnitario: 2},
	)

	require.NoError(t, svc.RemoveLine(context.Background(), 1))

	require.True(t, repo.purchases[id].IsDeleted)
	require.InDelta(t, 0, repo.purchases[id].Total, 0.0001)

	// Line snapshot plus the header snapshot embedding all lines.
	require.Len(t, repo.archived, 2)
	require.Equal(t, trash.TableDetalleCompras, repo.archived[0].Tabla)
	require.Equal(t, trash.TableCompras, repo.archived[1].Tabla)

	var snap trash.PurchaseSnapshot
	require.NoError(t, json.Unmarshal(repo.archived[1].Contenido, &snap))
	require.Len(t, snap.Lineas, 1)
	require.True(t, snap.Lineas[0].IsDeleted)
}

func TestRemoveLineInsufficientStockRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	svc := NewService(repo, nil, nil)

	id := openWithLines(t, svc, repo,
		AddLineInput{IDProducto: 1, Cantidad: 10, PrecioUnitario: 2},
	)

	// The purchased stock was already sold: reversing would overdraw.
	repo.stocks[1] = 3

	err := svc.RemoveLine(context.Background(), 1)
	require.ErrorIs(t, err, httpx.ErrInsufficient)

	require.False(t, repo.purchases[id].IsDeleted)
	require.False(t, repo.lines[1].IsDeleted)
	require.InDelta(t, 3, repo.stocks[1], 0.0001)
	require.Empty(t, repo.archived)
}

func TestRemovePurchaseReversesActiveLinesOnce(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[1] = 0
	repo.stocks[2] = 0
	svc := NewService(repo, nil, nil)

	id := openWithLines(t, svc, repo,
		AddLineInput{IDProducto: 1, Cantidad: 10, PrecioUnitario: 2},
		AddLineInput{IDProducto: 2, Cantidad: 4, PrecioUnitario: 5},
	)

	// First line already individually removed, its stock already reversed.
	require.NoError(t, svc.RemoveLine(context.Background(), 1))
	repo.archived = nil

	require.NoError(t, svc.Remove(context.Background(), id))

	// Only the still-active line was reversed.
	require.InDelta(t, 0, repo.stocks[1], 0.0001)
	require.InDelta(t, 0, repo.stocks[2], 0.0001)
	require.True(t, repo.purchases[id].IsDeleted)

	require.Len(t, repo.archived, 1)
	require.Equal(t, trash.TableCompras, repo.archived[0].Tabla)

	var snap trash.PurchaseSnapshot
	require.NoError(t, json.Unmarshal(repo.archived[0].Contenido, &snap))
	require.Len(t, snap.Lineas, 2)
}

func TestRemoveMissingPurchase(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	err := svc.Remove(context.Background(), 42)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestOpenValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Open(context.Background(), OpenInput{IDUsuario: 2})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Open(context.Background(), OpenInput{IDProveedor: 1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
