package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	deleted  map[int64]int64 // product id -> deleting user
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product), deleted: make(map[int64]int64)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if p.IsDeleted {
			continue
		}
		if filters.LowStock && p.StockActual > p.StockMinimo {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.IsDeleted {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (Product, error) {
	for _, existing := range r.products {
		if !existing.IsDeleted && existing.Nombre == p.Nombre {
			return Product{}, ErrDuplicateName
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, p Product) error {
	existing, ok := r.products[id]
	if !ok || existing.IsDeleted {
		return ErrNotFound
	}
	// Stock is never writable through catalog updates.
	p.ID = id
	p.StockActual = existing.StockActual
	r.products[id] = p
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id int64, userID int64) error {
	p, ok := r.products[id]
	if !ok || p.IsDeleted {
		return ErrNotFound
	}
	p.IsDeleted = true
	r.products[id] = p
	r.deleted[id] = userID
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateAndGet(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Nombre: "Arroz", PrecioVenta: 3, StockMinimo: 5})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Arroz", got.Nombre)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "producto:crear", audit.logs[0].Action)
}

func TestCreateDuplicateName(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Nombre: "Arroz"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Product{Nombre: "Arroz"})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, Product{Nombre: "Arroz", PrecioVenta: -1})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, Product{Nombre: "Arroz", TiempoCambio: -3})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteRecordsActor(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := shared.ContextWithActor(context.Background(), 9)

	created, err := svc.Create(ctx, Product{Nombre: "Arroz"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.Equal(t, int64(9), repo.deleted[created.ID])

	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListLowStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Nombre: "Arroz", StockActual: 2, StockMinimo: 5})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Product{Nombre: "Sal", StockActual: 50, StockMinimo: 5})
	require.NoError(t, err)

	low, total, err := svc.List(ctx, ListFilters{LowStock: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Arroz", low[0].Nombre)
}
