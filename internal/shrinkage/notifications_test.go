package shrinkage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/catalog"
)

func TestNotifierFeed(t *testing.T) {
	repo := newMemoryRepo()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	low := repo.addProduct(catalog.Product{Nombre: "Arroz", StockActual: 2, StockMinimo: 5})
	due := repo.addProduct(catalog.Product{
		Nombre:        "Plátano Verde",
		StockActual:   10,
		CambiaEstado:  true,
		TiempoCambio:  5,
		FechaCreacion: now.AddDate(0, 0, -4),
	})
	repo.addProduct(catalog.Product{Nombre: "Sal", StockActual: 100, StockMinimo: 5})

	notifier := NewNotifier(repo, nil)
	notifier.now = func() time.Time { return now }

	feed, err := notifier.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 2)

	byID := map[int64]Notification{}
	for _, n := range feed {
		byID[n.IDProducto] = n
	}
	require.Equal(t, NotificacionStockBajo, byID[low.ID].Tipo)
	require.InDelta(t, 5, byID[low.ID].StockMinimo, 0.0001)
	require.Equal(t, NotificacionCambioCerca, byID[due.ID].Tipo)
	require.Equal(t, 1, byID[due.ID].DiasRestantes)
}

func TestNotifierFeedCaches(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	p := repo.addProduct(catalog.Product{Nombre: "Arroz", StockActual: 2, StockMinimo: 5})

	notifier := NewNotifier(repo, client)
	first, err := notifier.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Stock recovers, but within the TTL the cached feed still serves.
	fixed := repo.products[p.ID]
	fixed.StockActual = 50
	repo.products[p.ID] = fixed

	cached, err := notifier.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, cached, 1)

	srv.FastForward(2 * time.Minute)

	fresh, err := notifier.Feed(context.Background())
	require.NoError(t, err)
	require.Empty(t, fresh)
}
