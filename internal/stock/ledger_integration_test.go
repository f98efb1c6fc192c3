//go:build integration

package stock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/testdb"
)

func seedProduct(t *testing.T, pool *pgxpool.Pool, nombre string, stock float64) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO productos (nombre, stock_actual) VALUES ($1, $2) RETURNING id`,
		nombre, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestApplyCheckedSerializesConcurrentDecrements(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()
	id := seedProduct(t, pool, "Arroz", 10)

	tx1, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	require.NoError(t, err)
	defer tx1.Rollback(ctx)

	_, err = ApplyChecked(ctx, tx1, id, 7)
	require.NoError(t, err)

	// The second decrement blocks on tx1's row lock and must re-check
	// against the committed balance, not the one it started from.
	errCh := make(chan error, 1)
	go func() {
		tx2, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			errCh <- err
			return
		}
		defer tx2.Rollback(ctx)
		_, err = ApplyChecked(ctx, tx2, id, 7)
		errCh <- err
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, tx1.Commit(ctx))

	err = <-errCh
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.InDelta(t, 3, insufficient.Current, 0.0001)
	require.InDelta(t, 7, insufficient.Requested, 0.0001)

	var final float64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT stock_actual FROM productos WHERE id = $1`, id).Scan(&final))
	require.InDelta(t, 3, final, 0.0001)
}

func TestApplyConcurrentDeltasAllLand(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()
	id := seedProduct(t, pool, "Frijol", 0)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := pool.Begin(ctx)
			if err != nil {
				errs <- err
				return
			}
			if _, err := Apply(ctx, tx, id, 1); err != nil {
				_ = tx.Rollback(ctx)
				errs <- err
				return
			}
			errs <- tx.Commit(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var final float64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT stock_actual FROM productos WHERE id = $1`, id).Scan(&final))
	require.InDelta(t, workers, final, 0.0001)
}

func TestApplySkipsSoftDeletedRows(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()
	id := seedProduct(t, pool, "Café", 5)
	_, err := pool.Exec(ctx, `UPDATE productos SET is_deleted = TRUE WHERE id = $1`, id)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = Apply(ctx, tx, id, -1)
	require.ErrorIs(t, err, ErrProductNotFound)

	got, err := ApplyAny(ctx, tx, id, 2)
	require.NoError(t, err)
	require.InDelta(t, 7, got, 0.0001)
}
