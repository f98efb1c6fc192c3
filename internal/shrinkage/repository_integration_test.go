//go:build integration

package shrinkage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/testdb"
)

func TestInsertRecordWithoutUser(t *testing.T) {
	pool := testdb.New(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	var productID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO productos (nombre, stock_actual, cambia_estado, tiempo_cambio)
		VALUES ('Lechuga', 12, TRUE, 2) RETURNING id`).Scan(&productID))

	// The automatic pass writes its mermas with no originating user.
	var recID int64
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertRecord(ctx, Record{
			IDProducto: productID,
			Cantidad:   4,
			Motivo:     "Cambio de estado automático tras 3 días",
			Automatica: true,
		})
		recID = id
		return err
	})
	require.NoError(t, err)
	require.NotZero(t, recID)

	recs, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Nil(t, recs[0].IDUsuario)
	require.True(t, recs[0].Automatica)
}

func TestFindActiveProductByNameIgnoresAccents(t *testing.T) {
	pool := testdb.New(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	var id int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO productos (nombre, stock_actual) VALUES ('Plátano Maduro', 8) RETURNING id`).Scan(&id))

	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, found, err := tx.FindActiveProductByName(ctx, "Platano Maduro")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, id, p.ID)

		_, found, err = tx.FindActiveProductByName(ctx, "Platano Verde")
		require.NoError(t, err)
		require.False(t, found)
		return nil
	})
	require.NoError(t, err)
}
