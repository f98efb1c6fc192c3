package cashbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
)

// memoryRepo mirrors the persistence contract: Close reconciles against
// monto_inicial + total_ventas and a closed session is terminal.
type memoryRepo struct {
	sessions  map[int64]Session
	movements map[int64][]Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions:  make(map[int64]Session),
		movements: make(map[int64][]Movement),
	}
}

func (r *memoryRepo) Open(ctx context.Context, userID int64, montoInicial float64) (Session, error) {
	r.nextID++
	sess := Session{
		ID:            r.nextID,
		IDUsuario:     userID,
		FechaApertura: time.Now().UTC(),
		MontoInicial:  montoInicial,
		Estado:        EstadoAbierta,
	}
	r.sessions[sess.ID] = sess
	return sess, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (r *memoryRepo) Close(ctx context.Context, id int64, montoFinal float64) (Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Estado == EstadoCerrada {
		return Session{}, ErrSessionClosed
	}
	now := time.Now().UTC()
	diff := montoFinal - (sess.MontoInicial + sess.TotalVentas)
	sess.Estado = EstadoCerrada
	sess.FechaCierre = &now
	sess.MontoFinal = &montoFinal
	sess.Diferencia = &diff
	r.sessions[id] = sess
	return sess, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, sessionID int64) ([]Movement, error) {
	return r.movements[sessionID], nil
}

func TestOpenAndClose(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, 3, 100)
	require.NoError(t, err)
	require.Equal(t, EstadoAbierta, sess.Estado)

	// Sales accumulated during the session.
	stored := repo.sessions[sess.ID]
	stored.TotalVentas = 250
	repo.sessions[sess.ID] = stored

	closed, err := svc.Close(ctx, sess.ID, 340)
	require.NoError(t, err)
	require.Equal(t, EstadoCerrada, closed.Estado)
	require.NotNil(t, closed.Diferencia)
	require.InDelta(t, -10, *closed.Diferencia, 0.0001) // 340 - (100 + 250)
}

func TestCloseTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, 3, 100)
	require.NoError(t, err)

	_, err = svc.Close(ctx, sess.ID, 100)
	require.NoError(t, err)

	_, err = svc.Close(ctx, sess.ID, 100)
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCloseMissingSession(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Close(context.Background(), 42, 100)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestOpenValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Open(context.Background(), 0, 100)
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Open(context.Background(), 3, -5)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGetReturnsMovements(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, 3, 100)
	require.NoError(t, err)
	repo.movements[sess.ID] = []Movement{
		{IDCaja: sess.ID, Tipo: TipoIngreso, Monto: 25, Descripcion: "Venta #1"},
	}

	got, movements, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Len(t, movements, 1)
	require.Equal(t, TipoIngreso, movements[0].Tipo)
}
