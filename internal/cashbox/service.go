package cashbox

import (
	"context"
	"fmt"

	"github.com/bodega-pos/bodega-pos/internal/platform/httpx"
	"github.com/bodega-pos/bodega-pos/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Open(ctx context.Context, userID int64, montoInicial float64) (Session, error)
	Get(ctx context.Context, id int64) (Session, error)
	Close(ctx context.Context, id int64, montoFinal float64) (Session, error)
	ListMovements(ctx context.Context, sessionID int64) ([]Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates caja operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Open starts a session with an initial float.
func (s *Service) Open(ctx context.Context, userID int64, montoInicial float64) (Session, error) {
	if userID == 0 {
		return Session{}, fmt.Errorf("id_usuario es obligatorio: %w", httpx.ErrValidation)
	}
	if montoInicial < 0 {
		return Session{}, fmt.Errorf("monto_inicial no puede ser negativo: %w", httpx.ErrValidation)
	}
	sess, err := s.repo.Open(ctx, userID, montoInicial)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, "caja:abrir", sess.ID, map[string]any{"monto_inicial": montoInicial})
	return sess, nil
}

// Get returns a session with its movements.
func (s *Service) Get(ctx context.Context, id int64) (Session, []Movement, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	movements, err := s.repo.ListMovements(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	return sess, movements, nil
}

// Close reconciles and closes the session. Closing twice fails with
// ErrSessionClosed.
func (s *Service) Close(ctx context.Context, id int64, montoFinal float64) (Session, error) {
	if montoFinal < 0 {
		return Session{}, fmt.Errorf("monto_final no puede ser negativo: %w", httpx.ErrValidation)
	}
	sess, err := s.repo.Close(ctx, id, montoFinal)
	if err != nil {
		return Session{}, err
	}
	meta := map[string]any{"monto_final": montoFinal}
	if sess.Diferencia != nil {
		meta["diferencia"] = *sess.Diferencia
	}
	s.record(ctx, "caja:cerrar", id, meta)
	return sess, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "caja",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
