package trash

import (
	"context"
	"fmt"

	"github.com/bodega-pos/bodega-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context) ([]Entry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service restores and purges archived records.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	restorers map[Table]Restorer
}

// NewService builds Service with the full restorer registry.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, restorers: defaultRestorers()}
}

// List returns all envelopes with display names reconstructed from their
// snapshots.
func (s *Service) List(ctx context.Context) ([]ListItem, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		item := ListItem{Entry: e, Nombre: string(e.Tabla)}
		if restorer, ok := s.restorers[e.Tabla]; ok {
			item.Nombre = restorer.DisplayName(e.Contenido)
		}
		items = append(items, item)
	}
	return items, nil
}

// Restore reverses the soft-delete recorded by the envelope and removes it.
// The reversal and the envelope removal are one transaction.
func (s *Service) Restore(ctx context.Context, entryID int64) error {
	return s.dispatch(ctx, entryID, "papelera:restaurar", func(r Restorer) func(context.Context, TxRepository, Entry) error {
		return r.Restore
	})
}

// Purge hard-deletes the original record and removes the envelope. No stock
// replay happens: the record and any quantity it represented are gone.
func (s *Service) Purge(ctx context.Context, entryID int64) error {
	return s.dispatch(ctx, entryID, "papelera:purgar", func(r Restorer) func(context.Context, TxRepository, Entry) error {
		return r.Purge
	})
}

func (s *Service) dispatch(ctx context.Context, entryID int64, action string, op func(Restorer) func(context.Context, TxRepository, Entry) error) error {
	var tabla Table
	var recordID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		tabla = entry.Tabla
		recordID = entry.RecordID

		restorer, ok := s.restorers[entry.Tabla]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedTable, entry.Tabla)
		}
		if err := op(restorer)(ctx, tx, entry); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, entryID)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx),
			Action:   action,
			Entity:   string(tabla),
			EntityID: fmt.Sprintf("%d", recordID),
			Meta:     map[string]any{"id_papelera": entryID},
		})
	}
	return nil
}
