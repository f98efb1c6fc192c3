package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/bodega-pos/bodega-pos/internal/shrinkage"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskShrinkageScan triggers the automatic state-change scan over
	// flagged products.
	TaskShrinkageScan = "shrinkage:process"
)

// ShrinkageScanPayload carries scheduling metadata for a scan run.
type ShrinkageScanPayload struct {
	JobID        string    `json:"job_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewShrinkageScanTask constructs an on-demand Asynq task for the shrinkage
// scan with its run id baked in.
func NewShrinkageScanTask(at time.Time) (*asynq.Task, error) {
	payload := ShrinkageScanPayload{JobID: uuid.NewString(), ScheduledFor: at}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShrinkageScan, body, asynq.Queue(QueueDefault)), nil
}

// NewShrinkageCronTask builds the task the scheduler re-enqueues on every
// firing. The scheduler copies the same payload each time, so the run id is
// left empty here and assigned by the handler per execution.
func NewShrinkageCronTask() (*asynq.Task, error) {
	body, err := json.Marshal(ShrinkageScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskShrinkageScan, body, asynq.Queue(QueueDefault)), nil
}

// ShrinkageScanHandler returns the Asynq handler bound to the shrinkage
// service. The scan runs in a single transaction, so a retried task that
// finds no eligible products is a no-op.
func ShrinkageScanHandler(svc *shrinkage.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ShrinkageScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.JobID == "" {
			payload.JobID = uuid.NewString()
		}
		result, err := svc.ProcessChanges(ctx)
		if err != nil {
			logger.Error("shrinkage scan failed",
				slog.String("job_id", payload.JobID),
				slog.Any("error", err))
			return err
		}
		logger.Info("shrinkage scan done",
			slog.String("job_id", payload.JobID),
			slog.Int("procesados", result.Procesados),
			slog.Int("mermas", len(result.Mermas)),
			slog.Int("transformaciones", len(result.Transformaciones)))
		return nil
	}
}
