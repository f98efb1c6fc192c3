package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/bodega-pos/bodega-pos/internal/catalog"
	"github.com/bodega-pos/bodega-pos/internal/shrinkage"
)

// idleRepo is a shrinkage repository with no eligible products, so a scan
// commits without touching anything.
type idleRepo struct{}

func (idleRepo) WithTx(ctx context.Context, fn func(context.Context, shrinkage.TxRepository) error) error {
	return nil
}

func (idleRepo) ListRecords(ctx context.Context) ([]shrinkage.Record, error) { return nil, nil }

func (idleRepo) ListLowStock(ctx context.Context) ([]catalog.Product, error) { return nil, nil }

func (idleRepo) ListChangeDue(ctx context.Context, deadline time.Time) ([]catalog.Product, error) {
	return nil, nil
}

var jobIDPattern = regexp.MustCompile(`job_id=(\S+)`)

func TestScanTaskCarriesUniqueJobID(t *testing.T) {
	a, err := NewShrinkageScanTask(time.Now().UTC())
	require.NoError(t, err)
	b, err := NewShrinkageScanTask(time.Now().UTC())
	require.NoError(t, err)

	var pa, pb ShrinkageScanPayload
	require.NoError(t, json.Unmarshal(a.Payload(), &pa))
	require.NoError(t, json.Unmarshal(b.Payload(), &pb))
	require.NotEmpty(t, pa.JobID)
	require.NotEqual(t, pa.JobID, pb.JobID)
}

func TestCronTaskGetsFreshJobIDPerRun(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := shrinkage.NewService(idleRepo{}, nil, logger)
	handler := ShrinkageScanHandler(svc, logger)

	task, err := NewShrinkageCronTask()
	require.NoError(t, err)

	var payload ShrinkageScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Empty(t, payload.JobID)

	// The scheduler re-enqueues the same payload each firing; each execution
	// must still log under its own run id.
	require.NoError(t, handler(context.Background(), task))
	require.NoError(t, handler(context.Background(), task))

	ids := jobIDPattern.FindAllStringSubmatch(buf.String(), -1)
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0][1], ids[1][1])
}

func TestScanHandlerSkipsRetryOnBadPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := shrinkage.NewService(idleRepo{}, nil, logger)
	handler := ShrinkageScanHandler(svc, logger)

	err := handler(context.Background(), asynq.NewTask(TaskShrinkageScan, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
