package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	jobmetrics "github.com/Christophertabanag/Inventory-System/internal/jobs"
	"github.com/Christophertabanag/Inventory-System/jobs"
)

func TestSnapshotWritesAllSheets(t *testing.T) {
	repo := newMemoryRepo(frame("1", "F1", 3), frame("2", "F2", 1))
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	_, err := svc.Sell(ctx, sellInput("2", 1))
	require.NoError(t, err)

	dir := t.TempDir()
	registry := prometheus.NewRegistry()
	job := NewSnapshotJob(svc, dir, nil, jobmetrics.NewMetrics(registry))

	path, err := job.Run(ctx, fixedNow)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snapshot-20240503.xlsx"), path)

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = book.Close() }()
	require.Equal(t, []string{"Inventory", "Archive", "Sales", "Audit"}, book.GetSheetList())

	rows, err := book.GetRows("Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	rows, err = book.GetRows("Archive")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	rows, err = book.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	count, err := testutil.GatherAndCount(registry, "framestock_job_rows_total")
	require.NoError(t, err)
	require.Positive(t, count)
}

func TestSnapshotHandleUsesScheduledDay(t *testing.T) {
	dir := t.TempDir()
	job := NewSnapshotJob(newTestService(newMemoryRepo(frame("1", "F1", 3)), nil, nil), dir, nil, nil)

	task, err := jobs.NewInventorySnapshotTask(fixedNow)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	_, err = os.Stat(filepath.Join(dir, SnapshotName(fixedNow)))
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskInventorySnapshot, []byte("nope")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSnapshotRequiresDirectory(t *testing.T) {
	job := NewSnapshotJob(newTestService(newMemoryRepo(), nil, nil), "", nil, nil)
	_, err := job.Run(context.Background(), fixedNow)
	require.Error(t, err)
}
