package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Christophertabanag/Inventory-System/internal/jobs"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/jobs"
)

// StateSource loads the ledger tables.
type StateSource interface {
	State(ctx context.Context) (State, error)
}

// SnapshotJob copies all four tables into one dated workbook.
type SnapshotJob struct {
	source  StateSource
	dir     string
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewSnapshotJob constructs the snapshot job writing into dir.
func NewSnapshotJob(source StateSource, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotJob{source: source, dir: dir, logger: logger, metrics: metrics, now: time.Now}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *SnapshotJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.InventorySnapshotPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload.ScheduledFor)
	return err
}

// Run writes snapshot-YYYYMMDD.xlsx for the given day, or today when at is
// zero, and returns its path. A second run on the same day replaces it.
func (j *SnapshotJob) Run(ctx context.Context, at time.Time) (string, error) {
	if j.dir == "" {
		return "", errors.New("inventory: snapshot directory not configured")
	}
	if at.IsZero() {
		at = j.now()
	}
	tracker := j.metrics.Track(jobs.TaskInventorySnapshot)
	st, err := j.source.State(ctx)
	if err != nil {
		return "", tracker.End(fmt.Errorf("inventory: snapshot load: %w", err))
	}
	sheets := []records.Sheet{
		{Name: "Inventory", Table: ItemsToTable(st.Inventory, nil)},
		{Name: "Archive", Table: ItemsToTable(st.Archive, nil)},
		{Name: "Sales", Table: SalesToTable(st.Sales)},
		{Name: "Audit", Table: AuditToTable(st.Audit)},
	}
	var buf bytes.Buffer
	if err := records.WriteWorkbook(&buf, sheets); err != nil {
		return "", tracker.End(fmt.Errorf("inventory: snapshot encode: %w", err))
	}
	path := filepath.Join(j.dir, SnapshotName(at))
	if err := records.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", tracker.End(err)
	}
	for _, sheet := range sheets {
		j.metrics.AddRows(jobs.TaskInventorySnapshot, sheet.Name, sheet.Table.Len())
	}
	j.logger.Info("inventory snapshot written",
		slog.String("path", path),
		slog.Int("inventory", len(st.Inventory)),
		slog.Int("archive", len(st.Archive)),
		slog.Int("sales", len(st.Sales)),
		slog.Int("audit", len(st.Audit)),
	)
	return path, tracker.End(nil)
}

// SnapshotName returns the workbook name for a day.
func SnapshotName(at time.Time) string {
	return "snapshot-" + at.Format("20060102") + ".xlsx"
}
