package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLabelsRender renders a large label batch to a PDF file.
	TaskLabelsRender = "labels:render"
	// TaskInventorySnapshot copies the ledger tables into a dated workbook.
	TaskInventorySnapshot = "inventory:snapshot"
	// SnapshotCron runs the snapshot nightly.
	SnapshotCron = "0 2 * * *"
)

// LabelRenderPayload describes one queued label batch.
type LabelRenderPayload struct {
	Barcodes []string `json:"barcodes"`
	// Template holds the layout as JSON so unsaved designer settings survive.
	Template json.RawMessage `json:"template"`
	Output   string          `json:"output"`
	Staff    string          `json:"staff,omitempty"`
}

// NewLabelRenderTask constructs an Asynq task for a label batch.
func NewLabelRenderTask(payload LabelRenderPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLabelsRender, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// InventorySnapshotPayload carries scheduling metadata.
type InventorySnapshotPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewInventorySnapshotTask constructs an Asynq task for the nightly snapshot.
func NewInventorySnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(InventorySnapshotPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventorySnapshot, body, asynq.Queue(QueueDefault)), nil
}
