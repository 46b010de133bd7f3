package labels

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Christophertabanag/Inventory-System/internal/jobs"
	"github.com/Christophertabanag/Inventory-System/jobs"
)

// RenderJob processes queued label batches.
type RenderJob struct {
	service *Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRenderJob constructs a job handler.
func NewRenderJob(service *Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *RenderJob {
	return &RenderJob{service: service, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *RenderJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.LabelRenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Barcodes) == 0 || payload.Output == "" {
		return asynq.SkipRetry
	}
	t := DefaultTemplate()
	if len(payload.Template) > 0 {
		if err := json.Unmarshal(payload.Template, &t); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics.Track(jobs.TaskLabelsRender)
	path, err := j.service.RenderToFile(ctx, payload.Barcodes, t.Normalize(), payload.Output)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("label batch", slog.String("output", payload.Output), slog.Any("error", err))
		}
		return tracker.End(err)
	}
	j.metrics.AddRows(jobs.TaskLabelsRender, "labels", len(payload.Barcodes))
	if j.logger != nil {
		j.logger.Info("label batch rendered", slog.String("path", path), slog.Int("labels", len(payload.Barcodes)), slog.String("staff", payload.Staff))
	}
	return tracker.End(nil)
}
