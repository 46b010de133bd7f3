package labels

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/jobs"
)

type staticSource struct {
	state inventory.State
	err   error
}

func (s staticSource) State(ctx context.Context) (inventory.State, error) {
	return s.state, s.err
}

type recordingEnqueuer struct {
	payloads []jobs.LabelRenderPayload
}

func (e *recordingEnqueuer) EnqueueLabelRender(ctx context.Context, payload jobs.LabelRenderPayload) (*asynq.TaskInfo, error) {
	e.payloads = append(e.payloads, payload)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

type countingMetrics map[string]int

func (m countingMetrics) ObserveLabels(format string, count int) {
	m[format] += count
}

var testNow = time.Date(2024, 5, 3, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, pdf PDFConverter, cfg Config) *Service {
	t.Helper()
	source := staticSource{state: inventory.State{
		Inventory: []inventory.Item{frameItem("1"), frameItem("2")},
		Archive:   []inventory.Item{frameItem("3")},
	}}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return testNow }
	}
	store := NewTemplateStore(filepath.Join(t.TempDir(), "label_templates.json"))
	return NewService(source, store, newTestRenderer(t, pdf), cfg)
}

func TestItemsResolvesInOrder(t *testing.T) {
	svc := newTestService(t, nil, Config{})
	ctx := context.Background()

	items, err := svc.Items(ctx, []string{"3", "1.0", " "})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "3", items[0].Barcode)
	require.Equal(t, "1", items[1].Barcode)

	_, err = svc.Items(ctx, []string{"1", "99"})
	require.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = svc.Items(ctx, nil)
	require.ErrorIs(t, err, ErrNoItems)
}

func TestCatalogListsInventoryThenArchive(t *testing.T) {
	items, err := newTestService(t, nil, Config{}).Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "3", items[2].Barcode)
}

func TestExportPDFInline(t *testing.T) {
	metrics := countingMetrics{}
	enq := &recordingEnqueuer{}
	svc := newTestService(t, &fakePDF{}, Config{Metrics: metrics, Enqueuer: enq, AsyncThreshold: 5})

	export, err := svc.ExportPDF(context.Background(), []string{"1", "2"}, DefaultTemplate(), "Ana")
	require.NoError(t, err)
	require.False(t, export.Queued())
	require.Equal(t, "Barcode(batch).pdf", export.FileName)
	require.NotEmpty(t, export.Data)
	require.Empty(t, enq.payloads)
	require.Equal(t, 2, metrics["pdf"])
}

func TestExportPDFQueuesLargeBatches(t *testing.T) {
	enq := &recordingEnqueuer{}
	pdf := &fakePDF{}
	svc := newTestService(t, pdf, Config{Enqueuer: enq, AsyncThreshold: 1})

	tpl := DefaultTemplate()
	tpl.Width = 250
	export, err := svc.ExportPDF(context.Background(), []string{"1", "2"}, tpl, "Ana")
	require.NoError(t, err)
	require.True(t, export.Queued())
	require.Equal(t, "t1", export.TaskID)
	require.Equal(t, "labels-20240503-103000.pdf", export.FileName)
	require.Zero(t, pdf.calls)

	require.Len(t, enq.payloads, 1)
	payload := enq.payloads[0]
	require.Equal(t, []string{"1", "2"}, payload.Barcodes)
	require.Equal(t, "Ana", payload.Staff)
	var decoded Template
	require.NoError(t, json.Unmarshal(payload.Template, &decoded))
	require.Equal(t, 250, decoded.Width)
}

func TestExportPDFWithoutQueueRendersInline(t *testing.T) {
	svc := newTestService(t, &fakePDF{}, Config{AsyncThreshold: 1})

	export, err := svc.ExportPDF(context.Background(), []string{"1", "2"}, DefaultTemplate(), "")
	require.NoError(t, err)
	require.False(t, export.Queued())
}

func TestRenderToFileAndStoredFile(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t, &fakePDF{}, Config{StorageDir: dir})

	path, err := svc.RenderToFile(context.Background(), []string{"1"}, DefaultTemplate(), "../labels-x.pdf")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "labels-x.pdf"), path)

	found, err := svc.StoredFile("labels-x.pdf")
	require.NoError(t, err)
	require.Equal(t, path, found)

	_, err = svc.StoredFile("missing.pdf")
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRenderJobWritesBatch(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t, &fakePDF{}, Config{StorageDir: dir})
	job := NewRenderJob(svc, nil, nil)

	layout, err := json.Marshal(DefaultTemplate())
	require.NoError(t, err)
	task, err := jobs.NewLabelRenderTask(jobs.LabelRenderPayload{Barcodes: []string{"1", "3"}, Template: layout, Output: "labels-job.pdf"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	data, err := os.ReadFile(filepath.Join(dir, "labels-job.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 fake", string(data))
}

func TestRenderJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewRenderJob(newTestService(t, &fakePDF{}, Config{}), nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskLabelsRender, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskLabelsRender, []byte(`{"barcodes":[]}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
