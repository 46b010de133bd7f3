package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/jobs"
)

// DefaultAsyncThreshold is the batch size above which PDFs are queued.
const DefaultAsyncThreshold = 50

// InventorySource supplies the item tables.
type InventorySource interface {
	State(ctx context.Context) (inventory.State, error)
}

// Enqueuer queues label batches for the worker.
type Enqueuer interface {
	EnqueueLabelRender(ctx context.Context, payload jobs.LabelRenderPayload) (*asynq.TaskInfo, error)
}

// MetricsPort counts rendered labels.
type MetricsPort interface {
	ObserveLabels(format string, count int)
}

// Config groups Service settings.
type Config struct {
	Enqueuer       Enqueuer
	Metrics        MetricsPort
	Logger         *slog.Logger
	StorageDir     string
	AsyncThreshold int
	Clock          func() time.Time
}

// Service selects items and produces label output.
type Service struct {
	source    InventorySource
	store     *TemplateStore
	renderer  *Renderer
	enqueuer  Enqueuer
	metrics   MetricsPort
	logger    *slog.Logger
	dir       string
	threshold int
	now       func() time.Time
}

// NewService constructs Service.
func NewService(source InventorySource, store *TemplateStore, renderer *Renderer, cfg Config) *Service {
	svc := &Service{
		source:    source,
		store:     store,
		renderer:  renderer,
		enqueuer:  cfg.Enqueuer,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		dir:       cfg.StorageDir,
		threshold: cfg.AsyncThreshold,
		now:       cfg.Clock,
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.threshold <= 0 {
		svc.threshold = DefaultAsyncThreshold
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Templates exposes the template store.
func (s *Service) Templates() *TemplateStore {
	return s.store
}

// Catalog returns every item that can be labelled, inventory first.
func (s *Service) Catalog(ctx context.Context) ([]inventory.Item, error) {
	st, err := s.source.State(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Item, 0, len(st.Inventory)+len(st.Archive))
	out = append(out, st.Inventory...)
	return append(out, st.Archive...), nil
}

// Items resolves barcodes in the given order. Unknown barcodes fail.
func (s *Service) Items(ctx context.Context, barcodes []string) ([]inventory.Item, error) {
	st, err := s.source.State(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Item, 0, len(barcodes))
	for _, code := range barcodes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		item, _, ok := inventory.Find(st, code)
		if !ok {
			return nil, fmt.Errorf("%w: %s", inventory.ErrNotFound, code)
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	return out, nil
}

// Preview renders label blocks for the designer page.
func (s *Service) Preview(ctx context.Context, barcodes []string, t Template) (string, []error, error) {
	items, err := s.Items(ctx, barcodes)
	if err != nil {
		return "", nil, err
	}
	html, problems := s.renderer.HTML(items, t)
	return string(html), problems, nil
}

// PrintPage renders the printable page.
func (s *Service) PrintPage(ctx context.Context, barcodes []string, t Template) (string, []error, error) {
	items, err := s.Items(ctx, barcodes)
	if err != nil {
		return "", nil, err
	}
	page, problems, err := s.renderer.PrintPage(items, t, true)
	if err == nil {
		s.observe("html", len(items))
	}
	return page, problems, err
}

// Export is the outcome of a PDF request. Either Data is set or the batch
// was queued under TaskID.
type Export struct {
	FileName string
	Data     []byte
	TaskID   string
	Problems []error
}

// Queued reports whether the batch went to the worker.
func (e Export) Queued() bool {
	return e.TaskID != ""
}

// ExportPDF renders the labels, queueing batches over the async threshold
// when a queue is configured.
func (s *Service) ExportPDF(ctx context.Context, barcodes []string, t Template, staff string) (Export, error) {
	items, err := s.Items(ctx, barcodes)
	if err != nil {
		return Export{}, err
	}
	name := FileName(items)
	if s.enqueuer != nil && len(items) > s.threshold {
		layout, err := json.Marshal(t)
		if err != nil {
			return Export{}, err
		}
		output := fmt.Sprintf("labels-%s.pdf", s.now().Format("20060102-150405"))
		info, err := s.enqueuer.EnqueueLabelRender(ctx, jobs.LabelRenderPayload{
			Barcodes: barcodes,
			Template: layout,
			Output:   output,
			Staff:    staff,
		})
		if err != nil {
			return Export{}, fmt.Errorf("labels: enqueue batch: %w", err)
		}
		s.logger.Info("label batch queued", slog.Int("labels", len(items)), slog.String("task_id", info.ID), slog.String("output", output))
		return Export{FileName: output, TaskID: info.ID}, nil
	}
	data, problems, err := s.renderer.PDF(ctx, items, t)
	if err != nil {
		return Export{}, err
	}
	s.observe("pdf", len(items))
	return Export{FileName: name, Data: data, Problems: problems}, nil
}

// RenderToFile renders a batch and writes it to the storage directory,
// returning the file path.
func (s *Service) RenderToFile(ctx context.Context, barcodes []string, t Template, output string) (string, error) {
	if s.dir == "" {
		return "", errors.New("labels: storage directory not configured")
	}
	items, err := s.Items(ctx, barcodes)
	if err != nil {
		return "", err
	}
	data, problems, err := s.renderer.PDF(ctx, items, t)
	if err != nil {
		return "", err
	}
	for _, p := range problems {
		s.logger.Warn("label barcode skipped", slog.Any("error", p))
	}
	path := filepath.Join(s.dir, filepath.Base(output))
	if err := records.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	s.observe("pdf", len(items))
	return path, nil
}

// StoredFile opens a rendered batch by name.
func (s *Service) StoredFile(name string) (string, error) {
	if s.dir == "" {
		return "", os.ErrNotExist
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) observe(format string, count int) {
	if s.metrics != nil {
		s.metrics.ObserveLabels(format, count)
	}
}
