package labels

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/view"
)

func newLabelsRouter(t *testing.T, pdf PDFConverter, cfg Config) (http.Handler, *Service) {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	svc := newTestService(t, pdf, cfg)
	h := NewHandler(slog.Default(), svc, templates, nil)
	r := chi.NewRouter()
	r.Route("/labels", h.MountRoutes)
	r.Get("/inventory/barcode.png", h.BarcodePNG)
	return r, svc
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDesignerRendersCatalogAndPreview(t *testing.T) {
	router, _ := newLabelsRouter(t, nil, Config{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/labels?barcode=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "1 - RB2140")
	require.Contains(t, body, "3 - RB2140")
	require.Contains(t, body, "data:image/png;base64,")
}

func TestDesignerRejectsOutOfRangeSettings(t *testing.T) {
	router, _ := newLabelsRouter(t, nil, Config{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/labels?barcode=1&width=5000", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Template settings are invalid")
}

func TestHandlerPrintPage(t *testing.T) {
	router, _ := newLabelsRouter(t, nil, Config{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/labels/print?barcode=1,2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "window.print()")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/labels/print?barcode=1&width=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/labels/print", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/labels/print?barcode=99", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandlerExportPDFInline(t *testing.T) {
	pdf := &fakePDF{}
	router, _ := newLabelsRouter(t, pdf, Config{})

	rec := serve(router, postForm("/labels/pdf", url.Values{"barcode": {"1"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Barcode(1).pdf")
	require.Equal(t, "%PDF-1.7 fake", rec.Body.String())
	require.Equal(t, 1, pdf.calls)
}

func TestExportPDFQueuedRedirects(t *testing.T) {
	queue := &recordingEnqueuer{}
	router, _ := newLabelsRouter(t, &fakePDF{}, Config{Enqueuer: queue, AsyncThreshold: 1})

	rec := serve(router, postForm("/labels/pdf", url.Values{"barcode": {"1,2"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/labels?"))
	require.Len(t, queue.payloads, 1)
	require.Equal(t, []string{"1", "2"}, queue.payloads[0].Barcodes)
}

func TestExportPDFWithoutSelectionRedirects(t *testing.T) {
	pdf := &fakePDF{}
	router, _ := newLabelsRouter(t, pdf, Config{})

	rec := serve(router, postForm("/labels/pdf", url.Values{}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Zero(t, pdf.calls)
}

func TestHandlerWithoutLoggerLogsToDefault(t *testing.T) {
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, newTestService(t, &fakePDF{}, Config{}), templates, nil)
	r := chi.NewRouter()
	r.Route("/labels", h.MountRoutes)

	rec := serve(r, postForm("/labels/pdf", url.Values{}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSaveAndDeleteTemplate(t *testing.T) {
	router, svc := newLabelsRouter(t, nil, Config{})

	form := url.Values{"name": {"Small"}, "width": {"200"}, "height": {"100"}, "fields_sent": {"1"}, "field": {"BARCODE", "RRP"}}
	rec := serve(router, postForm("/labels/templates", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "template=Small")

	saved, err := svc.Templates().Get(t.Context(), "Small")
	require.NoError(t, err)
	require.Equal(t, 200, saved.Width)
	require.Equal(t, []string{"BARCODE", "RRP"}, saved.FieldOrder)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/labels?template=Small&barcode=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, postForm("/labels/templates/delete", url.Values{"name": {"Small"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = svc.Templates().Get(t.Context(), "Small")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestDownloadStoredFile(t *testing.T) {
	dir := t.TempDir()
	router, _ := newLabelsRouter(t, nil, Config{StorageDir: dir})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/labels/files/missing.pdf", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels-1.pdf"), []byte("%PDF"), 0o644))
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/labels/files/labels-1.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "%PDF", rec.Body.String())
}

func TestBarcodePNG(t *testing.T) {
	router, _ := newLabelsRouter(t, nil, Config{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/inventory/barcode.png?value=12345", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/inventory/barcode.png?value=abc&type=ean13", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
