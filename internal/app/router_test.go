package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/audit"
	audithttp "github.com/Christophertabanag/Inventory-System/internal/audit/http"
	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/labels"
	"github.com/Christophertabanag/Inventory-System/internal/observability"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/stocktake"
	"github.com/Christophertabanag/Inventory-System/internal/view"
	_ "github.com/Christophertabanag/Inventory-System/testing"
)

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testApp struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inventory.csv"), []byte(
		"BARCODE,FRAMENUM,QUANTITY,MANUFACTURER,MODEL,RRP\n"+
			"1001,RAY000001,2,Ray-Ban,RB2140,120\n"), 0o644))

	cfg := &Config{
		AppEnv:              "test",
		AppRequestTimeout:   5 * time.Second,
		InventoryDir:        dir,
		InventoryFile:       "inventory.csv",
		ArchiveFile:         "archive_inventory.xlsx",
		SalesFile:           "sales.xlsx",
		AuditFile:           "auditlog.xlsx",
		LabelTemplateFile:   "templates.json",
		LabelStorageDir:     filepath.Join(dir, "labels"),
		LabelAsyncThreshold: 50,
		BarcodeMin:          1,
		BarcodeMax:          11000,
		BarcodeMaxAttempts:  100,
		SessionTTL:          time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ledger, err := NewLedger(cfg, logger, LedgerDeps{Metrics: metrics})
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	renderer, err := labels.NewRenderer(nil)
	require.NoError(t, err)

	sessions := shared.NewSessionManager(client, "framestock_session", "session-secret", cfg.SessionTTL, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	idem := shared.NewIdempotencyStore(client, time.Hour)
	labelService := labels.NewService(ledger, labels.NewTemplateStore(cfg.LabelTemplatePath()), renderer, labels.Config{
		Metrics:    metrics,
		Logger:     logger,
		StorageDir: cfg.LabelStorageDir,
	})
	stocktakeService := stocktake.NewService(ledger, metrics, logger)

	handler := NewRouter(RouterParams{
		Logger:              logger,
		Config:              cfg,
		Templates:           templates,
		SessionManager:      sessions,
		CSRFManager:         csrf,
		InventoryHandler:    inventory.NewHandler(logger, ledger, templates, csrf, sessions),
		InventoryAPIHandler: inventory.NewAPIHandler(logger, ledger, idem),
		SalesHandler:        inventory.NewSalesHandler(logger, ledger, templates, csrf, idem),
		StocktakeHandler:    stocktake.NewHandler(logger, stocktakeService, templates, csrf),
		StocktakeAPIHandler: stocktake.NewAPIHandler(logger, stocktakeService),
		LabelsHandler:       labels.NewHandler(logger, labelService, templates, csrf),
		AuditHandler:        audithttp.NewHandler(logger, audit.NewService(ledger), templates, audit.NewExporter(), csrf),
		Metrics:             metrics,
	})
	return &testApp{t: t, handler: handler}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	a.t.Helper()
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		a.cookies = cookies
	}
	return rec
}

func (a *testApp) get(target string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (a *testApp) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *testApp) postJSON(target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *testApp) csrfToken() string {
	a.t.Helper()
	rec := a.get("/")
	require.Equal(a.t, http.StatusOK, rec.Code)
	m := csrfInput.FindStringSubmatch(rec.Body.String())
	require.Len(a.t, m, 2, "csrf token not rendered")
	return m[1]
}

func TestRouterHealthAndStatic(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = app.get("/static/css/app.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = app.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "RB2140")
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterRejectsFormWithoutCSRFToken(t *testing.T) {
	app := newTestApp(t)
	app.get("/")

	rec := app.postForm("/inventory/items", url.Values{"BARCODE": {"1002"}, "FRAMENUM": {"RAY000002"}, "QUANTITY": {"1"}})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.get("/api/v1/items")
	require.Contains(t, rec.Body.String(), `"total":1`)
}

func TestRouterAddSellAndAudit(t *testing.T) {
	app := newTestApp(t)
	token := app.csrfToken()

	rec := app.postForm("/inventory/items", url.Values{
		shared.CSRFFormField: {token},
		"BARCODE":            {"1002"},
		"FRAMENUM":           {"RAY000002"},
		"QUANTITY":           {"1"},
		"MODEL":              {"RB3025"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/", rec.Header().Get("Location"))

	rec = app.get("/")
	require.Contains(t, rec.Body.String(), "Product 1002 added.")

	rec = app.postJSON("/api/v1/sales", `{"barcode":"1001","qty":2,"staff":"Ana"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale struct {
		QtyAfter int  `json:"qty_after"`
		Archived bool `json:"archived"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	require.Zero(t, sale.QtyAfter)
	require.True(t, sale.Archived)

	rec = app.get("/api/v1/items")
	require.Contains(t, rec.Body.String(), `"total":1`)

	rec = app.get("/audit?action=Sale")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "1001")

	rec = app.get("/inventory/barcode.png?value=1001")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestRouterMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.postJSON("/api/v1/sales", `{"barcode":"1001","qty":1}`)

	rec := app.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `framestock_ledger_operations_total{op="sell",result="ok"} 1`)
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
