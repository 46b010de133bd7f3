package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/shared"
)

func newAPIRouter(t *testing.T, repo *memoryRepo, idem *shared.IdempotencyStore) http.Handler {
	t.Helper()
	svc := newTestService(repo, &recordingAudit{}, &recordingMetrics{})
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		NewAPIHandler(slog.Default(), svc, idem).MountRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPICreateItem(t *testing.T) {
	repo := newMemoryRepo(frame("1001", "RAY000001", 2))
	h := newAPIRouter(t, repo, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/items", `{"barcode":"1002","frame_code":"RAY000002","quantity":1,"manufacturer":"Ray-Ban"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "/api/v1/items/1002", rr.Header().Get("Location"))

	var dto ItemDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	require.Equal(t, "1002", dto.Barcode)
	require.Equal(t, 1, dto.Quantity)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/items", `{"barcode":"1001","frame_code":"RAY000009","quantity":1}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "application/problem+json")
}

func TestAPIListAndLookup(t *testing.T) {
	repo := newMemoryRepo(frame("1001", "RAY000001", 2), frame("2002", "OAK000001", 1))
	h := newAPIRouter(t, repo, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/v1/items?q=OAK", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []ItemDTO `json:"items"`
		Total int       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	require.Equal(t, "2002", list.Items[0].Barcode)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/lookup/1001", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var lk lookupResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lk))
	require.Equal(t, SourceInventory, lk.Source)

	rr = doJSON(t, h, http.MethodGet, "/api/v1/lookup/999", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPISaleRejections(t *testing.T) {
	repo := newMemoryRepo(frame("1001", "RAY000001", 2))
	h := newAPIRouter(t, repo, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/sales", `{"barcode":"1001","qty":5,"price":"120"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/sales", `{"barcode":"1001","qty":1,"price":"120","staff":"Ana"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var tx transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tx))
	require.Equal(t, 2, tx.QtyBefore)
	require.Equal(t, 1, tx.QtyAfter)
	require.False(t, tx.Archived)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/sales", `{"barcode":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIIdempotentSale(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	idem := shared.NewIdempotencyStore(client, time.Hour)

	repo := newMemoryRepo(frame("1001", "RAY000001", 3))
	h := newAPIRouter(t, repo, idem)

	body := `{"barcode":"1001","qty":1,"price":"120"}`
	rr := doJSON(t, h, http.MethodPost, "/api/v1/sales", body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/v1/sales", body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, 2, repo.state.Inventory[0].Quantity)

	// A rejected request releases its key.
	rr = doJSON(t, h, http.MethodPost, "/api/v1/sales", `{"barcode":"1001","qty":9}`, "Idempotency-Key", "def")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = doJSON(t, h, http.MethodPost, "/api/v1/sales", body, "Idempotency-Key", "def")
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestAPINextBarcode(t *testing.T) {
	h := newAPIRouter(t, newMemoryRepo(), nil)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/codes/barcode", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out["barcode"])
}
