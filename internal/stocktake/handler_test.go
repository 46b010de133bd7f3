package stocktake

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newAPIRouter() http.Handler {
	r := chi.NewRouter()
	NewAPIHandler(slogDiscard(), NewService(recordedSource(), nil, slogDiscard())).MountRoutes(r)
	return r
}

func TestAPIReconcileJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/stocktake", strings.NewReader(`{"scanned":["1","2","5"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newAPIRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Matched      []string `json:"matched"`
		Missing      []string `json:"missing"`
		Unexpected   []string `json:"unexpected"`
		MissingItems []struct {
			Barcode   string `json:"barcode"`
			FrameCode string `json:"frame_code"`
		} `json:"missing_items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"1", "2"}, body.Matched)
	require.Equal(t, []string{"3"}, body.Missing)
	require.Equal(t, []string{"5"}, body.Unexpected)
	require.Equal(t, "OAK000001", body.MissingItems[0].FrameCode)
}

func TestAPIReconcileMultipartNeedsColumn(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("scan", "scan.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("EAN,UPC\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/stocktake", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	newAPIRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestAPIReconcileRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/stocktake", strings.NewReader(`{"codes":["1"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newAPIRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
