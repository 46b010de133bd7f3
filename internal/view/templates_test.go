package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderStatusWritesLayoutAndFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.RenderStatus(rr, http.StatusNotFound, "pages/error.html", TemplateData{
		Title:       "Not found",
		CurrentPath: "/audit",
		Staff:       "Ana",
		Flash:       &shared.FlashMessage{Kind: "success", Message: "Saved."},
		Data:        map[string]any{"Message": "Product 999 not found."},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	require.Contains(t, body, "Product 999 not found.")
	require.Contains(t, body, `<div class="flash flash-success" role="status">Saved.</div>`)
	require.Contains(t, body, `<a href="/audit" class="active">Audit Log</a>`)
	require.Contains(t, body, "Staff: Ana")
}

func TestRenderUnknownTemplateLeavesResponseUntouched(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.Error(t, engine.Render(rr, "pages/missing.html", TemplateData{}))
	require.Empty(t, rr.Body.String())
	require.Empty(t, rr.Header().Get("Content-Type"))
}

func TestFuncMapHelpers(t *testing.T) {
	fns := funcMap()

	dict := fns["dict"].(func(...any) (map[string]any, error))
	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
	_, err = dict("odd")
	require.Error(t, err)
	_, err = dict(1, 2)
	require.Error(t, err)

	active := fns["active"].(func(string, string) bool)
	require.True(t, active("/", "/"))
	require.False(t, active("/sales", "/"))
	require.True(t, active("/sales/history", "/sales"))

	price := fns["formatPrice"].(func(string) string)
	require.Equal(t, "$120.00", price("120"))
}
