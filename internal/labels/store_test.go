package labels

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewTemplateStore(filepath.Join(t.TempDir(), "label_templates.json"))

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	small := DefaultTemplate()
	small.Width = 200
	require.NoError(t, store.Save(ctx, " Small ", small))
	require.NoError(t, store.Save(ctx, "Default", DefaultTemplate()))

	names, err = store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Default", "Small"}, names)

	got, err := store.Get(ctx, "Small")
	require.NoError(t, err)
	require.Equal(t, 200, got.Width)

	require.NoError(t, store.Delete(ctx, "Small"))
	_, err = store.Get(ctx, "Small")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.ErrorIs(t, store.Delete(ctx, "Small"), ErrTemplateNotFound)
}

func TestTemplateStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := NewTemplateStore(filepath.Join(t.TempDir(), "label_templates.json"))

	require.ErrorIs(t, store.Save(ctx, "  ", DefaultTemplate()), ErrTemplateName)

	bad := DefaultTemplate()
	bad.FontSize = 99
	require.ErrorIs(t, store.Save(ctx, "Huge", bad), ErrInvalidTemplate)

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestTemplateStoreReadsLegacyFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label_templates.json")
	legacy := `{"Old":{"width":300,"height":150,"font_size":16,"barcode_type":"code128","barcode_width":220,"margin":8,"orientation":"Landscape","inc_gst_text":"Inc GST","field_order":["FRAME NO.","F COLOUR"]}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := NewTemplateStore(path).Get(context.Background(), "Old")
	require.NoError(t, err)
	require.Equal(t, []string{"FRAMENUM", "FCOLOUR"}, got.FieldOrder)
}
