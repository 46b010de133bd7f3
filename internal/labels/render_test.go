package labels

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/report"
)

type fakePDF struct {
	calls int
	html  string
	opts  report.PageOptions
	err   error
}

func (f *fakePDF) RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error) {
	f.calls++
	f.html = html
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func frameItem(barcode string) inventory.Item {
	return inventory.Item{
		Barcode:      barcode,
		FrameCode:    "RAY000001",
		Quantity:     2,
		Manufacturer: "Ray-Ban",
		Model:        "RB2140",
		Colour:       "Black",
		Size:         "50-22",
		RRP:          "120",
	}
}

func newTestRenderer(t *testing.T, pdf PDFConverter) *Renderer {
	t.Helper()
	r, err := NewRenderer(pdf)
	require.NoError(t, err)
	return r
}

func TestBuildFollowsFieldOrder(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.FieldOrder = []string{"MODEL", "BARCODE", "RRP", "FRAMENUM"}

	labels, problems := newTestRenderer(t, nil).Build([]inventory.Item{frameItem("42")}, tpl)
	require.Empty(t, problems)
	require.Len(t, labels, 1)

	label := labels[0]
	require.Equal(t, "42", label.Barcode)
	require.NotEmpty(t, label.Image)
	require.True(t, label.HasPrice)
	require.Equal(t, "$120.00", label.Price)
	require.Equal(t, []Detail{{Label: "Model", Value: "RB2140"}, {Label: "Framecode", Value: "RAY000001"}}, label.Details)
}

func TestBuildKeepsLabelWhenBarcodeCannotRender(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.BarcodeType = string(EAN13)

	labels, problems := newTestRenderer(t, nil).Build([]inventory.Item{frameItem("NOT-DIGITS"), frameItem("400638133393")}, tpl)
	require.Len(t, labels, 2)
	require.Len(t, problems, 1)

	var renderErr *BarcodeRenderError
	require.True(t, errors.As(problems[0], &renderErr))
	require.Equal(t, "NOT-DIGITS", renderErr.Value)
	require.Empty(t, labels[0].Image)
	require.Equal(t, "$120.00", labels[0].Price)
	require.NotEmpty(t, labels[1].Image)
}

func TestPrintPage(t *testing.T) {
	r := newTestRenderer(t, nil)

	page, problems, err := r.PrintPage([]inventory.Item{frameItem("42")}, DefaultTemplate(), true)
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Contains(t, page, "print-label-block")
	require.Contains(t, page, "window.print()")
	require.Contains(t, page, "$120.00")
	require.Contains(t, page, "Inc GST")
	require.Contains(t, page, "flex-direction:row")

	portrait := DefaultTemplate()
	portrait.Orientation = Portrait
	page, _, err = r.PrintPage([]inventory.Item{frameItem("42")}, portrait, false)
	require.NoError(t, err)
	require.NotContains(t, page, "window.print()")
	require.Contains(t, page, "flex-direction:column")

	_, _, err = r.PrintPage(nil, DefaultTemplate(), false)
	require.ErrorIs(t, err, ErrNoItems)
}

func TestPDFUsesLabelSizedPaper(t *testing.T) {
	pdf := &fakePDF{}
	r := newTestRenderer(t, pdf)

	data, problems, err := r.PDF(context.Background(), []inventory.Item{frameItem("42")}, DefaultTemplate())
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Equal(t, "%PDF-1.7 fake", string(data))
	require.Equal(t, 1, pdf.calls)
	require.NotContains(t, pdf.html, "window.print()")
	require.Equal(t, PageSetup(DefaultTemplate()), pdf.opts)

	pdf.err = errors.New("gotenberg down")
	_, _, err = r.PDF(context.Background(), []inventory.Item{frameItem("42")}, DefaultTemplate())
	require.ErrorContains(t, err, "gotenberg down")

	_, _, err = newTestRenderer(t, nil).PDF(context.Background(), []inventory.Item{frameItem("42")}, DefaultTemplate())
	require.Error(t, err)
}

func TestPageSetup(t *testing.T) {
	tpl := DefaultTemplate()
	landscape := PageSetup(tpl)
	require.InDelta(t, 300.0/72, landscape.PaperWidth, 1e-9)
	require.InDelta(t, 150.0/72, landscape.PaperHeight, 1e-9)

	tpl.Orientation = Portrait
	portrait := PageSetup(tpl)
	require.InDelta(t, 150.0/72, portrait.PaperWidth, 1e-9)
	require.InDelta(t, 300.0/72, portrait.PaperHeight, 1e-9)

	tpl.Orientation = Landscape
	tpl.Width, tpl.Height = 150, 300
	rotated := PageSetup(tpl)
	require.InDelta(t, 300.0/72, rotated.PaperWidth, 1e-9)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "Barcode(42).pdf", FileName([]inventory.Item{frameItem("42.0")}))
	require.Equal(t, "Barcode(batch).pdf", FileName([]inventory.Item{frameItem("1"), frameItem("2")}))
}
