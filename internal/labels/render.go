package labels

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/report"
	"github.com/Christophertabanag/Inventory-System/web"
)

// pointsPerInch converts template sizes to PDF paper sizes.
const pointsPerInch = 72.0

// ErrNoItems indicates a render request without labels.
var ErrNoItems = errors.New("labels: no items selected")

// PDFConverter turns HTML into a PDF document.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error)
}

// Detail is one "Label: value" line.
type Detail struct {
	Label string
	Value string
}

// Label is the view model of one printed label.
type Label struct {
	Barcode  string
	Image    template.URL
	Price    string
	HasPrice bool
	Details  []Detail
}

// Sheet is what the label templates render.
type Sheet struct {
	Template  Template
	Labels    []Label
	AutoPrint bool
}

// Direction returns the CSS flex direction for the orientation.
func (s Sheet) Direction() string {
	if s.Template.Orientation == Portrait {
		return "column"
	}
	return "row"
}

// PriceSize is the price font size, half again the base size.
func (s Sheet) PriceSize() float64 {
	return float64(s.Template.FontSize) * 1.5
}

// NoteSize is the inc-GST text font size.
func (s Sheet) NoteSize() float64 {
	return float64(s.Template.FontSize) * 0.8
}

// Renderer builds label HTML and PDFs.
type Renderer struct {
	templates *template.Template
	pdf       PDFConverter
}

// NewRenderer parses the embedded label templates. pdf may be nil when PDF
// export is not configured.
func NewRenderer(pdf PDFConverter) (*Renderer, error) {
	tpl, err := template.New("labels").Funcs(template.FuncMap{"dict": dict}).ParseFS(web.Templates, "templates/labels/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse label templates: %w", err)
	}
	return &Renderer{templates: tpl, pdf: pdf}, nil
}

// Build turns items into labels. Barcodes that cannot be drawn are reported
// and their labels keep the text without an image.
func (r *Renderer) Build(items []inventory.Item, t Template) ([]Label, []error) {
	var problems []error
	out := make([]Label, 0, len(items))
	for _, item := range items {
		row := inventory.RowFromItem(item)
		label := Label{Barcode: records.CanonicalCode(item.Barcode)}
		png, err := RenderBarcode(label.Barcode, Symbology(t.BarcodeType), t.BarcodeWidth)
		if err != nil {
			problems = append(problems, err)
		} else {
			label.Image = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		}
		for _, col := range t.FieldOrder {
			switch col {
			case records.ColBarcode:
			case records.ColRRP:
				label.Price = records.FormatPrice(row[col])
				label.HasPrice = true
			default:
				label.Details = append(label.Details, Detail{Label: FieldLabel(col), Value: row[col]})
			}
		}
		out = append(out, label)
	}
	return out, problems
}

// HTML renders the label blocks for an on-page preview.
func (r *Renderer) HTML(items []inventory.Item, t Template) (template.HTML, []error) {
	labels, problems := r.Build(items, t)
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "labels/blocks", Sheet{Template: t, Labels: labels}); err != nil {
		return "", append(problems, err)
	}
	return template.HTML(buf.String()), problems
}

// PrintPage renders a standalone page. With autoPrint the browser print
// dialog opens on load.
func (r *Renderer) PrintPage(items []inventory.Item, t Template, autoPrint bool) (string, []error, error) {
	if len(items) == 0 {
		return "", nil, ErrNoItems
	}
	labels, problems := r.Build(items, t)
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "labels/page", Sheet{Template: t, Labels: labels, AutoPrint: autoPrint}); err != nil {
		return "", problems, fmt.Errorf("render label page: %w", err)
	}
	return buf.String(), problems, nil
}

// PDF renders one page per label through the PDF converter.
func (r *Renderer) PDF(ctx context.Context, items []inventory.Item, t Template) ([]byte, []error, error) {
	if r.pdf == nil {
		return nil, nil, errors.New("labels: pdf export not configured")
	}
	page, problems, err := r.PrintPage(items, t, false)
	if err != nil {
		return nil, problems, err
	}
	pdf, err := r.pdf.RenderHTML(ctx, page, PageSetup(t))
	if err != nil {
		return nil, problems, fmt.Errorf("labels: convert pdf: %w", err)
	}
	return pdf, problems, nil
}

// PageSetup sizes the paper to one label, longest side horizontal for
// landscape layouts.
func PageSetup(t Template) report.PageOptions {
	w, h := float64(t.Width), float64(t.Height)
	if (t.Orientation == Portrait) == (w > h) {
		w, h = h, w
	}
	return report.PageOptions{PaperWidth: w / pointsPerInch, PaperHeight: h / pointsPerInch}
}

// FileName names a PDF export.
func FileName(items []inventory.Item) string {
	if len(items) == 1 {
		return fmt.Sprintf("Barcode(%s).pdf", records.CanonicalCode(items[0].Barcode))
	}
	return "Barcode(batch).pdf"
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
