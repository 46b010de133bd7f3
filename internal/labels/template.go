// Package labels designs and renders printable barcode labels.
package labels

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// Orientation values.
const (
	Landscape = "Landscape"
	Portrait  = "Portrait"
)

// Field is one printable item attribute.
type Field struct {
	Column string
	Label  string
}

// Fields lists the printable attributes in their default order.
var Fields = []Field{
	{records.ColBarcode, "Barcode Number"},
	{records.ColRRP, "Price"},
	{records.ColFrameNum, "Framecode"},
	{records.ColModel, "Model"},
	{records.ColManufacturer, "Manufacturer"},
	{records.ColColour, "Frame Colour"},
	{records.ColSize, "Size"},
}

// FieldLabel returns the display label of a column.
func FieldLabel(column string) string {
	for _, f := range Fields {
		if f.Column == column {
			return f.Label
		}
	}
	return column
}

// legacyFieldNames maps field names stored by older template files.
var legacyFieldNames = map[string]string{
	"FRAME NO.": records.ColFrameNum,
	"F COLOUR":  records.ColColour,
}

// Template is a saved label layout. Sizes are pixels, font size is points.
type Template struct {
	Width        int      `json:"width" validate:"gte=120,lte=600"`
	Height       int      `json:"height" validate:"gte=80,lte=400"`
	FontSize     int      `json:"font_size" validate:"gte=8,lte=32"`
	BarcodeType  string   `json:"barcode_type" validate:"oneof=code128 ean13 ean8 upc isbn13"`
	BarcodeWidth int      `json:"barcode_width" validate:"gte=80,lte=400"`
	Margin       int      `json:"margin" validate:"gte=0,lte=32"`
	Orientation  string   `json:"orientation" validate:"oneof=Landscape Portrait"`
	IncGSTText   string   `json:"inc_gst_text" validate:"max=40"`
	FieldOrder   []string `json:"field_order" validate:"min=1,dive,oneof=BARCODE RRP FRAMENUM MODEL MANUFACTURER FCOLOUR SIZE"`
}

// DefaultTemplate returns the built-in layout.
func DefaultTemplate() Template {
	order := make([]string, 0, len(Fields))
	for _, f := range Fields {
		order = append(order, f.Column)
	}
	return Template{
		Width:        300,
		Height:       150,
		FontSize:     16,
		BarcodeType:  string(Code128),
		BarcodeWidth: 220,
		Margin:       8,
		Orientation:  Landscape,
		IncGSTText:   "Inc GST",
		FieldOrder:   order,
	}
}

// ErrInvalidTemplate wraps template validation failures.
var ErrInvalidTemplate = errors.New("labels: invalid template")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize maps legacy field names and drops duplicates.
func (t Template) Normalize() Template {
	out := t
	out.FieldOrder = make([]string, 0, len(t.FieldOrder))
	for _, f := range t.FieldOrder {
		f = strings.TrimSpace(f)
		if mapped, ok := legacyFieldNames[f]; ok {
			f = mapped
		}
		if f != "" && !slices.Contains(out.FieldOrder, f) {
			out.FieldOrder = append(out.FieldOrder, f)
		}
	}
	out.BarcodeType = strings.ToLower(strings.TrimSpace(t.BarcodeType))
	return out
}

// Validate checks the template bounds.
func (t Template) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s out of range", fe.Field()))
		case "min":
			msgs = append(msgs, "choose at least one field")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(msgs, "; "))
}
