package labels

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
)

// Symbology names a barcode encoding.
type Symbology string

const (
	Code128 Symbology = "code128"
	EAN13   Symbology = "ean13"
	EAN8    Symbology = "ean8"
	UPC     Symbology = "upc"
	ISBN13  Symbology = "isbn13"
)

// Symbologies lists the supported encodings.
var Symbologies = []Symbology{Code128, EAN13, EAN8, UPC, ISBN13}

var (
	errEmptyValue = errors.New("empty value")
	errNotNumeric = errors.New("value must be numeric")
	errLength     = errors.New("wrong number of digits")
	errISBNPrefix = errors.New("ISBN-13 must start with 978 or 979")
	errSymbology  = errors.New("unknown barcode type")
)

const minImageHeight = 40

// BarcodeRenderError reports a value that cannot be drawn in the chosen
// symbology. Labels are still rendered, without the image.
type BarcodeRenderError struct {
	Value     string
	Symbology Symbology
	Err       error
}

func (e *BarcodeRenderError) Error() string {
	return fmt.Sprintf("labels: render %s barcode %q: %v", e.Symbology, e.Value, e.Err)
}

func (e *BarcodeRenderError) Unwrap() error { return e.Err }

// UserMessage implements shared.UserMessenger.
func (e *BarcodeRenderError) UserMessage() string {
	return fmt.Sprintf("Barcode %s cannot be printed as %s: %v.", e.Value, strings.ToUpper(string(e.Symbology)), e.Err)
}

// RenderBarcode draws value as a PNG roughly widthPx wide. EAN, UPC and ISBN
// values are accepted with or without the check digit.
func RenderBarcode(value string, symbology Symbology, widthPx int) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &BarcodeRenderError{Value: value, Symbology: symbology, Err: err}
	}
	code, err := encode(strings.TrimSpace(value), symbology)
	if err != nil {
		return fail(err)
	}
	width := widthPx
	if natural := code.Bounds().Dx(); width < natural {
		width = natural
	}
	height := width / 3
	if height < minImageHeight {
		height = minImageHeight
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return fail(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return fail(err)
	}
	return buf.Bytes(), nil
}

func encode(value string, symbology Symbology) (barcode.Barcode, error) {
	if value == "" {
		return nil, errEmptyValue
	}
	switch symbology {
	case Code128, "":
		return code128.Encode(value)
	case EAN13:
		return encodeDigits(value, 12, 13)
	case EAN8:
		return encodeDigits(value, 7, 8)
	case UPC:
		if !digitsOnly(value) {
			return nil, errNotNumeric
		}
		if len(value) != 11 && len(value) != 12 {
			return nil, errLength
		}
		// UPC-A is EAN-13 with a leading zero.
		return ean.Encode("0" + value)
	case ISBN13:
		digits := strings.ReplaceAll(value, "-", "")
		if !strings.HasPrefix(digits, "978") && !strings.HasPrefix(digits, "979") {
			return nil, errISBNPrefix
		}
		return encodeDigits(digits, 12, 13)
	default:
		return nil, errSymbology
	}
}

func encodeDigits(value string, lengths ...int) (barcode.Barcode, error) {
	if !digitsOnly(value) {
		return nil, errNotNumeric
	}
	for _, n := range lengths {
		if len(value) == n {
			return ean.Encode(value)
		}
	}
	return nil, errLength
}

func digitsOnly(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
