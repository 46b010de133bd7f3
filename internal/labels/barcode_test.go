package labels

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderBarcodeAccepted(t *testing.T) {
	cases := []struct {
		name      string
		value     string
		symbology Symbology
	}{
		{"code128 text", "ACM-000123", Code128},
		{"ean13 without check digit", "400638133393", EAN13},
		{"ean13 with check digit", "4006381333931", EAN13},
		{"ean8 without check digit", "5512345", EAN8},
		{"upc 11 digits", "03600029145", UPC},
		{"upc 12 digits", "036000291452", UPC},
		{"isbn with hyphens", "978-0-306-40615-7", ISBN13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := RenderBarcode(tc.value, tc.symbology, 220)
			require.NoError(t, err)
			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			require.GreaterOrEqual(t, img.Bounds().Dx(), 220)
			require.GreaterOrEqual(t, img.Bounds().Dy(), minImageHeight)
		})
	}
}

func TestRenderBarcodeRejected(t *testing.T) {
	cases := []struct {
		name      string
		value     string
		symbology Symbology
		want      error
	}{
		{"empty", " ", Code128, errEmptyValue},
		{"ean13 letters", "ABC", EAN13, errNotNumeric},
		{"ean13 short", "12345", EAN13, errLength},
		{"upc 10 digits", "0360002914", UPC, errLength},
		{"isbn prefix", "1234567890123", ISBN13, errISBNPrefix},
		{"unknown type", "123", Symbology("qr"), errSymbology},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RenderBarcode(tc.value, tc.symbology, 220)
			require.ErrorIs(t, err, tc.want)
			var renderErr *BarcodeRenderError
			require.True(t, errors.As(err, &renderErr))
			require.Equal(t, tc.symbology, renderErr.Symbology)
			require.NotEmpty(t, renderErr.UserMessage())
		})
	}
}
