package records

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisible covers format characters such as U+200B and the BOM, plus NBSP,
// which scanners and spreadsheet exports leave behind.
var invisible = runes.Predicate(func(r rune) bool {
	return r == '\u00a0' || unicode.Is(unicode.Cf, r)
})

var (
	zeroFraction = regexp.MustCompile(`^([+-]?\d+)\.0*$`)
	exponentForm = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)
)

var nullTokens = map[string]struct{}{
	"nan":  {},
	"NaN":  {},
	"None": {},
	"<NA>": {},
	"NaT":  {},
}

// CanonicalCode normalises a barcode or frame code. Invisible characters and
// surrounding whitespace are removed and a purely zero fraction is dropped
// ("123.0" becomes "123"). Any other value is returned as-is, so codes with
// leading zeros or a real fractional part keep their exact text.
func CanonicalCode(v string) string {
	s := stripInvisible(v)
	if s == "" {
		return ""
	}
	if m := zeroFraction.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if exponentForm.MatchString(s) {
		if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
			return d.String()
		}
	}
	return s
}

// LegacyCanonicalCode reproduces the float coercion older files were written
// with: numeric values are rounded half to even ("123.5" becomes "124").
// Only used when importing data produced by that tooling.
func LegacyCanonicalCode(v string) string {
	s := stripInvisible(v)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	return strconv.FormatFloat(math.RoundToEven(f), 'f', 0, 64)
}

func stripInvisible(v string) string {
	s, _, err := transform.String(runes.Remove(invisible), v)
	if err != nil {
		s = v
	}
	s = strings.TrimSpace(s)
	if _, ok := nullTokens[s]; ok {
		return ""
	}
	return s
}

// NormalizePrice strips currency decoration and renders numeric prices with
// two decimals. Non-numeric text is kept so nothing is lost on save.
func NormalizePrice(v string) string {
	s := priceText(v)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

// ParsePrice parses a stored or user supplied price.
func ParsePrice(v string) (decimal.Decimal, error) {
	return decimal.NewFromString(priceText(v))
}

// FormatPrice renders a price for display, e.g. "$120.00".
func FormatPrice(v string) string {
	s := priceText(v)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "$" + s + ".00"
	}
	return "$" + d.StringFixed(2)
}

func priceText(v string) string {
	s := stripInvisible(v)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

func trimCell(v string) string {
	return stripInvisible(v)
}

func trimHeader(v string) string {
	return strings.Join(strings.Fields(stripInvisible(v)), " ")
}
