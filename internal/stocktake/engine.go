// Package stocktake reconciles scanned barcodes against recorded inventory.
package stocktake

import (
	"slices"
	"strings"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// Result holds the three sets produced by Reconcile, each sorted.
type Result struct {
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Unexpected []string `json:"unexpected"`
}

// Clean reports whether nothing is missing or unexpected.
func (r Result) Clean() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Reconcile compares recorded and scanned barcodes. Both sides are
// canonicalized and blanks dropped before the set difference is taken.
func Reconcile(recorded, scanned []string) Result {
	rec := codeSet(recorded)
	scan := codeSet(scanned)
	res := Result{Matched: []string{}, Missing: []string{}, Unexpected: []string{}}
	for code := range rec {
		if _, ok := scan[code]; ok {
			res.Matched = append(res.Matched, code)
		} else {
			res.Missing = append(res.Missing, code)
		}
	}
	for code := range scan {
		if _, ok := rec[code]; !ok {
			res.Unexpected = append(res.Unexpected, code)
		}
	}
	slices.SortFunc(res.Matched, compareCodes)
	slices.SortFunc(res.Missing, compareCodes)
	slices.SortFunc(res.Unexpected, compareCodes)
	return res
}

func codeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if code := records.CanonicalCode(v); code != "" {
			set[code] = struct{}{}
		}
	}
	return set
}

// compareCodes orders numeric codes by value, then everything else lexically.
func compareCodes(a, b string) int {
	an, aok := numeric(a)
	bn, bok := numeric(b)
	switch {
	case aok && bok:
		if len(an) != len(bn) {
			return len(an) - len(bn)
		}
		if c := strings.Compare(an, bn); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func numeric(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	trimmed := strings.TrimLeft(v, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return trimmed, true
}

var barcodeTokens = []string{"barcode", "ean", "upc", "code"}

// DetectBarcodeColumns returns the columns that look like barcode columns,
// or every column when none does.
func DetectBarcodeColumns(columns []string) []string {
	var out []string
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, token := range barcodeTokens {
			if strings.Contains(lower, token) {
				out = append(out, col)
				break
			}
		}
	}
	if len(out) == 0 {
		return slices.Clone(columns)
	}
	return out
}
