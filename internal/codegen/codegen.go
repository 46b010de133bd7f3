// Package codegen produces new barcodes and supplier based frame codes.
package codegen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

var (
	// ErrBarcodeSpaceExhausted is returned when every value in the range is taken.
	ErrBarcodeSpaceExhausted = errors.New("codegen: barcode range exhausted")
	// ErrSupplierRequired is returned when no supplier letters are available.
	ErrSupplierRequired = errors.New("codegen: supplier required for frame code")
	// ErrInvalidRange reports Min > Max or a non-positive range.
	ErrInvalidRange = errors.New("codegen: invalid barcode range")
)

const (
	DefaultMin         = 1
	DefaultMax         = 11000
	DefaultMaxAttempts = 1000
	frameCodeDigits    = 6
	frameCodePrefixLen = 3
)

var sixDigits = regexp.MustCompile(`\d{6}`)

// Generator draws barcodes from [Min, Max].
type Generator struct {
	Min         int
	Max         int
	MaxAttempts int
	// Intn returns a value in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// NewGenerator returns a Generator with the default range.
func NewGenerator() *Generator {
	return &Generator{Min: DefaultMin, Max: DefaultMax, MaxAttempts: DefaultMaxAttempts}
}

// GenerateBarcode returns a canonical barcode absent from existing. Random
// draws are bounded by MaxAttempts, after which the range is scanned for the
// first free value.
func (g *Generator) GenerateBarcode(existing map[string]struct{}) (string, error) {
	lo, hi, attempts := g.bounds()
	if lo > hi || lo < 0 {
		return "", ErrInvalidRange
	}
	intn := g.Intn
	if intn == nil {
		intn = rand.IntN
	}
	span := hi - lo + 1
	for i := 0; i < attempts; i++ {
		candidate := records.CanonicalCode(strconv.Itoa(lo + intn(span)))
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
	for v := lo; v <= hi; v++ {
		candidate := strconv.Itoa(v)
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %d-%d", ErrBarcodeSpaceExhausted, lo, hi)
}

func (g *Generator) bounds() (int, int, int) {
	lo, hi, attempts := DefaultMin, DefaultMax, DefaultMaxAttempts
	if g != nil {
		if g.Min != 0 || g.Max != 0 {
			lo, hi = g.Min, g.Max
		}
		if g.MaxAttempts > 0 {
			attempts = g.MaxAttempts
		}
	}
	return lo, hi, attempts
}

// FrameCodePrefix returns the upper-cased first three letters of supplier.
func FrameCodePrefix(supplier string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(supplier) {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if n++; n >= frameCodePrefixLen {
			break
		}
	}
	return b.String()
}

// GenerateFrameCode returns prefix + zero padded (max + 1) over the existing
// codes sharing the prefix, or prefix + "000001" when none do.
func GenerateFrameCode(supplier string, existing []string) (string, error) {
	prefix := FrameCodePrefix(supplier)
	if prefix == "" {
		return "", ErrSupplierRequired
	}
	highest := 0
	for _, code := range existing {
		code = strings.ToUpper(records.CanonicalCode(code))
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		digits := sixDigits.FindString(code[len(prefix):])
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, frameCodeDigits, highest+1), nil
}
