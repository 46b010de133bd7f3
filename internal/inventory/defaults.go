package inventory

import (
	"fmt"
	"time"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// fallbackDefaults apply when no existing item has a value for the column.
var fallbackDefaults = map[string]string{
	records.ColManufacturer: "Ray-Ban",
	records.ColSupplier:     "Default Supplier",
	records.ColFrameType:    "Mens",
	records.ColRRP:          "120.00",
	records.ColExCostPrice:  "60.00",
	records.ColCostPrice:    "70.00",
	records.ColTax:          "GST 10%",
	records.ColStatus:       "PRACTICE OWNED",
}

// defaultedColumns are prefilled on the add form.
var defaultedColumns = []string{
	records.ColManufacturer,
	records.ColModel,
	records.ColColour,
	records.ColSize,
	records.ColSupplier,
	records.ColFrameType,
	records.ColTemple,
	records.ColDepth,
	records.ColDiag,
	records.ColRRP,
	records.ColExCostPrice,
	records.ColCostPrice,
	records.ColTax,
	records.ColStatus,
	records.ColLocation,
}

// SmartDefaults suggests add form values: the most recent non-empty value per
// column, else the most common one, else a fixed default. AVAILFROM is today.
func SmartDefaults(items []Item, now time.Time) map[string]string {
	out := make(map[string]string, len(defaultedColumns)+2)
	for _, col := range defaultedColumns {
		if v := latestValue(items, col); v != "" {
			out[col] = v
			continue
		}
		if v := commonValue(items, col); v != "" {
			out[col] = v
			continue
		}
		if v, ok := fallbackDefaults[col]; ok {
			out[col] = v
		}
	}
	out[records.ColAvailFrom] = now.Format("2006-01-02")
	out[records.ColQuantity] = "1"
	return out
}

func latestValue(items []Item, col string) string {
	for i := len(items) - 1; i >= 0; i-- {
		row := RowFromItem(items[i])
		if v := row[col]; v != "" {
			return v
		}
	}
	return ""
}

func commonValue(items []Item, col string) string {
	counts := make(map[string]int)
	var best string
	for _, item := range items {
		v := RowFromItem(item)[col]
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// Options holds the fixed choice lists offered by the item form.
type Options struct {
	Sizes      []string
	FrameTypes []string
	TaxCodes   []string
	Ownership  []string
}

// FormOptions returns the choice lists for the item form.
func FormOptions() Options {
	var sizes []string
	for lens := 40; lens <= 62; lens++ {
		for _, bridge := range []int{14, 15, 16, 17, 18, 19, 20, 21, 22} {
			sizes = append(sizes, fmt.Sprintf("%d_%d", lens, bridge))
		}
	}
	taxes := make([]string, 0, 20)
	for pct := 1; pct <= 20; pct++ {
		taxes = append(taxes, fmt.Sprintf("GST %d%%", pct))
	}
	return Options{
		Sizes:      sizes,
		FrameTypes: []string{"Mens", "Womens", "Unisex", "Kids"},
		TaxCodes:   taxes,
		Ownership:  []string{"CONSIGNMENT OWNED", "PRACTICE OWNED"},
	}
}
