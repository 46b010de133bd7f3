package records

import (
	"slices"
	"strings"
)

// Schema describes one table layout. Aliases map legacy header names to the
// canonical column and are applied once when a table is loaded.
type Schema struct {
	Name         string
	Version      int
	Columns      []string
	Aliases      map[string]string
	CodeColumns  []string
	PriceColumns []string
	// LeadColumn, when set, is moved to the first position.
	LeadColumn string
}

// Inventory column names.
const (
	ColBarcode      = "BARCODE"
	ColFrameNum     = "FRAMENUM"
	ColQuantity     = "QUANTITY"
	ColManufacturer = "MANUFACTURER"
	ColModel        = "MODEL"
	ColColour       = "FCOLOUR"
	ColSize         = "SIZE"
	ColSupplier     = "SUPPLIER"
	ColFrameType    = "FRAME TYPE"
	ColTemple       = "TEMPLE"
	ColDepth        = "DEPTH"
	ColDiag         = "DIAG"
	ColRRP          = "RRP"
	ColExCostPrice  = "EXCOSTPRICE"
	ColCostPrice    = "COSTPRICE"
	ColTax          = "TAXPC"
	ColStatus       = "FRSTATUS"
	ColAvailFrom    = "AVAILFROM"
	ColLocation     = "LOCATION"
	ColNote         = "NOTE"
	ColTimestamp    = "Timestamp"
)

// InventorySchema is used for both the active inventory and the archive.
var InventorySchema = Schema{
	Name:    "inventory",
	Version: 2,
	Columns: []string{
		ColBarcode, ColFrameNum, ColQuantity, ColManufacturer, ColModel, ColColour,
		ColSize, ColSupplier, ColFrameType, ColTemple, ColDepth, ColDiag, ColRRP,
		ColExCostPrice, ColCostPrice, ColTax, ColStatus, ColAvailFrom, ColLocation,
		ColNote, ColTimestamp,
	},
	Aliases: map[string]string{
		"FRAME NO.":  ColFrameNum,
		"FRAME NO":   ColFrameNum,
		"FRAMENO":    ColFrameNum,
		"F COLOUR":   ColColour,
		"F TYPE":     ColFrameType,
		"EXCOSTPR":   ColExCostPrice,
		"COST PRICE": ColCostPrice,
		"AVAIL FROM": ColAvailFrom,
	},
	CodeColumns:  []string{ColBarcode, ColFrameNum},
	PriceColumns: []string{ColRRP, ColExCostPrice, ColCostPrice},
	LeadColumn:   ColBarcode,
}

// SalesSchema is the append-only sales log layout.
var SalesSchema = Schema{
	Name:         "sales",
	Version:      1,
	Columns:      []string{"Timestamp", "BARCODE", "Product", "Quantity", "Price", "SoldBy", "Customer", "Type"},
	CodeColumns:  []string{ColBarcode},
	PriceColumns: []string{"Price"},
}

// AuditSchema is the append-only audit log layout.
var AuditSchema = Schema{
	Name:        "audit",
	Version:     1,
	Columns:     []string{"Timestamp", "BARCODE", "Action", "Product", "Quantity", "User", "Details", "Client IP", "Qty Before", "Qty After"},
	CodeColumns: []string{ColBarcode},
}

// Empty returns a table holding only the schema columns.
func (s Schema) Empty() Table {
	return NewTable(s.Columns...)
}

// Migrate renames legacy headers, canonicalizes code and price cells and
// orders the lead column first. It is idempotent.
func (s Schema) Migrate(t Table) Table {
	canonical := make(map[string]string, len(s.Columns)+len(s.Aliases))
	for _, col := range s.Columns {
		canonical[headerKey(col)] = col
	}
	for alias, target := range s.Aliases {
		canonical[headerKey(alias)] = target
	}

	rename := make(map[string]string, len(t.Columns))
	columns := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		name := trimHeader(col)
		if target, ok := canonical[headerKey(name)]; ok {
			name = target
		}
		rename[col] = name
		if !slices.Contains(columns, name) {
			columns = append(columns, name)
		}
	}

	rows := make([]Row, 0, len(t.Rows))
	for _, src := range t.Rows {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = ""
		}
		// Source columns are visited in header order so the first occurrence
		// of a merged column wins.
		for _, col := range t.Columns {
			value := trimCell(src[col])
			target := rename[col]
			if row[target] == "" {
				row[target] = value
			}
		}
		for _, col := range s.CodeColumns {
			if v, ok := row[col]; ok {
				row[col] = CanonicalCode(v)
			}
		}
		for _, col := range s.PriceColumns {
			if v, ok := row[col]; ok {
				row[col] = NormalizePrice(v)
			}
		}
		rows = append(rows, row)
	}

	if s.LeadColumn != "" {
		if idx := slices.Index(columns, s.LeadColumn); idx > 0 {
			columns = append([]string{s.LeadColumn}, slices.Delete(columns, idx, idx+1)...)
		}
	}
	return Table{Columns: columns, Rows: rows}
}

func headerKey(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
