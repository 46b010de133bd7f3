package inventory

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// itemField binds a column to an Item field.
type itemField struct {
	column string
	get    func(*Item) *string
}

var itemFields = []itemField{
	{records.ColBarcode, func(i *Item) *string { return &i.Barcode }},
	{records.ColFrameNum, func(i *Item) *string { return &i.FrameCode }},
	{records.ColManufacturer, func(i *Item) *string { return &i.Manufacturer }},
	{records.ColModel, func(i *Item) *string { return &i.Model }},
	{records.ColColour, func(i *Item) *string { return &i.Colour }},
	{records.ColSize, func(i *Item) *string { return &i.Size }},
	{records.ColSupplier, func(i *Item) *string { return &i.Supplier }},
	{records.ColFrameType, func(i *Item) *string { return &i.FrameType }},
	{records.ColTemple, func(i *Item) *string { return &i.Temple }},
	{records.ColDepth, func(i *Item) *string { return &i.Depth }},
	{records.ColDiag, func(i *Item) *string { return &i.Diag }},
	{records.ColRRP, func(i *Item) *string { return &i.RRP }},
	{records.ColExCostPrice, func(i *Item) *string { return &i.ExCostPrice }},
	{records.ColCostPrice, func(i *Item) *string { return &i.CostPrice }},
	{records.ColTax, func(i *Item) *string { return &i.TaxCode }},
	{records.ColStatus, func(i *Item) *string { return &i.Status }},
	{records.ColAvailFrom, func(i *Item) *string { return &i.AvailableFrom }},
	{records.ColLocation, func(i *Item) *string { return &i.Location }},
	{records.ColNote, func(i *Item) *string { return &i.Note }},
	{records.ColTimestamp, func(i *Item) *string { return &i.Timestamp }},
}

func isItemColumn(column string) bool {
	if column == records.ColQuantity {
		return true
	}
	for _, f := range itemFields {
		if f.column == column {
			return true
		}
	}
	return false
}

// ItemFromRow maps a migrated inventory row to an Item.
func ItemFromRow(row records.Row) Item {
	var item Item
	for _, f := range itemFields {
		*f.get(&item) = row[f.column]
	}
	var ok bool
	if item.Quantity, ok = parseQuantity(row[records.ColQuantity]); !ok {
		item.rawQuantity = row[records.ColQuantity]
	}
	for col, v := range row {
		if isItemColumn(col) {
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]string)
		}
		item.Extra[col] = v
	}
	return item
}

// RowFromItem maps an Item back to a row.
func RowFromItem(item Item) records.Row {
	row := make(records.Row, len(itemFields)+1+len(item.Extra))
	for col, v := range item.Extra {
		row[col] = v
	}
	for _, f := range itemFields {
		row[f.column] = *f.get(&item)
	}
	row[records.ColQuantity] = strconv.Itoa(item.Quantity)
	if item.rawQuantity != "" && item.Quantity == 0 {
		row[records.ColQuantity] = item.rawQuantity
	}
	return row
}

// ItemsFromTable converts every row of an inventory or archive table.
func ItemsFromTable(t records.Table) []Item {
	items := make([]Item, 0, len(t.Rows))
	for _, row := range t.Rows {
		items = append(items, ItemFromRow(row))
	}
	return items
}

// ItemsToTable converts items to a table, keeping the given column order.
// Modelled columns missing from the layout are appended only when some item
// has a value for them.
func ItemsToTable(items []Item, columns []string) records.Table {
	cols := slices.Clone(columns)
	if len(cols) == 0 {
		cols = slices.Clone(records.InventorySchema.Columns)
	}
	rows := make([]records.Row, 0, len(items))
	var extras []string
	for _, item := range items {
		row := RowFromItem(item)
		rows = append(rows, row)
		for col, v := range row {
			if v == "" || slices.Contains(cols, col) || slices.Contains(extras, col) {
				continue
			}
			extras = append(extras, col)
		}
	}
	for _, col := range records.InventorySchema.Columns {
		if slices.Contains(extras, col) {
			cols = append(cols, col)
		}
	}
	slices.Sort(extras)
	for _, col := range extras {
		if !slices.Contains(cols, col) {
			cols = append(cols, col)
		}
	}
	for _, row := range rows {
		for col := range row {
			if !slices.Contains(cols, col) {
				delete(row, col)
			}
		}
	}
	return records.Table{Columns: cols, Rows: rows}
}

// SalesFromTable converts sales log rows.
func SalesFromTable(t records.Table) []SalesRecord {
	out := make([]SalesRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		price, err := records.ParsePrice(row["Price"])
		if err != nil {
			price = decimal.Zero
		}
		rec := SalesRecord{
			Timestamp: row["Timestamp"],
			Barcode:   records.CanonicalCode(row["BARCODE"]),
			Product:   row["Product"],
			Price:     price,
			SoldBy:    row["SoldBy"],
			Customer:  row["Customer"],
			Type:      parseTransactionType(row["Type"]),
		}
		rec.Quantity = quantityCell(row, "Quantity", &rec.raw)
		out = append(out, rec)
	}
	return out
}

// SalesToTable converts sales records to the sales log layout.
func SalesToTable(sales []SalesRecord) records.Table {
	table := records.SalesSchema.Empty()
	for _, s := range sales {
		row := records.Row{
			"Timestamp": s.Timestamp,
			"BARCODE":   s.Barcode,
			"Product":   s.Product,
			"Quantity":  strconv.Itoa(s.Quantity),
			"Price":     s.Price.StringFixed(2),
			"SoldBy":    s.SoldBy,
			"Customer":  s.Customer,
			"Type":      string(s.Type),
		}
		maps.Copy(row, s.raw)
		table.Rows = append(table.Rows, row)
	}
	return table
}

// AuditFromTable converts audit log rows.
func AuditFromTable(t records.Table) []AuditRecord {
	out := make([]AuditRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := AuditRecord{
			Timestamp: row["Timestamp"],
			Barcode:   records.CanonicalCode(row["BARCODE"]),
			Action:    AuditAction(row["Action"]),
			Product:   row["Product"],
			User:      row["User"],
			Details:   row["Details"],
			ClientIP:  row["Client IP"],
		}
		rec.Quantity = quantityCell(row, "Quantity", &rec.raw)
		rec.QtyBefore = quantityCell(row, "Qty Before", &rec.raw)
		rec.QtyAfter = quantityCell(row, "Qty After", &rec.raw)
		out = append(out, rec)
	}
	return out
}

// AuditToTable converts audit records to the audit log layout.
func AuditToTable(audit []AuditRecord) records.Table {
	table := records.AuditSchema.Empty()
	for _, a := range audit {
		row := records.Row{
			"Timestamp":  a.Timestamp,
			"BARCODE":    a.Barcode,
			"Action":     string(a.Action),
			"Product":    a.Product,
			"Quantity":   strconv.Itoa(a.Quantity),
			"User":       a.User,
			"Details":    a.Details,
			"Client IP":  a.ClientIP,
			"Qty Before": strconv.Itoa(a.QtyBefore),
			"Qty After":  strconv.Itoa(a.QtyAfter),
		}
		maps.Copy(row, a.raw)
		table.Rows = append(table.Rows, row)
	}
	return table
}

// parseQuantity accepts "3", "3.0" and blanks. Any other text reads as zero
// and reports false so callers can keep the original cell.
func parseQuantity(v string) (int, bool) {
	s := records.CanonicalCode(v)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// quantityCell parses row[column], recording unparsable text in raw so it is
// written back unchanged.
func quantityCell(row records.Row, column string, raw *map[string]string) int {
	n, ok := parseQuantity(row[column])
	if !ok {
		if *raw == nil {
			*raw = make(map[string]string)
		}
		(*raw)[column] = row[column]
	}
	return n
}

// parseTransactionType recognises Sale and Return in any case. Other values
// are kept as written and count towards neither total.
func parseTransactionType(v string) TransactionType {
	t := strings.TrimSpace(v)
	switch {
	case strings.EqualFold(t, string(TransactionSale)):
		return TransactionSale
	case strings.EqualFold(t, string(TransactionReturn)):
		return TransactionReturn
	default:
		return TransactionType(t)
	}
}
