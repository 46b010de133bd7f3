package audit

import (
	"bytes"
	"strconv"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

var exportColumns = []string{"Timestamp", "User", "Action", "Barcode", "Product", "Quantity", "QtyBefore", "QtyAfter", "Details", "ClientIP"}

// Exporter encodes timeline rows for download.
type Exporter struct{}

// NewExporter constructs an Exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteCSV encodes rows as CSV with a header line.
func (e *Exporter) WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := records.WriteCSV(&buf, toTable(rows)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX encodes rows as a single-sheet workbook.
func (e *Exporter) WriteXLSX(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := records.WriteWorkbook(&buf, []records.Sheet{{Name: "Audit", Table: toTable(rows)}}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toTable(rows []TimelineRow) records.Table {
	table := records.NewTable(exportColumns...)
	for _, row := range rows {
		table.Rows = append(table.Rows, records.Row{
			"Timestamp": row.Timestamp,
			"User":      row.User,
			"Action":    row.Action,
			"Barcode":   row.Barcode,
			"Product":   row.Product,
			"Quantity":  strconv.Itoa(row.Quantity),
			"QtyBefore": strconv.Itoa(row.QtyBefore),
			"QtyAfter":  strconv.Itoa(row.QtyAfter),
			"Details":   row.Details,
			"ClientIP":  row.ClientIP,
		})
	}
	return table
}
