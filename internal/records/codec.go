package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatText Format = "txt"
)

// DefaultSheet is the sheet name used when writing workbooks.
const DefaultSheet = "Sheet1"

// FormatOf derives the format from a file name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(name))
	}
}

// ReadTable decodes an upload or file by its name's extension.
func ReadTable(name string, r io.Reader) (Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return Table{}, err
	}
	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	case FormatText:
		return ReadText(r)
	default:
		return ReadCSV(r, ',')
	}
}

// ReadCSV decodes a delimited file whose first line is the header.
func ReadCSV(r io.Reader, comma rune) (Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	matrix, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("records: read csv: %w", err)
	}
	if len(matrix) > 0 && len(matrix[0]) > 0 {
		matrix[0][0] = strings.TrimPrefix(matrix[0][0], "\ufeff")
	}
	return FromMatrix(matrix), nil
}

// ReadXLSX decodes the first sheet of a workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("records: open workbook: %w", err)
	}
	defer func() {
		_ = book.Close()
	}()
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyWorkbook
	}
	rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("records: read sheet %q: %w", sheets[0], err)
	}
	return FromMatrix(rows), nil
}

// ReadText decodes a scanner dump. The delimiter is sniffed from the first
// line; a file without a recognisable header is read as a single BARCODE
// column with one value per line.
func ReadText(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("records: read text: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	first := firstLine(data)
	comma := sniffDelimiter(first)
	if comma != 0 {
		return ReadCSV(bytes.NewReader(data), comma)
	}
	table := NewTable(ColBarcode)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	header := true
	for scanner.Scan() {
		line := trimCell(scanner.Text())
		if line == "" {
			continue
		}
		if header {
			header = false
			if looksLikeHeader(line) {
				table.Columns = []string{trimHeader(line)}
				continue
			}
		}
		table.Rows = append(table.Rows, Row{table.Columns[0]: line})
	}
	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("records: scan text: %w", err)
	}
	return table, nil
}

// WriteCSV encodes the table with a header line.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	for _, line := range t.Matrix() {
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Sheet names a table inside a multi-sheet workbook.
type Sheet struct {
	Name  string
	Table Table
}

// WriteXLSX encodes the table as a single-sheet workbook.
func WriteXLSX(w io.Writer, t Table) error {
	return WriteWorkbook(w, []Sheet{{Name: DefaultSheet, Table: t}})
}

// WriteWorkbook encodes several tables, one per sheet. Cells are written as
// text so codes are never coerced to numbers.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	book := excelize.NewFile()
	defer func() {
		_ = book.Close()
	}()
	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if name != DefaultSheet {
				if err := book.SetSheetName(DefaultSheet, name); err != nil {
					return fmt.Errorf("records: rename sheet: %w", err)
				}
			}
		} else if _, err := book.NewSheet(name); err != nil {
			return fmt.Errorf("records: new sheet %q: %w", name, err)
		}
		for r, line := range sheet.Table.Matrix() {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(line))
			for c, v := range line {
				values[c] = v
			}
			if err := book.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("records: write row %d: %w", r+1, err)
			}
		}
	}
	return book.Write(w)
}

func firstLine(data []byte) string {
	for _, line := range bytes.Split(data, []byte("\n")) {
		if s := strings.TrimSpace(string(line)); s != "" {
			return s
		}
	}
	return ""
}

func sniffDelimiter(line string) rune {
	var best rune
	bestCount := 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func looksLikeHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, token := range []string{"barcode", "ean", "upc", "code"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
