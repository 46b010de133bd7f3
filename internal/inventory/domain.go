package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is used for every timestamp written to the tables.
const TimestampLayout = "2006-01-02 15:04:05"

// TransactionType enumerates sales log movements.
type TransactionType string

const (
	// TransactionSale decrements stock.
	TransactionSale TransactionType = "Sale"
	// TransactionReturn restores previously sold stock.
	TransactionReturn TransactionType = "Return"
)

// Source tells which table an item was found in.
type Source string

const (
	SourceInventory Source = "Inventory"
	SourceArchive   Source = "Archive"
)

// AuditAction enumerates audit log actions.
type AuditAction string

const (
	ActionAdd    AuditAction = "Add"
	ActionEdit   AuditAction = "Edit"
	ActionDelete AuditAction = "Delete"
	ActionSale   AuditAction = "Sale"
	ActionReturn AuditAction = "Return"
)

// Item is one frame row. Barcode is the unique key across inventory and
// archive; Extra keeps columns this package does not model.
type Item struct {
	Barcode       string `validate:"required,max=64"`
	FrameCode     string `validate:"required,max=64"`
	Quantity      int    `validate:"gte=0,lte=100000"`
	Manufacturer  string `validate:"max=128"`
	Model         string `validate:"max=128"`
	Colour        string `validate:"max=64"`
	Size          string `validate:"max=32"`
	Supplier      string `validate:"max=128"`
	FrameType     string `validate:"max=32"`
	Temple        string
	Depth         string
	Diag          string
	RRP           string
	ExCostPrice   string
	CostPrice     string
	TaxCode       string
	Status        string
	AvailableFrom string
	Location      string
	Note          string `validate:"max=1000"`
	Timestamp     string
	Extra         map[string]string `validate:"-"`

	// rawQuantity holds an unparsable QUANTITY cell so a save does not
	// overwrite it while the stock stays at zero.
	rawQuantity string
}

// ID returns the identifier used by edit and delete.
func (i Item) ID() string {
	return i.Barcode
}

// Product is the human label written to the sales and audit logs.
func (i Item) Product() string {
	name := strings.TrimSpace(strings.TrimSpace(i.Manufacturer) + " " + strings.TrimSpace(i.Model))
	switch {
	case name != "":
		return name
	case i.FrameCode != "":
		return i.FrameCode
	default:
		return i.Barcode
	}
}

func (i Item) clone() Item {
	out := i
	if i.Extra != nil {
		out.Extra = make(map[string]string, len(i.Extra))
		for k, v := range i.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// SalesRecord is one append-only sales log entry.
type SalesRecord struct {
	Timestamp string
	Barcode   string
	Product   string
	Quantity  int
	Price     decimal.Decimal
	SoldBy    string
	Customer  string
	Type      TransactionType

	raw map[string]string
}

// AuditRecord is one append-only audit log entry.
type AuditRecord struct {
	Timestamp string
	Barcode   string
	Action    AuditAction
	Product   string
	Quantity  int
	User      string
	Details   string
	ClientIP  string
	QtyBefore int
	QtyAfter  int

	raw map[string]string
}

// At parses the record timestamp; the zero time is returned when unparsable.
func (r AuditRecord) At() time.Time {
	return parseTimestamp(r.Timestamp)
}

// At parses the record timestamp; the zero time is returned when unparsable.
func (r SalesRecord) At() time.Time {
	return parseTimestamp(r.Timestamp)
}

// State is the full set of tables for one load-modify-save cycle.
type State struct {
	Inventory []Item
	Archive   []Item
	Sales     []SalesRecord
	Audit     []AuditRecord

	// Column order as found on disk, kept so saves preserve the layout.
	InventoryColumns []string
	ArchiveColumns   []string
}

// Tables is a bit set naming the tables an operation changed.
type Tables uint8

const (
	TableInventory Tables = 1 << iota
	TableArchive
	TableSales
	TableAudit
)

// Has reports whether t includes other.
func (t Tables) Has(other Tables) bool {
	return t&other != 0
}

// Actor identifies who performed an operation.
type Actor struct {
	Staff    string
	ClientIP string
}

// TransactionInput describes a sale or a return.
type TransactionInput struct {
	Barcode  string `validate:"required"`
	Qty      int    `validate:"gt=0"`
	Price    string
	Staff    string `validate:"max=128"`
	Customer string `validate:"max=128"`
	ClientIP string
}

// Transaction is the outcome of a sale or a return.
type Transaction struct {
	ID        string
	Type      TransactionType
	Barcode   string
	Product   string
	Qty       int
	Price     decimal.Decimal
	QtyBefore int
	QtyAfter  int
	Source    Source
	Archived  bool
	At        time.Time
}

// Lookup summarises an item for the sell/return screen.
type Lookup struct {
	Item          Item
	Source        Source
	TotalSold     int
	TotalReturned int
	NetSold       int
	History       []SalesRecord
}

var (
	// ErrNotFound indicates the barcode or id is in neither table.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrValidation wraps field validation failures.
	ErrValidation = errors.New("inventory: validation failed")
	// ErrDuplicateKey is matched by both duplicate errors below.
	ErrDuplicateKey = errors.New("inventory: duplicate key")
	// ErrDuplicateBarcode indicates the barcode is already in use.
	ErrDuplicateBarcode = duplicateError{field: "barcode"}
	// ErrDuplicateFrameCode indicates the frame code is already in use.
	ErrDuplicateFrameCode = duplicateError{field: "frame code"}
	// ErrInsufficientStock indicates a sale larger than the stock on hand.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrOverReturn indicates a return larger than the net quantity sold.
	ErrOverReturn = errors.New("inventory: return exceeds net quantity sold")
	// ErrArchivedItemNotSellable indicates a sale of an archived item.
	ErrArchivedItemNotSellable = errors.New("inventory: archived item cannot be sold")
	// ErrInvalidQuantity indicates a non positive transaction quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
)

// IsRejection reports whether err is a ledger rule violation rather than a
// storage failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrValidation, ErrDuplicateKey, ErrInsufficientStock,
		ErrOverReturn, ErrArchivedItemNotSellable, ErrInvalidQuantity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type duplicateError struct {
	field string
}

func (e duplicateError) Error() string {
	return "inventory: duplicate " + e.field
}

func (e duplicateError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func parseTimestamp(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{TimestampLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
