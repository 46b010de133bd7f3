package inventory

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// minSalePrice is charged when neither a price nor an RRP is available.
var minSalePrice = decimal.RequireFromString("0.01")

// The Apply functions below are the ledger rules. Each one validates every
// precondition before touching anything and returns a new State; the input
// State is never modified.

// ApplyAdd appends a new item. Barcode and frame code are canonicalized and
// must be unique; the barcode must also be absent from the archive.
func ApplyAdd(st State, item Item, actor Actor, now time.Time) (State, Tables, error) {
	item = canonicalItem(item)
	if err := checkRequired(item); err != nil {
		return st, 0, err
	}
	if indexOf(st.Inventory, item.Barcode) >= 0 || indexOf(st.Archive, item.Barcode) >= 0 {
		return st, 0, fmt.Errorf("%w: %s", ErrDuplicateBarcode, item.Barcode)
	}
	if frameCodeTaken(st.Inventory, item.FrameCode, -1) {
		return st, 0, fmt.Errorf("%w: %s", ErrDuplicateFrameCode, item.FrameCode)
	}
	ts := now.Format(TimestampLayout)
	if len(st.InventoryColumns) == 0 || slices.Contains(st.InventoryColumns, records.ColTimestamp) {
		if item.Timestamp == "" {
			item.Timestamp = ts
		}
	}
	next := st.clone()
	next.Inventory = append(next.Inventory, item)
	next.Audit = append(next.Audit, AuditRecord{
		Timestamp: ts,
		Barcode:   item.Barcode,
		Action:    ActionAdd,
		Product:   item.Product(),
		Quantity:  item.Quantity,
		User:      actor.Staff,
		Details:   fmt.Sprintf("Added %s", describe(item)),
		ClientIP:  actor.ClientIP,
		QtyBefore: 0,
		QtyAfter:  item.Quantity,
	})
	return next, TableInventory | TableAudit, nil
}

// ApplyEdit overwrites the item identified by id. Uniqueness checks exclude
// the edited row itself.
func ApplyEdit(st State, id string, item Item, actor Actor, now time.Time) (State, Tables, error) {
	idx := indexOf(st.Inventory, records.CanonicalCode(id))
	if idx < 0 {
		return st, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	item = canonicalItem(item)
	if err := checkRequired(item); err != nil {
		return st, 0, err
	}
	prev := st.Inventory[idx]
	if item.Barcode != prev.Barcode {
		if indexOf(st.Inventory, item.Barcode) >= 0 || indexOf(st.Archive, item.Barcode) >= 0 {
			return st, 0, fmt.Errorf("%w: %s", ErrDuplicateBarcode, item.Barcode)
		}
	}
	if frameCodeTaken(st.Inventory, item.FrameCode, idx) {
		return st, 0, fmt.Errorf("%w: %s", ErrDuplicateFrameCode, item.FrameCode)
	}
	if item.Timestamp == "" {
		item.Timestamp = prev.Timestamp
	}
	item.Extra = mergeExtra(prev.Extra, item.Extra)

	next := st.clone()
	next.Inventory[idx] = item
	next.Audit = append(next.Audit, AuditRecord{
		Timestamp: now.Format(TimestampLayout),
		Barcode:   item.Barcode,
		Action:    ActionEdit,
		Product:   item.Product(),
		Quantity:  item.Quantity - prev.Quantity,
		User:      actor.Staff,
		Details:   diffItems(prev, item),
		ClientIP:  actor.ClientIP,
		QtyBefore: prev.Quantity,
		QtyAfter:  item.Quantity,
	})
	return next, TableInventory | TableAudit, nil
}

// ApplyDelete removes the item identified by id and returns it.
func ApplyDelete(st State, id string, actor Actor, now time.Time) (State, Item, Tables, error) {
	idx := indexOf(st.Inventory, records.CanonicalCode(id))
	if idx < 0 {
		return st, Item{}, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := st.Inventory[idx].clone()
	next := st.clone()
	next.Inventory = slices.Delete(next.Inventory, idx, idx+1)
	next.Audit = append(next.Audit, AuditRecord{
		Timestamp: now.Format(TimestampLayout),
		Barcode:   removed.Barcode,
		Action:    ActionDelete,
		Product:   removed.Product(),
		Quantity:  removed.Quantity,
		User:      actor.Staff,
		Details:   fmt.Sprintf("Deleted %s", describe(removed)),
		ClientIP:  actor.ClientIP,
		QtyBefore: removed.Quantity,
		QtyAfter:  0,
	})
	return next, removed, TableInventory | TableAudit, nil
}

// ApplySale decrements stock. An item reaching zero moves to the archive.
func ApplySale(st State, in TransactionInput, now time.Time) (State, Transaction, Tables, error) {
	if in.Qty <= 0 {
		return st, Transaction{}, 0, ErrInvalidQuantity
	}
	code := records.CanonicalCode(in.Barcode)
	idx := indexOf(st.Inventory, code)
	if idx < 0 || code == "" {
		if code != "" && indexOf(st.Archive, code) >= 0 {
			return st, Transaction{}, 0, fmt.Errorf("%w: %s", ErrArchivedItemNotSellable, code)
		}
		return st, Transaction{}, 0, fmt.Errorf("%w: %s", ErrNotFound, in.Barcode)
	}
	item := st.Inventory[idx]
	if in.Qty > item.Quantity {
		return st, Transaction{}, 0, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, in.Qty, item.Quantity)
	}
	price, err := transactionPrice(in.Price, item)
	if err != nil {
		return st, Transaction{}, 0, err
	}

	next := st.clone()
	changed := TableInventory | TableSales | TableAudit
	updated := item.clone()
	updated.Quantity -= in.Qty
	archived := updated.Quantity == 0
	if archived {
		next.Inventory = slices.Delete(next.Inventory, idx, idx+1)
		if a := indexOf(next.Archive, code); a >= 0 {
			next.Archive[a] = updated
		} else {
			next.Archive = append(next.Archive, updated)
		}
		changed |= TableArchive
	} else {
		next.Inventory[idx] = updated
	}

	tx := newTransaction(TransactionSale, item, in.Qty, price, item.Quantity, updated.Quantity, SourceInventory, now)
	tx.Archived = archived
	next.appendMovement(tx, in, fmt.Sprintf("Sale to %s (%s)", customerLabel(in.Customer), SourceInventory))
	return next, tx, changed, nil
}

// ApplyReturn restores sold stock, bounded by the net quantity sold. An
// archived item is moved back to the inventory.
func ApplyReturn(st State, in TransactionInput, now time.Time) (State, Transaction, Tables, error) {
	if in.Qty <= 0 {
		return st, Transaction{}, 0, ErrInvalidQuantity
	}
	code := records.CanonicalCode(in.Barcode)
	invIdx := indexOf(st.Inventory, code)
	arcIdx := indexOf(st.Archive, code)
	if code == "" || (invIdx < 0 && arcIdx < 0) {
		return st, Transaction{}, 0, fmt.Errorf("%w: %s", ErrNotFound, in.Barcode)
	}
	if net := NetSold(st.Sales, code); in.Qty > net {
		return st, Transaction{}, 0, fmt.Errorf("%w: requested %d, net sold %d", ErrOverReturn, in.Qty, net)
	}

	next := st.clone()
	changed := TableInventory | TableSales | TableAudit
	var (
		tx     Transaction
		source Source
	)
	if invIdx >= 0 {
		item := st.Inventory[invIdx]
		price, err := transactionPrice(in.Price, item)
		if err != nil {
			return st, Transaction{}, 0, err
		}
		updated := item.clone()
		updated.Quantity += in.Qty
		next.Inventory[invIdx] = updated
		if arcIdx >= 0 {
			next.Archive = slices.Delete(next.Archive, arcIdx, arcIdx+1)
			changed |= TableArchive
		}
		source = SourceInventory
		tx = newTransaction(TransactionReturn, item, in.Qty, price, item.Quantity, updated.Quantity, source, now)
	} else {
		item := st.Archive[arcIdx]
		price, err := transactionPrice(in.Price, item)
		if err != nil {
			return st, Transaction{}, 0, err
		}
		restored := item.clone()
		restored.Quantity = in.Qty
		next.Archive = slices.Delete(next.Archive, arcIdx, arcIdx+1)
		next.Inventory = append(next.Inventory, restored)
		changed |= TableArchive
		source = SourceArchive
		tx = newTransaction(TransactionReturn, item, in.Qty, price, 0, restored.Quantity, source, now)
	}
	next.appendMovement(tx, in, fmt.Sprintf("Return from %s (%s)", customerLabel(in.Customer), source))
	return next, tx, changed, nil
}

// NetSold is total sold minus total returned for a barcode.
func NetSold(sales []SalesRecord, barcode string) int {
	sold, returned := soldAndReturned(sales, barcode)
	return sold - returned
}

func soldAndReturned(sales []SalesRecord, barcode string) (int, int) {
	code := records.CanonicalCode(barcode)
	var sold, returned int
	for _, s := range sales {
		if s.Barcode != code {
			continue
		}
		switch s.Type {
		case TransactionSale:
			sold += s.Quantity
		case TransactionReturn:
			returned += s.Quantity
		}
	}
	return sold, returned
}

// Find returns the item for a barcode and the table it was found in.
func Find(st State, barcode string) (Item, Source, bool) {
	code := records.CanonicalCode(barcode)
	if code == "" {
		return Item{}, "", false
	}
	if i := indexOf(st.Inventory, code); i >= 0 {
		return st.Inventory[i], SourceInventory, true
	}
	if i := indexOf(st.Archive, code); i >= 0 {
		return st.Archive[i], SourceArchive, true
	}
	return Item{}, "", false
}

func (st *State) appendMovement(tx Transaction, in TransactionInput, details string) {
	ts := tx.At.Format(TimestampLayout)
	st.Sales = append(st.Sales, SalesRecord{
		Timestamp: ts,
		Barcode:   tx.Barcode,
		Product:   tx.Product,
		Quantity:  tx.Qty,
		Price:     tx.Price,
		SoldBy:    strings.TrimSpace(in.Staff),
		Customer:  strings.TrimSpace(in.Customer),
		Type:      tx.Type,
	})
	action := ActionSale
	if tx.Type == TransactionReturn {
		action = ActionReturn
	}
	st.Audit = append(st.Audit, AuditRecord{
		Timestamp: ts,
		Barcode:   tx.Barcode,
		Action:    action,
		Product:   tx.Product,
		Quantity:  tx.Qty,
		User:      strings.TrimSpace(in.Staff),
		Details:   details,
		ClientIP:  in.ClientIP,
		QtyBefore: tx.QtyBefore,
		QtyAfter:  tx.QtyAfter,
	})
}

func (st State) clone() State {
	return State{
		Inventory:        slices.Clone(st.Inventory),
		Archive:          slices.Clone(st.Archive),
		Sales:            slices.Clone(st.Sales),
		Audit:            slices.Clone(st.Audit),
		InventoryColumns: slices.Clone(st.InventoryColumns),
		ArchiveColumns:   slices.Clone(st.ArchiveColumns),
	}
}

func newTransaction(kind TransactionType, item Item, qty int, price decimal.Decimal, before, after int, source Source, now time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Type:      kind,
		Barcode:   item.Barcode,
		Product:   item.Product(),
		Qty:       qty,
		Price:     price,
		QtyBefore: before,
		QtyAfter:  after,
		Source:    source,
		At:        now,
	}
}

// transactionPrice uses the supplied price or falls back to the RRP, never
// going below 0.01.
func transactionPrice(raw string, item Item) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) != "" {
		price, err := records.ParsePrice(raw)
		if err != nil || price.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: invalid price %q", ErrValidation, raw)
		}
		return price.Round(2), nil
	}
	price, err := records.ParsePrice(item.RRP)
	if err != nil || price.LessThan(minSalePrice) {
		return minSalePrice, nil
	}
	return price.Round(2), nil
}

func canonicalItem(item Item) Item {
	item = item.clone()
	item.Barcode = records.CanonicalCode(item.Barcode)
	item.FrameCode = records.CanonicalCode(item.FrameCode)
	item.RRP = records.NormalizePrice(item.RRP)
	item.ExCostPrice = records.NormalizePrice(item.ExCostPrice)
	item.CostPrice = records.NormalizePrice(item.CostPrice)
	for _, f := range itemFields {
		p := f.get(&item)
		*p = strings.TrimSpace(*p)
	}
	return item
}

func checkRequired(item Item) error {
	switch {
	case item.Barcode == "":
		return fmt.Errorf("%w: barcode is required", ErrValidation)
	case item.FrameCode == "":
		return fmt.Errorf("%w: frame code is required", ErrValidation)
	case item.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	return nil
}

func indexOf(items []Item, barcode string) int {
	if barcode == "" {
		return -1
	}
	for i, item := range items {
		if item.Barcode == barcode {
			return i
		}
	}
	return -1
}

func frameCodeTaken(items []Item, code string, skip int) bool {
	if code == "" {
		return false
	}
	for i, item := range items {
		if i != skip && strings.EqualFold(item.FrameCode, code) {
			return true
		}
	}
	return false
}

func mergeExtra(prev, next map[string]string) map[string]string {
	if len(prev) == 0 {
		return next
	}
	out := make(map[string]string, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

func describe(item Item) string {
	return fmt.Sprintf("%s (frame %s, qty %d)", item.Product(), item.FrameCode, item.Quantity)
}

func customerLabel(customer string) string {
	if c := strings.TrimSpace(customer); c != "" {
		return c
	}
	return "walk-in"
}

func diffItems(prev, next Item) string {
	var changes []string
	if prev.Quantity != next.Quantity {
		changes = append(changes, fmt.Sprintf("%s %d -> %d", records.ColQuantity, prev.Quantity, next.Quantity))
	}
	for _, f := range itemFields {
		if f.column == records.ColTimestamp {
			continue
		}
		before, after := *f.get(&prev), *f.get(&next)
		if before != after {
			changes = append(changes, fmt.Sprintf("%s %q -> %q", f.column, before, after))
		}
	}
	if len(changes) == 0 {
		return "No changes"
	}
	return "Changed " + strings.Join(changes, "; ")
}
