package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 3, 10, 30, 0, 0, time.Local)

func frame(barcode, frameCode string, qty int) Item {
	return Item{
		Barcode:      barcode,
		FrameCode:    frameCode,
		Quantity:     qty,
		Manufacturer: "Ray-Ban",
		Model:        "RB2140",
		RRP:          "120.00",
	}
}

func stateWith(items ...Item) State {
	return State{Inventory: items}
}

func sellInput(barcode string, qty int) TransactionInput {
	return TransactionInput{Barcode: barcode, Qty: qty, Staff: "Ana", Customer: "Jo", ClientIP: "10.0.0.5"}
}

func TestApplyAddCanonicalizesAndAudits(t *testing.T) {
	st := stateWith(frame("100", "ACM000001", 2))

	next, changed, err := ApplyAdd(st, Item{Barcode: " 200.0 ", FrameCode: "ACM000002", Quantity: 3, RRP: "$99"}, Actor{Staff: "Ana", ClientIP: "10.0.0.5"}, fixedNow)
	require.NoError(t, err)
	require.True(t, changed.Has(TableInventory))
	require.True(t, changed.Has(TableAudit))
	require.False(t, changed.Has(TableSales))

	require.Len(t, st.Inventory, 1, "input state must not change")
	require.Len(t, next.Inventory, 2)
	added := next.Inventory[1]
	require.Equal(t, "200", added.Barcode)
	require.Equal(t, "99.00", added.RRP)
	require.Equal(t, "2024-05-03 10:30:00", added.Timestamp)

	require.Len(t, next.Audit, 1)
	rec := next.Audit[0]
	require.Equal(t, ActionAdd, rec.Action)
	require.Equal(t, "200", rec.Barcode)
	require.Equal(t, 0, rec.QtyBefore)
	require.Equal(t, 3, rec.QtyAfter)
	require.Equal(t, "Ana", rec.User)
	require.Equal(t, "10.0.0.5", rec.ClientIP)
}

func TestApplyAddDuplicateBarcodeLeavesTableUnchanged(t *testing.T) {
	st := stateWith(frame("123", "ACM000001", 1))

	next, _, err := ApplyAdd(st, frame("123.0", "ACM000009", 1), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.ErrorIs(t, err, ErrDuplicateBarcode)
	require.Len(t, next.Inventory, 1)
	require.Empty(t, next.Audit)
}

func TestApplyAddRejectsBarcodeInArchive(t *testing.T) {
	st := State{Archive: []Item{frame("555", "ACM000001", 0)}}

	_, _, err := ApplyAdd(st, frame("555", "ACM000002", 1), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrDuplicateBarcode)
}

func TestApplyAddDuplicateFrameCode(t *testing.T) {
	st := stateWith(frame("1", "acm000001", 1))

	_, _, err := ApplyAdd(st, frame("2", "ACM000001", 1), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.ErrorIs(t, err, ErrDuplicateFrameCode)
}

func TestApplyAddRequiresCodes(t *testing.T) {
	_, _, err := ApplyAdd(State{}, Item{Barcode: "\u200b", FrameCode: "X"}, Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = ApplyAdd(State{}, Item{Barcode: "1"}, Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestApplyAddAllowsZeroQuantity(t *testing.T) {
	next, _, err := ApplyAdd(State{}, frame("1", "F1", 0), Actor{}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, 0, next.Inventory[0].Quantity)
}

func TestApplyAddSkipsTimestampWhenLayoutHasNone(t *testing.T) {
	st := State{InventoryColumns: []string{"BARCODE", "FRAMENUM", "QUANTITY"}}

	next, _, err := ApplyAdd(st, frame("1", "F1", 1), Actor{}, fixedNow)
	require.NoError(t, err)
	require.Empty(t, next.Inventory[0].Timestamp)
}

func TestApplyEditExcludesOwnRow(t *testing.T) {
	st := stateWith(frame("1", "F1", 2), frame("2", "F2", 4))

	edited := frame("1", "F1", 5)
	edited.Model = "RB3025"
	next, _, err := ApplyEdit(st, "1", edited, Actor{Staff: "Ana"}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "RB3025", next.Inventory[0].Model)
	require.Equal(t, 5, next.Inventory[0].Quantity)

	rec := next.Audit[0]
	require.Equal(t, ActionEdit, rec.Action)
	require.Equal(t, 2, rec.QtyBefore)
	require.Equal(t, 5, rec.QtyAfter)
	require.Contains(t, rec.Details, `MODEL "RB2140" -> "RB3025"`)

	_, _, err = ApplyEdit(st, "1", frame("1", "F2", 2), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrDuplicateFrameCode)

	_, _, err = ApplyEdit(st, "1", frame("2", "F1", 2), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrDuplicateBarcode)

	_, _, err = ApplyEdit(st, "404", frame("404", "F9", 1), Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyEditKeepsExtraColumnsAndTimestamp(t *testing.T) {
	orig := frame("1", "F1", 2)
	orig.Timestamp = "2023-01-01 09:00:00"
	orig.Extra = map[string]string{"PHOTO": "rb.jpg"}
	st := stateWith(orig)

	next, _, err := ApplyEdit(st, "1", frame("1", "F1", 3), Actor{}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "2023-01-01 09:00:00", next.Inventory[0].Timestamp)
	require.Equal(t, "rb.jpg", next.Inventory[0].Extra["PHOTO"])
}

func TestApplyDeleteReturnsRemovedItem(t *testing.T) {
	st := stateWith(frame("1", "F1", 2), frame("2", "F2", 1))

	next, removed, changed, err := ApplyDelete(st, "1.0", Actor{}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "1", removed.Barcode)
	require.Len(t, next.Inventory, 1)
	require.False(t, changed.Has(TableArchive))
	require.Equal(t, ActionDelete, next.Audit[0].Action)
	require.Equal(t, 0, next.Audit[0].QtyAfter)

	_, _, _, err = ApplyDelete(st, "9", Actor{}, fixedNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplySaleDecrements(t *testing.T) {
	st := stateWith(frame("1", "F1", 5))

	next, tx, changed, err := ApplySale(st, sellInput("1", 2), fixedNow)
	require.NoError(t, err)
	require.Equal(t, 3, next.Inventory[0].Quantity)
	require.Equal(t, 5, st.Inventory[0].Quantity)
	require.False(t, tx.Archived)
	require.False(t, changed.Has(TableArchive))
	require.True(t, decimal.RequireFromString("120").Equal(tx.Price))
	require.NotEmpty(t, tx.ID)

	require.Len(t, next.Sales, 1)
	require.Len(t, next.Audit, 1)
	require.Equal(t, TransactionSale, next.Sales[0].Type)
	require.Equal(t, "Ana", next.Sales[0].SoldBy)
	require.Equal(t, "Sale to Jo (Inventory)", next.Audit[0].Details)
	require.Equal(t, 5, next.Audit[0].QtyBefore)
	require.Equal(t, 3, next.Audit[0].QtyAfter)
}

func TestApplySaleOfWholeStockArchives(t *testing.T) {
	st := stateWith(frame("1", "F1", 2), frame("2", "F2", 1))

	next, tx, changed, err := ApplySale(st, sellInput("1", 2), fixedNow)
	require.NoError(t, err)
	require.True(t, tx.Archived)
	require.True(t, changed.Has(TableArchive))
	require.Len(t, next.Inventory, 1)
	require.Equal(t, "2", next.Inventory[0].Barcode)
	require.Len(t, next.Archive, 1)
	require.Equal(t, "1", next.Archive[0].Barcode)
	require.Equal(t, 0, next.Archive[0].Quantity)
}

func TestApplySaleRejections(t *testing.T) {
	st := State{
		Inventory: []Item{frame("1", "F1", 2)},
		Archive:   []Item{frame("9", "F9", 0)},
	}

	next, _, _, err := ApplySale(st, sellInput("1", 3), fixedNow)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 2, next.Inventory[0].Quantity)
	require.Empty(t, next.Sales)
	require.Empty(t, next.Audit)

	_, _, _, err = ApplySale(st, sellInput("9", 1), fixedNow)
	require.ErrorIs(t, err, ErrArchivedItemNotSellable)

	_, _, _, err = ApplySale(st, sellInput("404", 1), fixedNow)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, _, err = ApplySale(st, sellInput("1", 0), fixedNow)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	in := sellInput("1", 1)
	in.Price = "abc"
	_, _, _, err = ApplySale(st, in, fixedNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestApplySalePriceFallback(t *testing.T) {
	item := frame("1", "F1", 5)
	item.RRP = ""
	st := stateWith(item)

	_, tx, _, err := ApplySale(st, sellInput("1", 1), fixedNow)
	require.NoError(t, err)
	require.Equal(t, "0.01", tx.Price.StringFixed(2))

	in := sellInput("1", 1)
	in.Price = "$89.5"
	_, tx, _, err = ApplySale(st, in, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "89.50", tx.Price.StringFixed(2))
}

func TestSellThenReturnBoundsNetSold(t *testing.T) {
	st := stateWith(frame("1", "F1", 10))

	st, _, _, err := ApplySale(st, sellInput("1", 3), fixedNow)
	require.NoError(t, err)
	st, tx, _, err := ApplyReturn(st, sellInput("1", 2), fixedNow)
	require.NoError(t, err)
	require.Equal(t, TransactionReturn, tx.Type)
	require.Equal(t, 1, NetSold(st.Sales, "1"))
	require.Equal(t, 9, st.Inventory[0].Quantity)

	_, _, _, err = ApplyReturn(st, sellInput("1", 2), fixedNow)
	require.ErrorIs(t, err, ErrOverReturn)
	require.Len(t, st.Sales, 2)
	require.Len(t, st.Audit, 2)
}

func TestReturnRestoresArchivedItem(t *testing.T) {
	st := stateWith(frame("1", "F1", 2))
	st, _, _, err := ApplySale(st, sellInput("1", 2), fixedNow)
	require.NoError(t, err)
	require.Empty(t, st.Inventory)

	st, tx, changed, err := ApplyReturn(st, sellInput("1", 1), fixedNow)
	require.NoError(t, err)
	require.Equal(t, SourceArchive, tx.Source)
	require.True(t, changed.Has(TableArchive))
	require.Empty(t, st.Archive)
	require.Len(t, st.Inventory, 1)
	require.Equal(t, 1, st.Inventory[0].Quantity)
	require.Equal(t, "Return from Jo (Archive)", st.Audit[len(st.Audit)-1].Details)
	require.Equal(t, 0, tx.QtyBefore)
	require.Equal(t, 1, tx.QtyAfter)
}

func TestReturnMergesIntoActiveRow(t *testing.T) {
	st := State{
		Inventory: []Item{frame("1", "F1", 4)},
		Archive:   []Item{frame("1", "F1", 0)},
		Sales:     []SalesRecord{{Barcode: "1", Quantity: 3, Type: TransactionSale}},
	}

	next, tx, _, err := ApplyReturn(st, sellInput("1", 2), fixedNow)
	require.NoError(t, err)
	require.Equal(t, SourceInventory, tx.Source)
	require.Equal(t, 6, next.Inventory[0].Quantity)
	require.Empty(t, next.Archive)
}

func TestReturnUnknownBarcode(t *testing.T) {
	st := State{Sales: []SalesRecord{{Barcode: "7", Quantity: 3, Type: TransactionSale}}}

	_, _, _, err := ApplyReturn(st, sellInput("7", 1), fixedNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindPrefersInventory(t *testing.T) {
	st := State{
		Inventory: []Item{frame("1", "F1", 4)},
		Archive:   []Item{frame("2", "F2", 0)},
	}
	_, src, ok := Find(st, "1.00")
	require.True(t, ok)
	require.Equal(t, SourceInventory, src)

	_, src, ok = Find(st, "2")
	require.True(t, ok)
	require.Equal(t, SourceArchive, src)

	_, _, ok = Find(st, "")
	require.False(t, ok)
}

func TestIsRejection(t *testing.T) {
	require.True(t, IsRejection(ErrDuplicateFrameCode))
	require.True(t, IsRejection(ErrOverReturn))
	require.False(t, IsRejection(nil))
	require.False(t, IsRejection(ErrNoInventoryFiles))
}
