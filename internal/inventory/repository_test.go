package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

func newFileRepo(t *testing.T, inventoryCSV string) (*Repository, FilePaths) {
	t.Helper()
	dir := t.TempDir()
	paths := FilePaths{
		Inventory: filepath.Join(dir, "frames.csv"),
		Archive:   filepath.Join(dir, "archive.xlsx"),
		Sales:     filepath.Join(dir, "sales_log.xlsx"),
		Audit:     filepath.Join(dir, "audit_log.xlsx"),
	}
	require.NoError(t, os.WriteFile(paths.Inventory, []byte(inventoryCSV), 0o644))
	return NewRepository(paths), paths
}

func TestRepositoryLoadMigratesLegacyColumns(t *testing.T) {
	repo, _ := newFileRepo(t, "FRAME NO.,Manufacturer,BARCODE,QUANTITY,RRP,Shelf\nRAY000001,Ray-Ban,1001.0,2,$120,A1\n")

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Inventory, 1)
	item := st.Inventory[0]
	require.Equal(t, "1001", item.Barcode)
	require.Equal(t, "RAY000001", item.FrameCode)
	require.Equal(t, 2, item.Quantity)
	require.Equal(t, "120.00", item.RRP)
	require.Equal(t, "A1", item.Extra["Shelf"])
	require.Empty(t, st.Archive)
	require.Empty(t, st.Sales)
}

func TestRepositoryMissingInventoryIsFatal(t *testing.T) {
	repo := NewRepository(FilePaths{
		Inventory: filepath.Join(t.TempDir(), "missing.xlsx"),
		Archive:   filepath.Join(t.TempDir(), "archive.xlsx"),
		Sales:     filepath.Join(t.TempDir(), "sales.xlsx"),
		Audit:     filepath.Join(t.TempDir(), "audit.xlsx"),
	})

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, records.ErrNotFound)
}

func TestRepositoryWithTxWritesOnlyChangedTables(t *testing.T) {
	repo, paths := newFileRepo(t, "BARCODE,FRAMENUM,QUANTITY\n1,F1,2\n")
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Sell(ctx, TransactionInput{Barcode: "1", Qty: 1, Staff: "Ana"})
	require.NoError(t, err)

	_, err = os.Stat(paths.Archive)
	require.ErrorIs(t, err, os.ErrNotExist, "archive untouched while stock remains")
	_, err = os.Stat(paths.Sales)
	require.NoError(t, err)

	_, err = svc.Sell(ctx, TransactionInput{Barcode: "1", Qty: 1, Staff: "Ana"})
	require.NoError(t, err)

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, st.Inventory)
	require.Len(t, st.Archive, 1)
	require.Len(t, st.Sales, 2)
	require.Len(t, st.Audit, 2)
	require.Equal(t, TransactionSale, st.Sales[1].Type)
}

func TestRepositoryFailedCallbackWritesNothing(t *testing.T) {
	repo, paths := newFileRepo(t, "BARCODE,FRAMENUM,QUANTITY\n1,F1,2\n")
	before, err := os.ReadFile(paths.Inventory)
	require.NoError(t, err)

	svc := NewService(repo, nil, ServiceConfig{})
	_, err = svc.Sell(context.Background(), TransactionInput{Barcode: "1", Qty: 5})
	require.ErrorIs(t, err, ErrInsufficientStock)

	after, err := os.ReadFile(paths.Inventory)
	require.NoError(t, err)
	require.Equal(t, before, after)
	_, err = os.Stat(paths.Audit)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositoryInventoryPath(t *testing.T) {
	repo, paths := newFileRepo(t, "BARCODE,FRAMENUM,QUANTITY\n")
	svc := NewService(repo, nil, ServiceConfig{})
	require.Equal(t, paths.Inventory, svc.InventoryFile())
}

func TestRepositoryKeepsUnparsableQuantityCell(t *testing.T) {
	repo, paths := newFileRepo(t, "BARCODE,FRAMENUM,QUANTITY\n1001,ACM000001,2\n1002,ACM000002,abc\n")
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, st.Inventory[1].Quantity)

	_, err = svc.Sell(ctx, TransactionInput{Barcode: "1001", Qty: 1, Staff: "Ana"})
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.Inventory)
	require.NoError(t, err)
	require.Contains(t, string(raw), "1002,ACM000002,abc")
	require.Contains(t, string(raw), "1001,ACM000001,1")
}
