package inventory

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// Tx carries the working state of one load-modify-save cycle. Callbacks set
// State and mark the tables they changed; only those are written back.
type Tx struct {
	State   State
	changed Tables
}

// Commit replaces the working state and records the changed tables.
func (tx *Tx) Commit(st State, changed Tables) {
	tx.State = st
	tx.changed |= changed
}

// Changed returns the tables marked so far.
func (tx *Tx) Changed() Tables {
	return tx.changed
}

// FilePaths names the four table files.
type FilePaths struct {
	Inventory string
	Archive   string
	Sales     string
	Audit     string
}

// Repository persists the ledger tables as spreadsheet files.
type Repository struct {
	inventory *records.FileStore
	archive   *records.FileStore
	sales     *records.FileStore
	audit     *records.FileStore

	mu    sync.Mutex
	loads singleflight.Group
}

// NewRepository constructs a file backed Repository.
func NewRepository(paths FilePaths) *Repository {
	return &Repository{
		inventory: records.NewFileStore(paths.Inventory, records.InventorySchema),
		archive:   records.NewFileStore(paths.Archive, records.InventorySchema),
		sales:     records.NewFileStore(paths.Sales, records.SalesSchema),
		audit:     records.NewFileStore(paths.Audit, records.AuditSchema),
	}
}

// InventoryPath returns the active inventory file path.
func (r *Repository) InventoryPath() string {
	return r.inventory.Path
}

// Load reads all four tables. Concurrent callers share one read. A missing
// inventory file is fatal; the other tables start empty.
func (r *Repository) Load(ctx context.Context) (State, error) {
	v, err, _ := r.loads.Do("state", func() (any, error) {
		return r.load(ctx)
	})
	if err != nil {
		return State{}, err
	}
	return v.(State).clone(), nil
}

func (r *Repository) load(ctx context.Context) (State, error) {
	var inv, arc, sales, audit records.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.inventory.Load(gctx)
		inv = t
		return err
	})
	g.Go(func() error {
		t, err := r.archive.LoadOrEmpty(gctx)
		arc = t
		return err
	})
	g.Go(func() error {
		t, err := r.sales.LoadOrEmpty(gctx)
		sales = t
		return err
	})
	g.Go(func() error {
		t, err := r.audit.LoadOrEmpty(gctx)
		audit = t
		return err
	})
	if err := g.Wait(); err != nil {
		return State{}, err
	}
	if arc.Len() == 0 {
		arc.Columns = inv.Columns
	}
	return State{
		Inventory:        ItemsFromTable(inv),
		Archive:          ItemsFromTable(arc),
		Sales:            SalesFromTable(sales),
		Audit:            AuditFromTable(audit),
		InventoryColumns: inv.Columns,
		ArchiveColumns:   arc.Columns,
	}, nil
}

// WithTx loads the tables, runs fn and saves the tables fn changed. Writers
// are serialised within the process; nothing is written when fn fails.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.load(ctx)
	if err != nil {
		return err
	}
	tx := &Tx{State: st}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return r.save(ctx, tx.State, tx.changed)
}

func (r *Repository) save(ctx context.Context, st State, changed Tables) error {
	if changed.Has(TableInventory) {
		if err := r.inventory.Save(ctx, ItemsToTable(st.Inventory, st.InventoryColumns)); err != nil {
			return fmt.Errorf("inventory: save inventory: %w", err)
		}
	}
	if changed.Has(TableArchive) {
		columns := st.ArchiveColumns
		if len(columns) == 0 {
			columns = st.InventoryColumns
		}
		if err := r.archive.Save(ctx, ItemsToTable(st.Archive, columns)); err != nil {
			return fmt.Errorf("inventory: save archive: %w", err)
		}
	}
	if changed.Has(TableSales) {
		if err := r.sales.Save(ctx, SalesToTable(st.Sales)); err != nil {
			return fmt.Errorf("inventory: save sales log: %w", err)
		}
	}
	if changed.Has(TableAudit) {
		if err := r.audit.Save(ctx, AuditToTable(st.Audit)); err != nil {
			return fmt.Errorf("inventory: save audit log: %w", err)
		}
	}
	return nil
}
