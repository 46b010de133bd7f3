package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Christophertabanag/Inventory-System/internal/codegen"
	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// RepositoryPort abstracts table persistence for the service.
type RepositoryPort interface {
	Load(ctx context.Context) (State, error)
	WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error
}

// Service coordinates ledger operations.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	metrics   MetricsPort
	generator *codegen.Generator
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Generator *codegen.Generator
	Metrics   MetricsPort
	Logger    *slog.Logger
	Clock     func() time.Time
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	svc := &Service{
		repo:      repo,
		audit:     audit,
		metrics:   cfg.Metrics,
		generator: cfg.Generator,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
	if svc.generator == nil {
		svc.generator = codegen.NewGenerator()
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// InventoryFile returns the active inventory file path when the repository
// is file backed.
func (s *Service) InventoryFile() string {
	if p, ok := s.repo.(interface{ InventoryPath() string }); ok {
		return p.InventoryPath()
	}
	return "inventory.xlsx"
}

// State returns the current tables.
func (s *Service) State(ctx context.Context) (State, error) {
	return s.repo.Load(ctx)
}

// AddItem validates and appends a new item, returning its id.
func (s *Service) AddItem(ctx context.Context, actor Actor, item Item) (string, error) {
	var id string
	err := s.checkStruct(item)
	if err == nil {
		err = s.commit(ctx, func(st State) (State, Tables, error) {
			next, changed, err := ApplyAdd(st, item, actor, s.now())
			if err == nil {
				id = next.Inventory[len(next.Inventory)-1].ID()
			}
			return next, changed, err
		})
	}
	s.observe("add", err)
	if err != nil {
		return "", err
	}
	s.logger.Info("inventory item added", slog.String("barcode", id), slog.Int("qty", item.Quantity), slog.String("user", actor.Staff))
	return id, nil
}

// RestoreItem re-adds a previously deleted item.
func (s *Service) RestoreItem(ctx context.Context, actor Actor, item Item) (string, error) {
	return s.AddItem(ctx, actor, item)
}

// EditItem overwrites the item with the given id.
func (s *Service) EditItem(ctx context.Context, actor Actor, id string, item Item) error {
	err := s.checkStruct(item)
	if err == nil {
		err = s.commit(ctx, func(st State) (State, Tables, error) {
			return ApplyEdit(st, id, item, actor, s.now())
		})
	}
	s.observe("edit", err)
	if err != nil {
		return err
	}
	s.logger.Info("inventory item edited", slog.String("id", id), slog.String("user", actor.Staff))
	return nil
}

// DeleteItem removes the item with the given id and returns it so callers
// can offer an undo.
func (s *Service) DeleteItem(ctx context.Context, actor Actor, id string) (Item, error) {
	var removed Item
	err := s.commit(ctx, func(st State) (State, Tables, error) {
		next, item, changed, err := ApplyDelete(st, id, actor, s.now())
		removed = item
		return next, changed, err
	})
	s.observe("delete", err)
	if err != nil {
		return Item{}, err
	}
	s.logger.Info("inventory item deleted", slog.String("id", id), slog.String("user", actor.Staff))
	return removed, nil
}

// Sell records a sale.
func (s *Service) Sell(ctx context.Context, in TransactionInput) (Transaction, error) {
	return s.transact(ctx, "sell", in, ApplySale)
}

// ProcessReturn records a return.
func (s *Service) ProcessReturn(ctx context.Context, in TransactionInput) (Transaction, error) {
	return s.transact(ctx, "return", in, ApplyReturn)
}

type applyFunc func(State, TransactionInput, time.Time) (State, Transaction, Tables, error)

func (s *Service) transact(ctx context.Context, op string, in TransactionInput, apply applyFunc) (Transaction, error) {
	var tx Transaction
	err := s.checkStruct(in)
	if errors.Is(err, ErrValidation) && in.Qty <= 0 {
		err = ErrInvalidQuantity
	}
	if err == nil {
		err = s.commit(ctx, func(st State) (State, Tables, error) {
			next, result, changed, err := apply(st, in, s.now())
			tx = result
			return next, changed, err
		})
	}
	s.observe(op, err)
	if err != nil {
		return Transaction{}, err
	}
	s.logger.Info("inventory transaction recorded",
		slog.String("type", string(tx.Type)),
		slog.String("barcode", tx.Barcode),
		slog.Int("qty", tx.Qty),
		slog.Int("qty_after", tx.QtyAfter),
		slog.String("source", string(tx.Source)),
		slog.Bool("archived", tx.Archived))
	return tx, nil
}

// Lookup finds an item in the inventory or archive with its sales totals.
func (s *Service) Lookup(ctx context.Context, barcode string) (Lookup, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return Lookup{}, err
	}
	item, source, ok := Find(st, barcode)
	if !ok {
		return Lookup{}, fmt.Errorf("%w: %s", ErrNotFound, barcode)
	}
	sold, returned := soldAndReturned(st.Sales, item.Barcode)
	var history []SalesRecord
	for i := len(st.Sales) - 1; i >= 0; i-- {
		if st.Sales[i].Barcode == item.Barcode {
			history = append(history, st.Sales[i])
		}
	}
	return Lookup{
		Item:          item,
		Source:        source,
		TotalSold:     sold,
		TotalReturned: returned,
		NetSold:       sold - returned,
		History:       history,
	}, nil
}

// NextBarcode generates a barcode unused by inventory and archive.
func (s *Service) NextBarcode(ctx context.Context) (string, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return "", err
	}
	existing := make(map[string]struct{}, len(st.Inventory)+len(st.Archive))
	for _, item := range st.Inventory {
		existing[item.Barcode] = struct{}{}
	}
	for _, item := range st.Archive {
		existing[item.Barcode] = struct{}{}
	}
	return s.generator.GenerateBarcode(existing)
}

// NextFrameCode generates the next frame code for a supplier.
func (s *Service) NextFrameCode(ctx context.Context, supplier string) (string, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return "", err
	}
	codes := make([]string, 0, len(st.Inventory)+len(st.Archive))
	for _, item := range st.Inventory {
		codes = append(codes, item.FrameCode)
	}
	for _, item := range st.Archive {
		codes = append(codes, item.FrameCode)
	}
	return codegen.GenerateFrameCode(supplier, codes)
}

// Defaults returns suggested values for the add form.
func (s *Service) Defaults(ctx context.Context) (map[string]string, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return SmartDefaults(st.Inventory, s.now()), nil
}

// commit runs apply inside a repository transaction and mirrors the audit
// records it produced once the files are written.
func (s *Service) commit(ctx context.Context, apply func(State) (State, Tables, error)) error {
	var fresh []AuditRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		before := len(tx.State.Audit)
		next, changed, err := apply(tx.State)
		if err != nil {
			return err
		}
		tx.Commit(next, changed)
		if len(next.Audit) > before {
			fresh = next.Audit[before:]
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.mirror(ctx, fresh)
	return nil
}

func (s *Service) checkStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch name {
	case "Barcode":
		name = records.ColBarcode
	case "FrameCode":
		name = records.ColFrameNum
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		return name + " is invalid"
	}
}
