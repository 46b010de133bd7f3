package inventory

import (
	"context"
	"log/slog"

	"github.com/Christophertabanag/Inventory-System/internal/shared"
)

// AuditPort mirrors audit records to an external store.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort observes ledger operations.
type MetricsPort interface {
	ObserveLedger(op, result string)
}

// auditEntity is the entity name used for mirrored records.
const auditEntity = "frame"

func toAuditLog(rec AuditRecord) shared.AuditLog {
	return shared.AuditLog{
		Actor:    rec.User,
		Action:   string(rec.Action),
		Entity:   auditEntity,
		EntityID: rec.Barcode,
		Meta: map[string]any{
			"product":    rec.Product,
			"quantity":   rec.Quantity,
			"qty_before": rec.QtyBefore,
			"qty_after":  rec.QtyAfter,
			"details":    rec.Details,
			"client_ip":  rec.ClientIP,
		},
		At: rec.At(),
	}
}

// mirror forwards freshly written audit records. The spreadsheet stays the
// source of truth, so failures are only logged.
func (s *Service) mirror(ctx context.Context, recs []AuditRecord) {
	if s.audit == nil {
		return
	}
	for _, rec := range recs {
		if err := s.audit.Record(ctx, toAuditLog(rec)); err != nil {
			s.logger.Warn("mirror audit record",
				slog.String("barcode", rec.Barcode),
				slog.String("action", string(rec.Action)),
				slog.Any("error", err))
		}
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveLedger(op, ledgerResult(err))
	}
}

// ledgerResult separates rule violations caused by input from failures.
func ledgerResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRejection(err):
		return "rejected"
	default:
		return "error"
	}
}
