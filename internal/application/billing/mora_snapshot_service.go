package billing

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MoraSnapshotService persists recomputed mora for overdue pending invoices.
// Invoices themselves are never modified; status stays pending.
type MoraSnapshotService struct {
	engine       *billing.Engine
	invoiceRepo  billing.InvoiceRepository
	snapshotRepo billing.MoraSnapshotRepository
	metrics      Metrics
	clock        Clock
	logger       *zap.Logger
}

// NewMoraSnapshotService creates a new MoraSnapshotService
func NewMoraSnapshotService(
	engine *billing.Engine,
	invoiceRepo billing.InvoiceRepository,
	snapshotRepo billing.MoraSnapshotRepository,
	metrics Metrics,
	clock Clock,
	logger *zap.Logger,
) *MoraSnapshotService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoraSnapshotService{
		engine:       engine,
		invoiceRepo:  invoiceRepo,
		snapshotRepo: snapshotRepo,
		metrics:      metrics,
		clock:        clock,
		logger:       logger,
	}
}

// SnapshotPending stores one snapshot per pending invoice that is overdue on evaluatedOn.
// Running it twice for the same day replaces the earlier snapshots.
// A failure on one invoice is logged and counted; the run continues.
func (s *MoraSnapshotService) SnapshotPending(ctx context.Context, evaluatedOn time.Time) (_ *SnapshotRunResult, err error) {
	ctx, span := startSpan(ctx, "mora.snapshot_pending")
	defer func() { endSpan(span, err) }()

	day := billing.DateOf(evaluatedOn)
	invoices, err := s.invoiceRepo.FindPending(ctx, &day)
	if err != nil {
		return nil, err
	}

	result := &SnapshotRunResult{
		EvaluatedOn: billing.FormatDate(day),
		TotalMora:   decimal.Zero,
	}
	now := s.clock.Now()
	for i := range invoices {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		inv := &invoices[i]
		assessment := inv.AssessMora(s.engine, day)
		if !assessment.IsOverdue() {
			continue
		}

		if err := s.snapshotRepo.Upsert(ctx, billing.NewMoraSnapshot(inv.ID, assessment, now)); err != nil {
			result.Failed++
			s.logger.Warn("Failed to store mora snapshot",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
			continue
		}
		result.Invoices++
		result.TotalMora = result.TotalMora.Add(assessment.LateFee)
		s.metrics.RecordLateFeeAssessed(ctx, assessment.LateFee)
	}

	s.logger.Info("Mora snapshot completed",
		zap.String("evaluated_on", result.EvaluatedOn),
		zap.Int("invoices", result.Invoices),
		zap.Int("failed", result.Failed),
		zap.String("total_mora", result.TotalMora.String()))

	return result, nil
}

// SnapshotToday runs SnapshotPending for the current day
func (s *MoraSnapshotService) SnapshotToday(ctx context.Context) (*SnapshotRunResult, error) {
	return s.SnapshotPending(ctx, s.clock.Now())
}
