package billing

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardService builds the administrative overview
type DashboardService struct {
	engine      *billing.Engine
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	clientRepo  billing.ClientRepository
	clock       Clock
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	engine *billing.Engine,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	clientRepo billing.ClientRepository,
	clock Clock,
	logger *zap.Logger,
) *DashboardService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		engine:      engine,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		clientRepo:  clientRepo,
		clock:       clock,
		logger:      logger,
	}
}

// Summary computes invoice counts, amounts and accrued mora as they stood at
// the end of a day. Only invoices issued by then count, each in the status it
// held that day, and balances net only the payments received by then.
// An empty asOf means today.
func (s *DashboardService) Summary(ctx context.Context, asOf string) (*DashboardSummary, error) {
	day, err := parseDateOr("as_of", asOf, billing.DateOf(s.clock.Now()))
	if err != nil {
		return nil, err
	}

	active := billing.ClientStatusActive
	activeClients, err := s.clientRepo.Count(ctx, billing.ClientFilter{Filter: shared.DefaultFilter(), Status: &active})
	if err != nil {
		return nil, err
	}

	totals, err := s.invoiceRepo.StatusTotals(ctx, day)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		AsOf:              billing.FormatDate(day),
		ActiveClients:     activeClients,
		BilledAmount:      decimal.Zero,
		OutstandingAmount: decimal.Zero,
		AccruedMora:       decimal.Zero,
	}
	for _, t := range totals {
		switch t.Status {
		case billing.InvoiceStatusPaid:
			summary.Invoices.Paid = t.Count
			summary.BilledAmount = summary.BilledAmount.Add(t.TotalAmount)
		case billing.InvoiceStatusPending:
			summary.BilledAmount = summary.BilledAmount.Add(t.TotalAmount)
		case billing.InvoiceStatusVoided:
			summary.Invoices.Voided = t.Count
		}
	}

	if err := s.addPending(ctx, day, summary); err != nil {
		return nil, err
	}

	summary.CollectedAmount, err = s.paymentRepo.SumCollected(ctx, day)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// addPending splits the invoices open at day into pending and overdue and
// adds their unpaid balance and mora at day
func (s *DashboardService) addPending(ctx context.Context, day time.Time, summary *DashboardSummary) error {
	open, err := s.invoiceRepo.FindOpenAsOf(ctx, day)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(open))
	for i := range open {
		ids[i] = open[i].ID
	}
	paid, err := s.paymentRepo.SumByInvoicesUpTo(ctx, ids, day)
	if err != nil {
		return err
	}

	for i := range open {
		inv := &open[i]
		assessment := inv.AssessMoraAsOf(s.engine, day)
		if assessment.IsOverdue() {
			summary.Invoices.Overdue++
			summary.AccruedMora = summary.AccruedMora.Add(assessment.LateFee)
		} else {
			summary.Invoices.Pending++
		}

		balance := assessment.TotalWithLateFee.Sub(paid[inv.ID])
		if balance.IsPositive() {
			summary.OutstandingAmount = summary.OutstandingAmount.Add(balance)
		}
	}

	s.logger.Debug("Dashboard open invoices evaluated",
		zap.Int("open", len(open)),
		zap.Time("as_of", day))
	return nil
}
