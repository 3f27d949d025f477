package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService records payments and settles invoices
type PaymentService struct {
	engine      *billing.Engine
	paymentRepo billing.PaymentRepository
	txScope     TransactionScope
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	events      shared.EventPublisher
	metrics     Metrics
	clock       Clock
	logger      *zap.Logger
}

// PaymentServiceDeps groups the collaborators of PaymentService
type PaymentServiceDeps struct {
	Engine      *billing.Engine
	PaymentRepo billing.PaymentRepository
	TxScope     TransactionScope
	Idempotency shared.IdempotencyStore
	IdemConfig  shared.IdempotencyConfig
	Events      shared.EventPublisher
	Metrics     Metrics
	Clock       Clock
	Logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.IdemConfig.TTL <= 0 {
		deps.IdemConfig = shared.DefaultIdempotencyConfig()
	}
	return &PaymentService{
		engine:      deps.Engine,
		paymentRepo: deps.PaymentRepo,
		txScope:     deps.TxScope,
		idempotency: deps.Idempotency,
		idemConfig:  deps.IdemConfig,
		events:      deps.Events,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// Record applies a payment to an invoice. The invoice becomes paid once the
// cumulative payments cover its total plus the mora accrued at the payment
// date. A non-empty idempotency key makes retries of the same request fail
// with ErrDuplicateRequest instead of recording twice.
func (s *PaymentService) Record(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest, operatorID uuid.UUID, idempotencyKey string) (_ *RecordPaymentResponse, err error) {
	ctx, span := startSpan(ctx, "payment.record")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("invoice_id", invoiceID.String()),
		attribute.String("method", req.Method),
	)

	release, err := s.claim(ctx, invoiceID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	now := s.clock.Now()
	paidOn, err := parseDateOr("paid_on", req.PaidOn, billing.DateOf(now))
	if err != nil {
		return nil, err
	}

	var (
		invoice    *billing.Invoice
		payment    *billing.Payment
		settlement billing.Settlement
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := invoice.CheckPayable(paidOn); err != nil {
			return err
		}

		payment, err = billing.NewPayment(invoice.ID, req.Amount, paidOn, billing.PaymentMethod(req.Method), req.Reference, operatorID, now)
		if err != nil {
			return err
		}

		paidSoFar, err := repos.Payments().SumByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}
		paidTotal := paidSoFar.Add(payment.Amount)

		due := invoice.AssessMora(s.engine, paidOn).TotalWithLateFee
		if paidTotal.GreaterThan(due) {
			return shared.NewFieldError(billing.CodeInvalidAmount, "amount",
				fmt.Sprintf("Payment exceeds the amount due of %s", due.Sub(paidSoFar).StringFixed(2)))
		}

		settlement, err = invoice.ApplyPayment(s.engine, paidTotal, paidOn, operatorID, now)
		if err != nil {
			return err
		}

		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
		if settlement.Settled {
			return repos.Invoices().SaveWithLock(ctx, invoice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Bool("settled", settlement.Settled))

	s.metrics.RecordPayment(ctx, payment.Method, payment.Amount, settlement.Settled)
	if settlement.Settled && settlement.Assessment.LateFee.IsPositive() {
		s.metrics.RecordLateFeeAssessed(ctx, settlement.Assessment.LateFee)
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, billing.NewPaymentRecordedEvent(payment, invoice, settlement.Settled)); err != nil {
			s.logger.Warn("Failed to publish payment event", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	}
	publishEvents(ctx, s.events, s.logger, invoice)

	return &RecordPaymentResponse{
		Payment: ToPaymentResponse(payment),
		Settlement: SettlementResponse{
			AmountDue: settlement.AmountDue,
			LateFee:   settlement.Assessment.LateFee,
			PaidTotal: settlement.PaidTotal,
			Remaining: settlement.Remaining,
			Settled:   settlement.Settled,
		},
		Invoice: ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, billing.DateOf(now))),
	}, nil
}

// claim marks the idempotency key as used and returns a function that frees it
func (s *PaymentService) claim(ctx context.Context, invoiceID uuid.UUID, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return noop, nil
	}

	scoped := "payment:" + invoiceID.String() + ":" + key
	fresh, err := s.idempotency.MarkProcessed(ctx, scoped, s.idemConfig.TTL)
	if err != nil {
		return noop, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !fresh {
		return noop, ErrDuplicateRequest
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.idempotency.Release(releaseCtx, scoped); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", scoped), zap.Error(err))
		}
	}, nil
}

// ListForInvoice returns the payments of an invoice, oldest first
func (s *PaymentService) ListForInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoicePaymentsResponse, error) {
	payments, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return &InvoicePaymentsResponse{
		Payments:  responses,
		PaidTotal: billing.SumPayments(payments),
	}, nil
}
