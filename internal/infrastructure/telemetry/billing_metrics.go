package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the billing counters
const MeterName = "agualoti/billing"

var (
	attrPaymentMethod = attribute.Key("payment_method")
	attrSettled       = attribute.Key("settled")
)

// BillingMetrics records invoice, payment and late fee activity.
// It satisfies the application layer's Metrics interface.
type BillingMetrics struct {
	invoicesIssued   metric.Int64Counter
	invoiceAmount    metric.Float64Histogram
	paymentsTotal    metric.Int64Counter
	paymentAmount    metric.Float64Counter
	lateFeesAssessed metric.Int64Counter
	lateFeeAmount    metric.Float64Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, fmt.Errorf("billing metrics: meter cannot be nil")
	}

	m := &BillingMetrics{}
	var err error

	if m.invoicesIssued, err = meter.Int64Counter(
		"agua_invoices_issued_total",
		metric.WithDescription("Invoices issued"),
		metric.WithUnit("{invoices}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create invoices counter: %w", err)
	}

	if m.invoiceAmount, err = meter.Float64Histogram(
		"agua_invoice_amount",
		metric.WithDescription("Total amount of issued invoices"),
		metric.WithUnit("{currency}"),
		metric.WithExplicitBucketBoundaries(MoneyBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create invoice amount histogram: %w", err)
	}

	if m.paymentsTotal, err = meter.Int64Counter(
		"agua_payments_total",
		metric.WithDescription("Payments recorded"),
		metric.WithUnit("{payments}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create payments counter: %w", err)
	}

	if m.paymentAmount, err = meter.Float64Counter(
		"agua_payment_amount_total",
		metric.WithDescription("Amount collected through payments"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create payment amount counter: %w", err)
	}

	if m.lateFeesAssessed, err = meter.Int64Counter(
		"agua_late_fees_assessed_total",
		metric.WithDescription("Late fee assessments with a positive fee"),
		metric.WithUnit("{assessments}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create late fee counter: %w", err)
	}

	if m.lateFeeAmount, err = meter.Float64Counter(
		"agua_late_fee_amount_total",
		metric.WithDescription("Late fee amount assessed"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create late fee amount counter: %w", err)
	}

	return m, nil
}

// RecordInvoiceIssued counts an invoice and observes its total
func (m *BillingMetrics) RecordInvoiceIssued(ctx context.Context, total decimal.Decimal) {
	m.invoicesIssued.Add(ctx, 1)
	m.invoiceAmount.Record(ctx, total.InexactFloat64())
}

// RecordPayment counts a payment by method and whether it settled the invoice
func (m *BillingMetrics) RecordPayment(ctx context.Context, method billing.PaymentMethod, amount decimal.Decimal, settled bool) {
	attrs := metric.WithAttributes(
		attrPaymentMethod.String(string(method)),
		attrSettled.String(strconv.FormatBool(settled)),
	)
	m.paymentsTotal.Add(ctx, 1, attrs)
	m.paymentAmount.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(attrPaymentMethod.String(string(method))))
}

// RecordLateFeeAssessed counts positive late fees only
func (m *BillingMetrics) RecordLateFeeAssessed(ctx context.Context, lateFee decimal.Decimal) {
	if !lateFee.IsPositive() {
		return
	}
	m.lateFeesAssessed.Add(ctx, 1)
	m.lateFeeAmount.Add(ctx, lateFee.InexactFloat64())
}
