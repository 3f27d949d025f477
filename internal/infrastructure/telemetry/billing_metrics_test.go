package telemetry

import (
	"context"
	"testing"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestBillingMetrics(t *testing.T) (*BillingMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewBillingMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := NewBillingMetrics(nil)
	assert.Error(t, err)
}

func TestBillingMetrics_RecordInvoiceIssued(t *testing.T) {
	m, reader := newTestBillingMetrics(t)
	ctx := context.Background()

	m.RecordInvoiceIssued(ctx, decimal.RequireFromString("1050.00"))
	m.RecordInvoiceIssued(ctx, decimal.RequireFromString("50.00"))

	data := collect(t, reader)

	issued, ok := data["agua_invoices_issued_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, issued.DataPoints, 1)
	assert.Equal(t, int64(2), issued.DataPoints[0].Value)

	amount, ok := data["agua_invoice_amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, amount.DataPoints, 1)
	assert.Equal(t, uint64(2), amount.DataPoints[0].Count)
	assert.InDelta(t, 1100.0, amount.DataPoints[0].Sum, 0.001)
}

func TestBillingMetrics_RecordPayment(t *testing.T) {
	m, reader := newTestBillingMetrics(t)
	ctx := context.Background()

	m.RecordPayment(ctx, billing.PaymentMethodCash, decimal.RequireFromString("500"), false)
	m.RecordPayment(ctx, billing.PaymentMethodCash, decimal.RequireFromString("697"), true)
	m.RecordPayment(ctx, billing.PaymentMethodCard, decimal.RequireFromString("100.50"), true)

	data := collect(t, reader)

	payments, ok := data["agua_payments_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range payments.DataPoints {
		method, _ := dp.Attributes.Value(attribute.Key("payment_method"))
		settled, _ := dp.Attributes.Value(attribute.Key("settled"))
		counts[method.AsString()+"/"+settled.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"CASH/false": 1,
		"CASH/true":  1,
		"CARD/true":  1,
	}, counts)

	amounts, ok := data["agua_payment_amount_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	byMethod := map[string]float64{}
	for _, dp := range amounts.DataPoints {
		method, _ := dp.Attributes.Value(attribute.Key("payment_method"))
		byMethod[method.AsString()] = dp.Value
	}
	assert.InDelta(t, 1197.0, byMethod["CASH"], 0.001)
	assert.InDelta(t, 100.5, byMethod["CARD"], 0.001)
}

func TestBillingMetrics_RecordLateFeeAssessed_IgnoresZero(t *testing.T) {
	m, reader := newTestBillingMetrics(t)
	ctx := context.Background()

	m.RecordLateFeeAssessed(ctx, decimal.Zero)
	m.RecordLateFeeAssessed(ctx, decimal.RequireFromString("147.00"))

	data := collect(t, reader)

	assessed, ok := data["agua_late_fees_assessed_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, assessed.DataPoints, 1)
	assert.Equal(t, int64(1), assessed.DataPoints[0].Value)

	amount, ok := data["agua_late_fee_amount_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, amount.DataPoints, 1)
	assert.InDelta(t, 147.0, amount.DataPoints[0].Value, 0.001)
}
