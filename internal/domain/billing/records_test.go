package billing

import (
	"errors"
	"testing"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Reading Tests
// ============================================

func TestConsumptionBetween(t *testing.T) {
	c, err := ConsumptionBetween(1200, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(300), c)

	c, err = ConsumptionBetween(1200, 1200)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c)

	_, err = ConsumptionBetween(1500, 1200)
	assert.True(t, errors.Is(err, ErrInvalidReading))
}

func TestNewReading(t *testing.T) {
	clientID := uuid.New()
	r, err := NewReading(NewReadingParams{
		ClientID:    clientID,
		Previous:    100,
		Current:     350,
		PeriodStart: date("2025-01-01"),
		PeriodEnd:   date("2025-01-31"),
		At:          testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250), r.Consumption())
	assert.Equal(t, date("2025-01-31"), r.ReadOn)
	assert.False(t, r.Billed)
	require.Len(t, r.GetDomainEvents(), 1)

	invoiceID := uuid.New()
	require.NoError(t, r.MarkBilled(invoiceID, testNow))
	assert.True(t, r.Billed)
	assert.Equal(t, invoiceID, *r.InvoiceID)
	assert.True(t, errors.Is(r.MarkBilled(uuid.New(), testNow), shared.ErrInvalidState))
}

func TestNewReading_Validation(t *testing.T) {
	_, err := NewReading(NewReadingParams{
		ClientID: uuid.New(), Previous: 10, Current: 5,
		PeriodStart: date("2025-01-01"), PeriodEnd: date("2025-01-31"),
	})
	assert.True(t, errors.Is(err, ErrInvalidReading))

	_, err = NewReading(NewReadingParams{
		ClientID: uuid.New(), Previous: 1, Current: 5,
		PeriodStart: date("2025-01-31"), PeriodEnd: date("2025-01-01"),
	})
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

// ============================================
// Client Tests
// ============================================

func TestNewClient(t *testing.T) {
	c, err := NewClient(" CL-001 ", "Maria Lopez", "Calle 1", "555-0101", "M-778", testNow)
	require.NoError(t, err)
	assert.Equal(t, "CL-001", c.Code)
	assert.True(t, c.IsActive())

	require.NoError(t, c.Deactivate(testNow))
	assert.Equal(t, ClientStatusInactive, c.Status)
	assert.Error(t, c.Deactivate(testNow))

	_, err = NewClient("", "x", "", "", "", testNow)
	assert.Error(t, err)
	_, err = NewClient("CL-2", " ", "", "", "", testNow)
	assert.Error(t, err)
}

func TestFoldSearch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Peña", "pena"},
		{"  José Núñez ", "jose nunez"},
		{"CL-001 MARÍA", "cl-001 maria"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldSearch(tt.in))
		})
	}

	c, err := NewClient("CL-9", "Ramón Peña", "", "", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, "cl-9 ramon pena", c.SearchKey)
}

// ============================================
// Payment Tests
// ============================================

func TestNewPayment(t *testing.T) {
	invoiceID := uuid.New()

	p, err := NewPayment(invoiceID, decimal.RequireFromString("100.50"), date("2025-01-10"), PaymentMethodCash, " REC-1 ", uuid.New(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "REC-1", p.Reference)

	tests := []struct {
		name   string
		amount string
		method PaymentMethod
	}{
		{"zero amount", "0", PaymentMethodCash},
		{"negative amount", "-5", PaymentMethodCash},
		{"sub-cent amount", "10.005", PaymentMethodCash},
		{"unknown method", "10", PaymentMethod("BARTER")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(invoiceID, decimal.RequireFromString(tt.amount), date("2025-01-10"), tt.method, "", uuid.New(), testNow)
			assert.Error(t, err)
		})
	}
}

func TestSumPayments(t *testing.T) {
	payments := []Payment{
		{Amount: decimal.RequireFromString("100.25")},
		{Amount: decimal.RequireFromString("49.75")},
	}
	assertDecimal(t, "150", SumPayments(payments))
	assert.True(t, SumPayments(nil).IsZero())
}
