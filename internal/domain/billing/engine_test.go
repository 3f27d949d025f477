package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual),
		append([]interface{}{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

// ============================================
// Tariff Pricing Tests
// ============================================

func TestTariffSchedule_Price(t *testing.T) {
	tariff := DefaultTariffSchedule()

	tests := []struct {
		name          string
		consumption   int64
		overageVolume int64
		overageCost   string
		subtotal      string
		total         string
	}{
		{"zero consumption pays base fee", 0, 0, "0", "50.00", "50"},
		{"within included volume", 1200, 0, "0", "50.00", "50"},
		{"exactly included volume", 3000, 0, "0", "50.00", "50"},
		{"one unit over", 3001, 1, "0.50", "50.50", "51"},
		{"reference scenario", 5000, 2000, "1000.00", "1050.00", "1050"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tariff.Price(tt.consumption)
			require.NoError(t, err)
			assert.Equal(t, tt.consumption, b.Consumption)
			assert.Equal(t, tt.overageVolume, b.OverageVolume)
			assertDecimal(t, "50", b.BaseFee)
			assertDecimal(t, tt.overageCost, b.OverageCost)
			assertDecimal(t, tt.subtotal, b.Subtotal)
			assertDecimal(t, tt.total, b.TotalAmount)
		})
	}
}

func TestTariffSchedule_Price_SubtotalKeepsCentsTotalDoesNot(t *testing.T) {
	tariff := TariffSchedule{
		BaseFee:        decimal.RequireFromString("50.00"),
		IncludedVolume: 10,
		OverageRate:    decimal.RequireFromString("0.125"),
	}

	b, err := tariff.Price(11)
	require.NoError(t, err)
	assertDecimal(t, "0.13", b.OverageCost)
	assertDecimal(t, "50.13", b.Subtotal)
	assertDecimal(t, "50", b.TotalAmount)
	assert.Equal(t, "50.13", b.Subtotal.StringFixed(2))
}

func TestTariffSchedule_Price_NegativeConsumption(t *testing.T) {
	_, err := DefaultTariffSchedule().Price(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConsumption))

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "consumption", domainErr.Field)
}

func TestTariffSchedule_Price_InvalidSchedule(t *testing.T) {
	tariff := DefaultTariffSchedule()
	tariff.OverageRate = decimal.NewFromInt(-1)

	_, err := tariff.Price(10)
	assert.True(t, errors.Is(err, ErrInvalidTariff))
}

func TestTariffSchedule_Price_Monotonic(t *testing.T) {
	tariff := DefaultTariffSchedule()

	prev, err := tariff.Price(0)
	require.NoError(t, err)
	for c := int64(1); c <= 12000; c += 7 {
		cur, err := tariff.Price(c)
		require.NoError(t, err)
		assert.True(t, cur.TotalAmount.GreaterThanOrEqual(prev.TotalAmount), "total decreased at consumption %d", c)
		prev = cur
	}
}

func TestTariffSchedule_Price_ThresholdContinuity(t *testing.T) {
	tariff := DefaultTariffSchedule()

	at, err := tariff.Price(tariff.IncludedVolume)
	require.NoError(t, err)
	assert.True(t, at.OverageCost.IsZero())

	over, err := tariff.Price(tariff.IncludedVolume + 1)
	require.NoError(t, err)
	assert.True(t, over.OverageCost.Equal(tariff.OverageRate.Round(2)))
}

// ============================================
// Mora Accrual Tests
// ============================================

func TestMoraPolicy_Accrue_ReferenceScenario(t *testing.T) {
	policy := DefaultMoraPolicy()

	a := policy.Accrue(date("2025-01-01"), date("2025-03-05"), decimal.NewFromInt(1050), InvoiceStatusPending)

	assert.Equal(t, 63, a.DaysOverdue)
	assert.Equal(t, 2, a.MonthsOverdue)
	assertDecimal(t, "147.00", a.LateFee)
	assertDecimal(t, "1197.00", a.TotalWithLateFee)
	assert.True(t, a.IsOverdue())
	assert.Equal(t, date("2025-03-05"), a.EvaluatedOn)
}

func TestMoraPolicy_Accrue_Buckets(t *testing.T) {
	policy := DefaultMoraPolicy()
	due := date("2025-01-01")
	total := decimal.NewFromInt(1000)

	tests := []struct {
		name   string
		evalOn time.Time
		days   int
		months int
		fee    string
	}{
		{"first day overdue counts one bucket", due.AddDate(0, 0, 1), 1, 1, "70.00"},
		{"29 days is one bucket", due.AddDate(0, 0, 29), 29, 1, "70.00"},
		{"30 days is one bucket", due.AddDate(0, 0, 30), 30, 1, "70.00"},
		{"59 days floors to one bucket", due.AddDate(0, 0, 59), 59, 1, "70.00"},
		{"60 days is two buckets", due.AddDate(0, 0, 60), 60, 2, "140.00"},
		{"a year is twelve buckets", due.AddDate(0, 0, 365), 365, 12, "840.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := policy.Accrue(due, tt.evalOn, total, InvoiceStatusPending)
			assert.Equal(t, tt.days, a.DaysOverdue)
			assert.Equal(t, tt.months, a.MonthsOverdue)
			assertDecimal(t, tt.fee, a.LateFee)
		})
	}
}

func TestMoraPolicy_Accrue_NoFeeOnOrBeforeDueDate(t *testing.T) {
	policy := DefaultMoraPolicy()
	due := date("2025-06-15")
	total := decimal.NewFromInt(1050)

	for _, status := range []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusVoided} {
		for offset := -90; offset <= 0; offset += 15 {
			a := policy.Accrue(due, due.AddDate(0, 0, offset), total, status)
			assert.Equal(t, 0, a.DaysOverdue, "status %s offset %d", status, offset)
			assert.True(t, a.LateFee.IsZero(), "status %s offset %d", status, offset)
			assert.True(t, a.TotalWithLateFee.Equal(total))
		}
	}
}

func TestMoraPolicy_Accrue_PaidAndVoidedAreImmune(t *testing.T) {
	policy := DefaultMoraPolicy()
	due := date("2020-01-01")
	farFuture := date("2030-01-01")

	for _, status := range []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusVoided} {
		t.Run(status.String(), func(t *testing.T) {
			a := policy.Accrue(due, farFuture, decimal.NewFromInt(1050), status)
			assert.Equal(t, 0, a.DaysOverdue)
			assert.Equal(t, 0, a.MonthsOverdue)
			assert.True(t, a.LateFee.IsZero())
		})
	}
}

func TestMoraPolicy_Accrue_Idempotent(t *testing.T) {
	policy := DefaultMoraPolicy()
	due := date("2025-01-01")
	evalOn := date("2025-04-17")
	total := decimal.NewFromInt(733)

	first := policy.Accrue(due, evalOn, total, InvoiceStatusPending)
	second := policy.Accrue(due, evalOn, total, InvoiceStatusPending)
	assert.Equal(t, first, second)

	same := policy.Accrue(due, due, total, InvoiceStatusPending)
	assert.Equal(t, 0, same.DaysOverdue)
	assert.True(t, same.LateFee.IsZero())
}

func TestMoraPolicy_Accrue_IgnoresTimeOfDay(t *testing.T) {
	policy := DefaultMoraPolicy()
	due := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	evalOn := time.Date(2025, 1, 2, 0, 1, 0, 0, time.UTC)

	a := policy.Accrue(due, evalOn, decimal.NewFromInt(100), InvoiceStatusPending)
	assert.Equal(t, 1, a.DaysOverdue)

	sameDay := policy.Accrue(due, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(100), InvoiceStatusPending)
	assert.Equal(t, 0, sameDay.DaysOverdue)
}

func TestMoraPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultMoraPolicy().Validate())
	assert.Error(t, MoraPolicy{MonthlyRate: decimal.NewFromInt(-1), PeriodDays: 30}.Validate())
	assert.Error(t, MoraPolicy{MonthlyRate: DefaultMoraRate, PeriodDays: 0}.Validate())
}

// ============================================
// Date Validation Tests
// ============================================

func TestValidateDates(t *testing.T) {
	tests := []struct {
		name        string
		issue       string
		due         string
		periodStart string
		periodEnd   string
		field       string
	}{
		{"valid", "2025-01-01", "2025-01-31", "2024-12-01", "2024-12-31", ""},
		{"due equals issue", "2025-01-01", "2025-01-01", "2024-12-01", "2024-12-31", "due_date"},
		{"due before issue", "2025-01-10", "2025-01-01", "2024-12-01", "2024-12-31", "due_date"},
		{"period inverted", "2025-01-01", "2025-02-01", "2025-02-01", "2025-01-01", "period_end"},
		{"empty period", "2025-01-01", "2025-02-01", "2025-01-01", "2025-01-01", "period_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDates(date(tt.issue), date(tt.due), date(tt.periodStart), date(tt.periodEnd))
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDateRange))
			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.field, domainErr.Field)
		})
	}
}

func TestParseInvoiceDates(t *testing.T) {
	d, err := ParseInvoiceDates("2025-01-01", "2025-01-31", "2024-12-01", "2024-12-31T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, date("2024-12-31"), d.PeriodEnd)

	_, err = ParseInvoiceDates("2025-01-01", "31/01/2025", "2024-12-01", "2024-12-31")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "due_date", domainErr.Field)

	_, err = ParseInvoiceDates("", "2025-01-31", "2024-12-01", "2024-12-31")
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 63, DaysBetween(date("2025-01-01"), date("2025-03-05")))
	assert.Equal(t, -1, DaysBetween(date("2025-01-02"), date("2025-01-01")))
	assert.Equal(t, 366, DaysBetween(date("2024-01-01"), date("2025-01-01")))
}

// ============================================
// Engine Tests
// ============================================

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.DueDays = 0
	_, err := NewEngine(cfg)
	assert.True(t, errors.Is(err, ErrInvalidTariff))

	_, err = NewEngine(DefaultEngineConfig())
	assert.NoError(t, err)
}

func TestEngine_SeparateRegimes(t *testing.T) {
	standard := MustNewEngine(DefaultEngineConfig())

	cfg := DefaultEngineConfig()
	cfg.Tariff.BaseFee = decimal.NewFromInt(80)
	cfg.Tariff.IncludedVolume = 1000
	premium := MustNewEngine(cfg)

	a, err := standard.PriceTariff(2000)
	require.NoError(t, err)
	b, err := premium.PriceTariff(2000)
	require.NoError(t, err)

	assertDecimal(t, "50", a.TotalAmount)
	assertDecimal(t, "580", b.TotalAmount)
}

func TestEngine_DeriveDueDate(t *testing.T) {
	e := MustNewEngine(DefaultEngineConfig())
	assert.Equal(t, date("2025-01-31"), e.DeriveDueDate(time.Date(2025, 1, 1, 15, 4, 5, 0, time.UTC)))
}

func TestEngine_ValidateDueDateAmendment(t *testing.T) {
	issue := date("2025-01-01")
	lenient := MustNewEngine(DefaultEngineConfig())

	strictCfg := DefaultEngineConfig()
	strictCfg.RequireJustification = true
	strict := MustNewEngine(strictCfg)

	t.Run("empty justification defaults to sentinel", func(t *testing.T) {
		note, err := lenient.ValidateDueDateAmendment(InvoiceStatusPending, issue, date("2025-02-15"), "  ")
		require.NoError(t, err)
		assert.Equal(t, JustificationNotSpecified, note)
	})

	t.Run("justification kept", func(t *testing.T) {
		note, err := lenient.ValidateDueDateAmendment(InvoiceStatusPending, issue, date("2025-02-15"), "meter replaced")
		require.NoError(t, err)
		assert.Equal(t, "meter replaced", note)
	})

	t.Run("strict policy requires justification", func(t *testing.T) {
		_, err := strict.ValidateDueDateAmendment(InvoiceStatusPending, issue, date("2025-02-15"), "")
		assert.True(t, errors.Is(err, ErrMissingJustification))
	})

	t.Run("paid and voided invoices are immutable", func(t *testing.T) {
		for _, s := range []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusVoided} {
			_, err := lenient.ValidateDueDateAmendment(s, issue, date("2025-02-15"), "x")
			assert.True(t, errors.Is(err, ErrImmutableInvoiceState))
		}
	})

	t.Run("new due date must follow issue date", func(t *testing.T) {
		_, err := lenient.ValidateDueDateAmendment(InvoiceStatusPending, issue, issue, "x")
		assert.True(t, errors.Is(err, ErrInvalidDateRange))
	})
}
