package billing

import (
	"fmt"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Default tariff values used when no schedule is configured.
var (
	DefaultBaseFee        = decimal.NewFromInt(50)
	DefaultIncludedVolume = int64(3000)
	DefaultOverageRate    = decimal.RequireFromString("0.50")
)

// TariffSchedule maps consumption to a charge: a flat base fee covers
// IncludedVolume units and every unit beyond it is charged at OverageRate.
type TariffSchedule struct {
	BaseFee        decimal.Decimal `json:"base_fee"`
	IncludedVolume int64           `json:"included_volume"`
	OverageRate    decimal.Decimal `json:"overage_rate"`
}

// DefaultTariffSchedule returns the standard residential schedule
func DefaultTariffSchedule() TariffSchedule {
	return TariffSchedule{
		BaseFee:        DefaultBaseFee,
		IncludedVolume: DefaultIncludedVolume,
		OverageRate:    DefaultOverageRate,
	}
}

// Validate checks that every tariff value is non-negative
func (t TariffSchedule) Validate() error {
	if t.BaseFee.IsNegative() {
		return shared.NewFieldError(CodeInvalidTariff, "base_fee", "Base fee cannot be negative")
	}
	if t.IncludedVolume < 0 {
		return shared.NewFieldError(CodeInvalidTariff, "included_volume", "Included volume cannot be negative")
	}
	if t.OverageRate.IsNegative() {
		return shared.NewFieldError(CodeInvalidTariff, "overage_rate", "Overage rate cannot be negative")
	}
	return nil
}

// PricingBreakdown is the monetary result of pricing one billing period.
// Subtotal keeps cents; TotalAmount is rounded to whole units.
type PricingBreakdown struct {
	Consumption   int64           `json:"consumption"`
	BaseFee       decimal.Decimal `json:"base_fee"`
	OverageVolume int64           `json:"overage_volume"`
	OverageCost   decimal.Decimal `json:"overage_cost"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Price computes the breakdown for a consumption volume.
func (t TariffSchedule) Price(consumption int64) (PricingBreakdown, error) {
	if consumption < 0 {
		return PricingBreakdown{}, shared.NewFieldError(CodeInvalidConsumption, "consumption",
			fmt.Sprintf("Consumption %d is negative", consumption))
	}
	if err := t.Validate(); err != nil {
		return PricingBreakdown{}, err
	}

	overageVolume := consumption - t.IncludedVolume
	if overageVolume < 0 {
		overageVolume = 0
	}

	overageCost := decimal.NewFromInt(overageVolume).Mul(t.OverageRate).Round(2)
	subtotal := t.BaseFee.Add(overageCost).Round(2)

	return PricingBreakdown{
		Consumption:   consumption,
		BaseFee:       t.BaseFee,
		OverageVolume: overageVolume,
		OverageCost:   overageCost,
		Subtotal:      subtotal,
		TotalAmount:   subtotal.Round(0),
	}, nil
}
