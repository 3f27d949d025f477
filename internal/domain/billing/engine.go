package billing

import (
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// JustificationNotSpecified is recorded when an amendment carries no reason
const JustificationNotSpecified = "not specified"

// DefaultDueDays is the number of days between issue and due date
const DefaultDueDays = 30

// EngineConfig carries every tunable the calculation engine depends on
type EngineConfig struct {
	Tariff  TariffSchedule
	Mora    MoraPolicy
	DueDays int
	// RequireJustification rejects administrative amendments without a reason
	RequireJustification bool
}

// DefaultEngineConfig returns the standard tariff and mora settings
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Tariff:  DefaultTariffSchedule(),
		Mora:    DefaultMoraPolicy(),
		DueDays: DefaultDueDays,
	}
}

// Validate checks the whole configuration
func (c EngineConfig) Validate() error {
	if err := c.Tariff.Validate(); err != nil {
		return err
	}
	if err := c.Mora.Validate(); err != nil {
		return err
	}
	if c.DueDays <= 0 {
		return shared.NewFieldError(CodeInvalidTariff, "due_days", "Due days must be positive")
	}
	return nil
}

// Engine is the billing calculation engine. It is an immutable value:
// no I/O, no clock, no logging, safe for concurrent use.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates an engine after validating its configuration
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// MustNewEngine is NewEngine for configurations known to be valid
func MustNewEngine(cfg EngineConfig) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// PriceTariff prices a consumption volume
func (e *Engine) PriceTariff(consumption int64) (PricingBreakdown, error) {
	return e.cfg.Tariff.Price(consumption)
}

// AccrueLateFee computes mora at an explicit evaluation date
func (e *Engine) AccrueLateFee(dueDate, evaluationDate time.Time, totalAmount decimal.Decimal, status InvoiceStatus) LateFeeAssessment {
	return e.cfg.Mora.Accrue(dueDate, evaluationDate, totalAmount, status)
}

// ValidateDates checks issue, due and period coherence
func (e *Engine) ValidateDates(issueDate, dueDate, periodStart, periodEnd time.Time) error {
	return ValidateDates(issueDate, dueDate, periodStart, periodEnd)
}

// DeriveDueDate returns the issue date plus the configured number of due days
func (e *Engine) DeriveDueDate(issueDate time.Time) time.Time {
	return DateOf(issueDate).AddDate(0, 0, e.cfg.DueDays)
}

// ValidateDueDateAmendment checks an administrative due date change and
// returns the justification to record.
func (e *Engine) ValidateDueDateAmendment(status InvoiceStatus, issueDate, newDueDate time.Time, justification string) (string, error) {
	if status.IsTerminal() {
		return "", shared.NewFieldError(CodeImmutableInvoiceState, "due_date",
			"Due date cannot be changed on a "+strings.ToLower(status.String())+" invoice")
	}
	if !DateOf(newDueDate).After(DateOf(issueDate)) {
		return "", dateRangeError("due_date", "New due date must be after the issue date")
	}
	justification = strings.TrimSpace(justification)
	if justification == "" {
		if e.cfg.RequireJustification {
			return "", shared.NewFieldError(CodeMissingJustification, "justification", "A justification is required to change the due date")
		}
		justification = JustificationNotSpecified
	}
	return justification, nil
}
