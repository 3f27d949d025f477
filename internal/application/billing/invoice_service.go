package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrReadingAlreadyBilled is returned when an invoice already exists for a reading
var ErrReadingAlreadyBilled = shared.NewDomainError("READING_ALREADY_BILLED", "An invoice has already been generated for this reading")

// InvoiceService issues invoices and serves them with their current mora
type InvoiceService struct {
	engine       *billing.Engine
	invoiceRepo  billing.InvoiceRepository
	clientRepo   billing.ClientRepository
	snapshotRepo billing.MoraSnapshotRepository
	txScope      TransactionScope
	events       shared.EventPublisher
	metrics      Metrics
	clock        Clock
	logger       *zap.Logger
}

// InvoiceServiceDeps groups the collaborators of InvoiceService
type InvoiceServiceDeps struct {
	Engine       *billing.Engine
	InvoiceRepo  billing.InvoiceRepository
	ClientRepo   billing.ClientRepository
	SnapshotRepo billing.MoraSnapshotRepository
	TxScope      TransactionScope
	Events       shared.EventPublisher
	Metrics      Metrics
	Clock        Clock
	Logger       *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(deps InvoiceServiceDeps) *InvoiceService {
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &InvoiceService{
		engine:       deps.Engine,
		invoiceRepo:  deps.InvoiceRepo,
		clientRepo:   deps.ClientRepo,
		snapshotRepo: deps.SnapshotRepo,
		txScope:      deps.TxScope,
		events:       deps.Events,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		logger:       deps.Logger,
	}
}

func (s *InvoiceService) today() time.Time {
	return billing.DateOf(s.clock.Now())
}

func parseDateOr(field, value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return billing.ParseDate(field, value)
}

// =============================================================================
// Engine operations
// =============================================================================

// Quote prices a consumption volume with the configured tariff
func (s *InvoiceService) Quote(req TariffQuoteRequest) (*TariffQuoteResponse, error) {
	if req.Consumption == nil {
		return nil, shared.NewFieldError(billing.CodeInvalidConsumption, "consumption", "Consumption is required")
	}
	breakdown, err := s.engine.PriceTariff(*req.Consumption)
	if err != nil {
		return nil, err
	}
	return &TariffQuoteResponse{
		Tariff:    s.engine.Config().Tariff,
		Breakdown: breakdown,
	}, nil
}

// AssessFigures computes mora for explicit invoice figures.
// An empty evaluation date means today.
func (s *InvoiceService) AssessFigures(req AssessMoraRequest) (*MoraResponse, error) {
	dueDate, err := billing.ParseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	evaluationDate, err := parseDateOr("evaluation_date", req.EvaluationDate, s.today())
	if err != nil {
		return nil, err
	}
	if req.TotalAmount.IsNegative() {
		return nil, shared.NewFieldError(billing.CodeInvalidAmount, "total_amount", "Total amount cannot be negative")
	}
	status := billing.InvoiceStatus(req.Status)
	if !status.IsValid() {
		return nil, shared.NewFieldError(shared.ErrInvalidInput.Code, "status", "Status must be PENDING, PAID or VOIDED")
	}

	response := ToMoraResponse(s.engine.AccrueLateFee(dueDate, evaluationDate, req.TotalAmount, status))
	return &response, nil
}

// ValidateDates parses and checks a set of invoice dates
func (s *InvoiceService) ValidateDates(req ValidateDatesRequest) error {
	_, err := billing.ParseInvoiceDates(req.IssueDate, req.DueDate, req.PeriodStart, req.PeriodEnd)
	return err
}

// =============================================================================
// Invoice issuing
// =============================================================================

// GenerateFromReading issues an invoice for an unbilled reading and marks
// the reading billed in the same transaction.
func (s *InvoiceService) GenerateFromReading(ctx context.Context, req GenerateInvoiceRequest, operatorID uuid.UUID) (_ *InvoiceResponse, err error) {
	ctx, span := startSpan(ctx, "invoice.generate_from_reading")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("reading_id", req.ReadingID.String()))

	issueDate, err := parseDateOr("issue_date", req.IssueDate, s.today())
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDateOr("due_date", req.DueDate, time.Time{})
	if err != nil {
		return nil, err
	}

	var invoice *billing.Invoice
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reading, err := repos.Readings().FindByID(ctx, req.ReadingID)
		if err != nil {
			return err
		}
		if reading.Billed {
			return ErrReadingAlreadyBilled
		}
		if err := s.ensureActiveClient(ctx, reading.ClientID); err != nil {
			return err
		}

		number, err := repos.InvoiceNumbers().Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}

		now := s.clock.Now()
		invoice, err = billing.NewInvoice(s.engine, billing.NewInvoiceParams{
			Number:          number,
			ClientID:        reading.ClientID,
			ReadingID:       &reading.ID,
			PeriodStart:     reading.PeriodStart,
			PeriodEnd:       reading.PeriodEnd,
			IssueDate:       issueDate,
			DueDate:         dueDate,
			ReadingPrevious: reading.Previous,
			ReadingCurrent:  reading.Current,
			CreatedBy:       operatorID,
			At:              now,
		})
		if err != nil {
			return err
		}

		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}
		if err := reading.MarkBilled(invoice.ID, now); err != nil {
			return err
		}
		return repos.Readings().Save(ctx, reading)
	})
	if err != nil {
		return nil, err
	}

	return s.afterIssue(ctx, invoice), nil
}

// Create issues an invoice from explicit reading values
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest, operatorID uuid.UUID) (_ *InvoiceResponse, err error) {
	ctx, span := startSpan(ctx, "invoice.create")
	defer func() { endSpan(span, err) }()

	if err := s.ensureActiveClient(ctx, req.ClientID); err != nil {
		return nil, err
	}

	periodStart, err := billing.ParseDate("period_start", req.PeriodStart)
	if err != nil {
		return nil, err
	}
	periodEnd, err := billing.ParseDate("period_end", req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	issueDate, err := parseDateOr("issue_date", req.IssueDate, s.today())
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDateOr("due_date", req.DueDate, time.Time{})
	if err != nil {
		return nil, err
	}

	var invoice *billing.Invoice
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.InvoiceNumbers().Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice, err = billing.NewInvoice(s.engine, billing.NewInvoiceParams{
			Number:          number,
			ClientID:        req.ClientID,
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			IssueDate:       issueDate,
			DueDate:         dueDate,
			ReadingPrevious: req.ReadingPrevious,
			ReadingCurrent:  req.ReadingCurrent,
			CreatedBy:       operatorID,
			At:              s.clock.Now(),
		})
		if err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.afterIssue(ctx, invoice), nil
}

func (s *InvoiceService) ensureActiveClient(ctx context.Context, clientID uuid.UUID) error {
	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return err
	}
	if !client.IsActive() {
		return shared.NewFieldError(shared.ErrInvalidState.Code, "client_id", "Cannot invoice an inactive client")
	}
	return nil
}

func (s *InvoiceService) afterIssue(ctx context.Context, invoice *billing.Invoice) *InvoiceResponse {
	s.logger.Info("Invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.Int64("consumption", invoice.Consumption),
		zap.String("total_amount", invoice.TotalAmount.String()))

	s.metrics.RecordInvoiceIssued(ctx, invoice.TotalAmount)
	publishEvents(ctx, s.events, s.logger, invoice)

	response := ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, s.today()))
	return &response
}

// =============================================================================
// Queries
// =============================================================================

// GetByID returns an invoice with its mora recomputed for today
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, s.today()))
	return &response, nil
}

// GetByNumber returns an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, s.today()))
	return &response, nil
}

// List returns invoices matching the filter with mora at today
func (s *InvoiceService) List(ctx context.Context, f InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	filter, err := s.toInvoiceFilter(f)
	if err != nil {
		return nil, 0, err
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	today := s.today()
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i], invoices[i].AssessMora(s.engine, today))
	}
	return responses, total, nil
}

func (s *InvoiceService) toInvoiceFilter(f InvoiceListFilter) (billing.InvoiceFilter, error) {
	filter := billing.InvoiceFilter{Filter: shared.DefaultFilter()}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search

	if f.ClientID != "" {
		clientID, err := uuid.Parse(f.ClientID)
		if err != nil {
			return filter, shared.NewFieldError(shared.ErrInvalidInput.Code, "client_id", "Client ID is not a valid UUID")
		}
		filter.ClientID = &clientID
	}

	switch f.Status {
	case "":
	case string(billing.DisplayStatusOverdue):
		pending := billing.InvoiceStatusPending
		today := s.today()
		filter.Status = &pending
		filter.OverdueAsOf = &today
	default:
		status := billing.InvoiceStatus(f.Status)
		if !status.IsValid() {
			return filter, shared.NewFieldError(shared.ErrInvalidInput.Code, "status", "Unknown invoice status")
		}
		filter.Status = &status
	}

	if f.IssuedFrom != "" {
		from, err := billing.ParseDate("issued_from", f.IssuedFrom)
		if err != nil {
			return filter, err
		}
		filter.IssuedFrom = &from
	}
	if f.IssuedTo != "" {
		to, err := billing.ParseDate("issued_to", f.IssuedTo)
		if err != nil {
			return filter, err
		}
		filter.IssuedTo = &to
	}
	return filter, nil
}

// AssessMora computes the mora of a stored invoice at an explicit date,
// today when evaluationDate is empty. The invoice is not modified.
func (s *InvoiceService) AssessMora(ctx context.Context, id uuid.UUID, evaluationDate string) (*MoraResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	evalOn, err := parseDateOr("evaluation_date", evaluationDate, s.today())
	if err != nil {
		return nil, err
	}
	response := ToMoraResponse(invoice.AssessMora(s.engine, evalOn))
	return &response, nil
}

// ListMoraSnapshots returns the stored snapshots of an invoice
func (s *InvoiceService) ListMoraSnapshots(ctx context.Context, id uuid.UUID) ([]MoraSnapshotResponse, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	snapshots, err := s.snapshotRepo.FindByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	responses := make([]MoraSnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		responses[i] = MoraSnapshotResponse{
			InvoiceID: snap.InvoiceID,
			MoraResponse: MoraResponse{
				EvaluatedOn:      billing.FormatDate(snap.EvaluatedOn),
				DaysOverdue:      snap.DaysOverdue,
				MonthsOverdue:    snap.MonthsOverdue,
				LateFee:          snap.LateFee,
				TotalWithLateFee: snap.TotalWithLateFee,
			},
		}
	}
	return responses, nil
}

// =============================================================================
// Administrative changes
// =============================================================================

// AmendDueDate moves the due date of a pending invoice on behalf of an administrator
func (s *InvoiceService) AmendDueDate(ctx context.Context, id uuid.UUID, req AmendDueDateRequest, adminID uuid.UUID) (_ *InvoiceResponse, err error) {
	ctx, span := startSpan(ctx, "invoice.amend_due_date")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("invoice_id", id.String()))

	newDueDate, err := billing.ParseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.AmendDueDate(s.engine, newDueDate, req.Justification, adminID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	last := invoice.AuditNotes[len(invoice.AuditNotes)-1]
	s.logger.Info("Invoice due date amended",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("old_due_date", last.OldValue),
		zap.String("new_due_date", last.NewValue))

	publishEvents(ctx, s.events, s.logger, invoice)

	response := ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, s.today()))
	return &response, nil
}

// Void cancels a pending invoice on behalf of an administrator
func (s *InvoiceService) Void(ctx context.Context, id uuid.UUID, req VoidInvoiceRequest, adminID uuid.UUID) (_ *InvoiceResponse, err error) {
	ctx, span := startSpan(ctx, "invoice.void")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("invoice_id", id.String()))

	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Void(req.Reason, adminID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice voided",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("admin_id", adminID.String()))

	publishEvents(ctx, s.events, s.logger, invoice)

	response := ToInvoiceResponse(invoice, invoice.AssessMora(s.engine, s.today()))
	return &response, nil
}
