package event

import (
	"context"

	"github.com/agualoti/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Handling outcomes reported on agua_events_handled_total
const (
	OutcomeHandled   = "handled"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// IdempotentHandler delivers each event ID to the wrapped handler at most once
// per TTL. The activity log sits behind it so a republished invoice event
// does not produce a second log line.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	cfg      shared.IdempotencyConfig
	log      *zap.Logger
	outcomes metric.Int64Counter
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default 24h TTL or disables the check
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.cfg = cfg }
}

// WithMeter reports outcomes on agua_events_handled_total
func WithMeter(meter metric.Meter) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		counter, err := meter.Int64Counter("agua_events_handled_total",
			metric.WithDescription("Domain events seen by idempotent handlers, by outcome"))
		if err != nil {
			h.log.Warn("Failed to create event outcome counter", zap.Error(err))
			return
		}
		h.outcomes = counter
	}
}

func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	outcomes, _ := noop.NewMeterProvider().Meter("").Int64Counter("")
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		cfg:      shared.DefaultIdempotencyConfig(),
		log:      log,
		outcomes: outcomes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event ID before delivering it. When the store is
// unreachable the event is delivered anyway; when delivery fails the claim
// is released so a redelivery can succeed.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.cfg.Enabled || h.store == nil {
		return h.deliver(ctx, ev)
	}

	key := "event:" + ev.EventID().String()
	log := h.log.With(zap.String("event_id", ev.EventID().String()), zap.String("event_type", ev.EventType()))

	claimed, err := h.store.MarkProcessed(ctx, key, h.cfg.TTL)
	if err != nil {
		log.Warn("Idempotency store unavailable, delivering event unchecked", zap.Error(err))
	} else if !claimed {
		log.Debug("Skipping already handled event")
		h.record(ctx, ev, OutcomeDuplicate)
		return nil
	}

	if err := h.deliver(ctx, ev); err != nil {
		if relErr := h.store.Release(ctx, key); relErr != nil {
			log.Warn("Failed to release event claim", zap.Error(relErr))
		}
		return err
	}
	return nil
}

func (h *IdempotentHandler) deliver(ctx context.Context, ev shared.DomainEvent) error {
	if err := h.next.Handle(ctx, ev); err != nil {
		h.record(ctx, ev, OutcomeFailed)
		return err
	}
	h.record(ctx, ev, OutcomeHandled)
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, ev shared.DomainEvent, outcome string) {
	h.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", ev.EventType()),
		attribute.String("outcome", outcome),
	))
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
