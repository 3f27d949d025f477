package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the GORM tracing plugin
type DBTracingConfig struct {
	Enabled         bool
	SlowQueryThresh time.Duration
	// DBSystem is "postgresql" or "sqlite"
	DBSystem string
	// LogFullSQL keeps bound variables in db.statement. Development only.
	LogFullSQL bool
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm and a callback pair that annotates
// each statement span with table, rows affected, errors and slow query marks.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	a := &spanAnnotator{slowQueryThresh: cfg.SlowQueryThresh}
	if err := a.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
	)
	return nil
}

type spanAnnotator struct {
	slowQueryThresh time.Duration
}

// register places the after hooks ahead of otelgorm's, which end the span.
func (a *spanAnnotator) register(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		callback interface {
			Register(name string, fn func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create"), "before_create", a.before},
		{cb.Query().Before("gorm:query"), "before_query", a.before},
		{cb.Update().Before("gorm:update"), "before_update", a.before},
		{cb.Delete().Before("gorm:delete"), "before_delete", a.before},
		{cb.Row().Before("gorm:row"), "before_row", a.before},
		{cb.Raw().Before("gorm:raw"), "before_raw", a.before},
		{cb.Create().After("gorm:create").Before("otel:after:create"), "after_create", a.after},
		{cb.Query().After("gorm:query").Before("otel:after:query"), "after_query", a.after},
		{cb.Update().After("gorm:update").Before("otel:after:update"), "after_update", a.after},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), "after_delete", a.after},
		{cb.Row().After("gorm:row").Before("otel:after:row"), "after_row", a.after},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), "after_raw", a.after},
	}
	for _, h := range hooks {
		if err := h.callback.Register("agua_trace:"+h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (a *spanAnnotator) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (a *spanAnnotator) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > a.slowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", a.slowQueryThresh.Milliseconds()),
		))
	}
}
