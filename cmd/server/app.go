package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	appbilling "github.com/agualoti/backend/internal/application/billing"
	identityapp "github.com/agualoti/backend/internal/application/identity"
	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/auth"
	"github.com/agualoti/backend/internal/infrastructure/cache"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/agualoti/backend/internal/infrastructure/event"
	"github.com/agualoti/backend/internal/infrastructure/migration"
	"github.com/agualoti/backend/internal/infrastructure/persistence"
	"github.com/agualoti/backend/internal/infrastructure/scheduler"
	"github.com/agualoti/backend/internal/infrastructure/telemetry"
	"github.com/agualoti/backend/internal/interfaces/http/handler"
	"github.com/agualoti/backend/internal/interfaces/http/router"
	"github.com/agualoti/backend/migrations"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// application owns every long-lived component started by main
type application struct {
	engine    *gin.Engine
	db        *persistence.Database
	bus       *event.InMemoryEventBus
	store     shared.IdempotencyStore
	scheduler *scheduler.MoraSnapshotScheduler
	log       *zap.Logger
}

func newApplication(ctx context.Context, cfg *config.Config, mp *telemetry.MeterProvider, log *zap.Logger) (*application, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg, err := cfg.Billing.EngineConfig()
	if err != nil {
		return nil, err
	}
	engine, err := billing.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log.Named("gorm"), cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh))
	if err != nil {
		return nil, err
	}
	app := &application{db: db, log: log}

	if err := prepareSchema(cfg, db, log); err != nil {
		app.close(ctx)
		return nil, err
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
		LogFullSQL:      cfg.App.Env == "development",
	}, log); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	metrics, err := telemetry.NewBillingMetrics(mp.Meter(telemetry.MeterName))
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	app.store = store

	clientRepo := persistence.NewGormClientRepository(db.DB)
	readingRepo := persistence.NewGormReadingRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	snapshotRepo := persistence.NewGormMoraSnapshotRepository(db.DB)
	activityRepo := persistence.NewGormActivityLogRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB, cfg.Billing.InvoicePrefix)

	app.bus = event.NewInMemoryEventBus(log.Named("events"))
	app.bus.Subscribe(event.NewIdempotentHandler(
		appbilling.NewActivityLogHandler(activityRepo, log), store, log,
		event.WithMeter(mp.Meter(telemetry.MeterName))))
	if err := app.bus.Start(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}

	clock := appbilling.SystemClock()
	invoiceService := appbilling.NewInvoiceService(appbilling.InvoiceServiceDeps{
		Engine:       engine,
		InvoiceRepo:  invoiceRepo,
		ClientRepo:   clientRepo,
		SnapshotRepo: snapshotRepo,
		TxScope:      txScope,
		Events:       app.bus,
		Metrics:      metrics,
		Clock:        clock,
		Logger:       log,
	})
	paymentService := appbilling.NewPaymentService(appbilling.PaymentServiceDeps{
		Engine:      engine,
		PaymentRepo: paymentRepo,
		TxScope:     txScope,
		Idempotency: store,
		IdemConfig:  shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL},
		Events:      app.bus,
		Metrics:     metrics,
		Clock:       clock,
		Logger:      log,
	})
	clientService := appbilling.NewClientService(clientRepo, app.bus, clock, log)
	readingService := appbilling.NewReadingService(readingRepo, clientRepo, app.bus, clock, log)
	dashboardService := appbilling.NewDashboardService(engine, invoiceRepo, paymentRepo, clientRepo, clock, log)
	snapshotService := appbilling.NewMoraSnapshotService(engine, invoiceRepo, snapshotRepo, metrics, clock, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)

	var trigger handler.SnapshotTrigger
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewMoraSnapshotScheduler(snapshotService, cfg.Scheduler, log.Named("scheduler"))
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		if err := sched.Start(ctx); err != nil {
			app.close(ctx)
			return nil, err
		}
		app.scheduler = sched
		trigger = sched
	}

	app.engine, err = router.NewEngine(router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		HTTP:           cfg.HTTP,
		JWT:            jwtService,
		Logger:         log,
	}, router.Handlers{
		System:    handler.NewSystemHandler(db, Version),
		Auth:      handler.NewAuthHandler(authService),
		Engine:    handler.NewEngineHandler(invoiceService),
		Client:    handler.NewClientHandler(clientService, readingService),
		Reading:   handler.NewReadingHandler(readingService),
		Invoice:   handler.NewInvoiceHandler(invoiceService),
		Payment:   handler.NewPaymentHandler(paymentService),
		Dashboard: handler.NewDashboardHandler(dashboardService, appbilling.NewActivityLogService(activityRepo), trigger),
	})
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

// prepareSchema builds the sqlite schema from the models and applies the
// embedded SQL migrations on postgres
func prepareSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if db.Driver == "sqlite" {
		log.Info("Creating sqlite schema from models")
		return db.AutoMigrate()
	}

	// the migrate driver closes the sql.DB it is given, so it gets its own pool
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log.Named("migrate"))
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func (a *application) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}
	if a.bus != nil {
		_ = a.bus.Stop(ctx)
	}
	if closer, ok := a.store.(io.Closer); ok {
		_ = closer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Database close failed", zap.Error(err))
		}
	}
}
