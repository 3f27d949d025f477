package router

import (
	"fmt"
	"net/http"

	"github.com/agualoti/backend/internal/infrastructure/auth"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/agualoti/backend/internal/infrastructure/logger"
	"github.com/agualoti/backend/internal/interfaces/http/dto"
	"github.com/agualoti/backend/internal/interfaces/http/handler"
	"github.com/agualoti/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Engine    *handler.EngineHandler
	Client    *handler.ClientHandler
	Reading   *handler.ReadingHandler
	Invoice   *handler.InvoiceHandler
	Payment   *handler.PaymentHandler
	Dashboard *handler.DashboardHandler
}

// Options configures the middleware chain
type Options struct {
	ServiceName    string
	TracingEnabled bool
	HTTP           config.HTTPConfig
	JWT            *auth.JWTService
	Logger         *zap.Logger
}

const (
	healthPath = "/health"
	loginPath  = "/auth/login"
)

// NewEngine builds the gin engine with the full middleware chain and every route
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	if opts.JWT == nil {
		return nil, fmt.Errorf("jwt service is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.TracingEnabled}),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(corsConfig(opts.HTTP)),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrCodeNotFound, "Route not found", "", middleware.GetRequestID(c)))
	})

	engine.GET(healthPath, h.System.Health)

	Mount(engine, apiAreas(h),
		middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			JWTService: opts.JWT,
			SkipPaths:  []string{APIPrefix + healthPath, APIPrefix + loginPath},
			Logger:     log,
		}),
		middleware.SpanEnricher(),
	)
	return engine, nil
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

func apiAreas(h Handlers) []Area {
	return []Area{
		{Name: "public", Routes: []Route{
			get(healthPath, h.System.Health),
			post(loginPath, h.Auth.Login),
		}},
		{Name: "engine", Routes: []Route{
			post("/tariff/quote", h.Engine.QuoteTariff),
			post("/mora/assess", h.Engine.AssessMora),
			post("/dates/validate", h.Engine.ValidateDates),
		}},
		{Name: "clients", Prefix: "/clients", Routes: []Route{
			post("", h.Client.Register),
			get("", h.Client.List),
			get("/:id", h.Client.GetByID),
			post("/:id/deactivate", h.Client.Deactivate),
			get("/:id/readings", h.Client.ListReadings),
		}},
		{Name: "readings", Prefix: "/readings", Routes: []Route{
			post("", h.Reading.Record),
			get("/:id", h.Reading.GetByID),
		}},
		{Name: "invoices", Prefix: "/invoices", Routes: []Route{
			post("", h.Invoice.Create),
			post("/from-reading", h.Invoice.GenerateFromReading),
			get("", h.Invoice.List),
			get("/number/:number", h.Invoice.GetByNumber),
			get("/:id", h.Invoice.GetByID),
			get("/:id/mora", h.Invoice.GetMora),
			get("/:id/mora-snapshots", h.Invoice.ListMoraSnapshots),
			post("/:id/payments", h.Payment.Record),
			get("/:id/payments", h.Payment.List),
			admin(put("/:id/due-date", h.Invoice.AmendDueDate)),
			admin(post("/:id/void", h.Invoice.Void)),
		}},
		{Name: "dashboard", Routes: []Route{
			get("/dashboard/summary", h.Dashboard.Summary),
			get("/activity-logs", h.Dashboard.ActivityLogs),
		}},
		{Name: "admin", Prefix: "/admin", Routes: []Route{
			admin(post("/mora-snapshots/run", h.Dashboard.RunMoraSnapshots)),
		}},
	}
}
