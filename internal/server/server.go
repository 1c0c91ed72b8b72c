// Package server exposes the billing core over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	"github.com/civicgrid/civicbill/internal/invoice/render"
	"github.com/civicgrid/civicbill/internal/observability/logger"
	"github.com/civicgrid/civicbill/internal/observability/metrics"
	overviewdomain "github.com/civicgrid/civicbill/internal/overview/domain"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServerParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock

	UsageSvc    usagedomain.Service
	InvoiceSvc  invoicedomain.Service
	OverviewSvc overviewdomain.Service
	Catalog     pricingdomain.Catalog
	CustomerSvc customerdomain.Service
	Renderer    render.Renderer

	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// Server holds the handler dependencies. Route handlers live in the
// *_handlers.go files of this package.
type Server struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	clock clock.Clock

	usageSvc    usagedomain.Service
	invoiceSvc  invoicedomain.Service
	overviewSvc overviewdomain.Service
	catalog     pricingdomain.Catalog
	customerSvc customerdomain.Service
	renderer    render.Renderer

	httpMetrics *metrics.HTTPMetrics
	limiter     *RateLimiter
}

func NewServer(p ServerParam) *Server {
	return &Server{
		db:    p.DB,
		log:   p.Log.Named("server"),
		cfg:   p.Cfg,
		clock: p.Clock,

		usageSvc:    p.UsageSvc,
		invoiceSvc:  p.InvoiceSvc,
		overviewSvc: p.OverviewSvc,
		catalog:     p.Catalog,
		customerSvc: p.CustomerSvc,
		renderer:    p.Renderer,

		httpMetrics: p.HTTPMetrics,
		limiter:     NewRateLimiter(p.Cfg.RateLimit.Limit, p.Cfg.RateLimit.Window),
	}
}

// NewEngine builds the gin engine with the ambient middleware chain.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz"}}))
	if s.httpMetrics != nil {
		engine.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	engine.GET("/healthz", s.Healthz)
	s.RegisterAPIRoutes(engine)
	return engine
}

// RegisterAPIRoutes mounts the authenticated API surface.
func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.Use(s.APIKeyAuth())

	billing := api.Group("/billing")
	{
		billing.GET("/usage", s.GetUsage)
		billing.GET("/invoices", s.ListInvoices)
		billing.POST("/invoices", s.GenerateInvoice)
		billing.GET("/invoices/:id", s.GetInvoice)
		billing.GET("/invoices/:id/html", s.GetInvoiceHTML)
	}

	usage := api.Group("/usage")
	usage.Use(s.limiter.Middleware())
	{
		usage.POST("/events", s.IngestUsageEvent)
	}

	admin := api.Group("/admin")
	admin.Use(s.AdminOnly())
	{
		admin.GET("/billing/overview", s.GetOverview)
		admin.POST("/billing/invoices/:id/finalize", s.FinalizeInvoice)
		admin.POST("/billing/invoices/:id/pay", s.PayInvoice)
		admin.POST("/billing/invoices/:id/cancel", s.CancelInvoice)
		admin.GET("/pricing", s.ListPrices)
		admin.PUT("/pricing", s.PutPrice)
		admin.POST("/customers", s.CreateCustomer)
		admin.GET("/customers", s.ListCustomers)
		admin.GET("/customers/:id", s.GetCustomer)
	}
}

// Healthz reports liveness and database reachability.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server, engine *gin.Engine) {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer, NewEngine),
	fx.Invoke(RunHTTP),
)
