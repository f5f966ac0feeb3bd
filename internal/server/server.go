package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fuelrecon/internal/config"
	"github.com/smallbiznis/fuelrecon/internal/observability"
	obsmiddleware "github.com/smallbiznis/fuelrecon/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fuelrecon/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fuelrecon/internal/observability/tracing"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.OtelRouteParams))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	reconciliationSvc recondomain.Service
	pumpSvc           pumpdomain.Service
	productSvc        productdomain.Service
	readingSvc        readingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	ReconciliationSvc recondomain.Service
	PumpSvc           pumpdomain.Service
	ProductSvc        productdomain.Service
	ReadingSvc        readingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		reconciliationSvc: p.ReconciliationSvc,
		pumpSvc:           p.PumpSvc,
		productSvc:        p.ProductSvc,
		readingSvc:        p.ReadingSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Stations --------
	stations := api.Group("/stations/:station_id")
	{
		stations.POST("/calculations", s.CalculateForDate)
		stations.GET("/calculations", s.ListCalculations)
		stations.GET("/deviations", s.ListDeviations)
		stations.GET("/pending-approvals", s.ListPendingApprovals)
		stations.GET("/summaries/:date", s.GetStationSummary)
		stations.GET("/runs/:date", s.GetRunStatus)
		stations.POST("/pumps", s.CreatePump)
		stations.GET("/pumps", s.ListPumps)
		stations.POST("/products", s.CreateProduct)
		stations.GET("/products", s.ListProducts)
	}

	// -------- Calculations --------
	api.GET("/calculations/:id", s.GetCalculation)
	api.POST("/calculations/:id/approval", s.ReviewCalculation)

	// -------- Pumps --------
	api.GET("/pumps/:pump_id", s.GetPump)
	api.PATCH("/pumps/:pump_id/status", s.ChangePumpStatus)
	api.POST("/pumps/:pump_id/deactivate", s.DeactivatePump)
	api.POST("/pumps/:pump_id/rollover-confirmations", s.ConfirmRollover)
	api.POST("/pumps/:pump_id/readings", s.RecordReading)
	api.GET("/pumps/:pump_id/readings", s.ListReadings)

	// -------- Products --------
	api.GET("/products/:product_id", s.GetProduct)
	api.PATCH("/products/:product_id/price", s.UpdateProductPrice)

	// -------- Readings --------
	api.PATCH("/readings/:reading_id", s.CorrectReading)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
