package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	obsmetrics "github.com/smallbiznis/fuelrecon/internal/observability/metrics"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxQueryDays bounds deviation and approval range queries.
const maxQueryDays = 366

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        recondomain.Repository
	PumpRepo    pumpdomain.Repository
	ReadingRepo readingdomain.Repository
	Prices      productdomain.PriceLookup
	Settings    recondomain.SettingsProvider
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        recondomain.Repository
	pumpRepo    pumpdomain.Repository
	readingRepo readingdomain.Repository
	prices      productdomain.PriceLookup
	settings    recondomain.SettingsProvider
	metrics     *obsmetrics.Metrics
	tracer      trace.Tracer
}

func New(p Params) recondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reconciliation.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		pumpRepo:    p.PumpRepo,
		readingRepo: p.ReadingRepo,
		prices:      p.Prices,
		settings:    p.Settings,
		metrics:     p.Metrics,
		tracer:      otel.Tracer("fuelrecon/reconciliation"),
	}
}

func (s *Service) GetCalculations(ctx context.Context, stationID snowflake.ID, date time.Time) ([]recondomain.DailyCalculation, error) {
	if stationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	if date.IsZero() {
		return nil, recondomain.ErrInvalidDate
	}
	return s.repo.ListCalculations(ctx, s.db, stationID, bizdate.Normalize(date))
}

func (s *Service) GetCalculation(ctx context.Context, id snowflake.ID) (*recondomain.DailyCalculation, error) {
	if id == 0 {
		return nil, recondomain.ErrInvalidCalculation
	}
	calc, err := s.repo.FindCalculationByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, recondomain.ErrCalculationNotFound
	}
	return calc, nil
}

func (s *Service) GetStationSummary(ctx context.Context, stationID snowflake.ID, date time.Time) (*recondomain.StationDailySummary, error) {
	if stationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	if date.IsZero() {
		return nil, recondomain.ErrInvalidDate
	}
	summary, err := s.repo.FindSummary(ctx, s.db, stationID, bizdate.Normalize(date))
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, recondomain.ErrSummaryNotFound
	}
	return summary, nil
}

func (s *Service) GetRunStatus(ctx context.Context, stationID snowflake.ID, date time.Time) (*recondomain.ReconciliationRun, error) {
	if stationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	if date.IsZero() {
		return nil, recondomain.ErrInvalidDate
	}
	run, err := s.repo.FindRun(ctx, s.db, stationID, bizdate.Normalize(date))
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, recondomain.ErrRunNotFound
	}
	return run, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func actorOrSystem(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "system"
	}
	return actor
}

func validateRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, recondomain.ErrInvalidDateRange
	}
	from, to = bizdate.Normalize(from), bizdate.Normalize(to)
	if to.Before(from) || bizdate.AddDays(from, maxQueryDays).Before(to) {
		return time.Time{}, time.Time{}, recondomain.ErrInvalidDateRange
	}
	return from, to, nil
}
