package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/smallbiznis/fuelrecon/pkg/db"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     readingdomain.Repository
	PumpRepo pumpdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     readingdomain.Repository
	pumpRepo pumpdomain.Repository
}

func New(p Params) readingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reading.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		pumpRepo: p.PumpRepo,
	}
}

func (s *Service) Record(ctx context.Context, req readingdomain.RecordRequest) (*readingdomain.MeterReading, error) {
	if req.PumpID == 0 {
		return nil, readingdomain.ErrInvalidPump
	}
	if req.Date.IsZero() {
		return nil, readingdomain.ErrInvalidDate
	}
	if !req.Type.Valid() {
		return nil, readingdomain.ErrInvalidType
	}
	value, err := quantity.ParseNonNegative(req.Value)
	if err != nil {
		return nil, readingdomain.ErrInvalidValue
	}
	var method *readingdomain.EstimationMethod
	if req.EstimationMethod != "" {
		if !req.EstimationMethod.Valid() {
			return nil, readingdomain.ErrInvalidEstimationMethod
		}
		m := req.EstimationMethod
		method = &m
	}

	pump, err := s.pumpRepo.FindByID(ctx, s.db, req.PumpID)
	if err != nil {
		return nil, err
	}
	if pump == nil {
		return nil, pumpdomain.ErrNotFound
	}
	if err := checkCapacity(value, pump.MeterCapacity); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	reading := &readingdomain.MeterReading{
		ID:               s.genID.Generate(),
		StationID:        pump.StationID,
		PumpID:           pump.ID,
		BusinessDate:     bizdate.Normalize(req.Date),
		ReadingType:      req.Type,
		Value:            quantity.Volume(value),
		RecordedBy:       actorOrSystem(req.RecordedBy),
		RecordedAt:       now,
		IsEstimated:      method != nil,
		EstimationMethod: method,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, reading); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, readingdomain.ErrConflict
		}
		return nil, err
	}
	return reading, nil
}

// Correct replaces a reading's value. The first original value is preserved
// across repeated corrections and the reading stops counting as estimated.
func (s *Service) Correct(ctx context.Context, req readingdomain.CorrectRequest) (*readingdomain.MeterReading, error) {
	if req.ReadingID == 0 {
		return nil, readingdomain.ErrInvalidID
	}
	value, err := quantity.ParseNonNegative(req.Value)
	if err != nil {
		return nil, readingdomain.ErrInvalidValue
	}

	var corrected *readingdomain.MeterReading
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reading, err := s.repo.FindByID(ctx, tx, req.ReadingID)
		if err != nil {
			return err
		}
		if reading == nil {
			return readingdomain.ErrNotFound
		}
		pump, err := s.pumpRepo.FindByID(ctx, tx, reading.PumpID)
		if err != nil {
			return err
		}
		if pump == nil {
			return pumpdomain.ErrNotFound
		}
		if err := checkCapacity(value, pump.MeterCapacity); err != nil {
			return err
		}

		reading.ApplyCorrection(quantity.Volume(value), actorOrSystem(req.ModifiedBy), s.clock.Now().UTC())
		if err := s.repo.Update(ctx, tx, reading); err != nil {
			return err
		}
		corrected = reading
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meter reading corrected",
		zap.String("reading_id", corrected.ID.String()),
		zap.String("pump_id", corrected.PumpID.String()),
		zap.String("business_date", bizdate.Format(corrected.BusinessDate)),
		zap.String("original_value", corrected.OriginalValue.Decimal.String()),
		zap.String("value", corrected.Value.String()),
	)
	return corrected, nil
}

func (s *Service) List(ctx context.Context, pumpID snowflake.ID, date time.Time) ([]readingdomain.MeterReading, error) {
	if pumpID == 0 {
		return nil, readingdomain.ErrInvalidPump
	}
	if date.IsZero() {
		return nil, readingdomain.ErrInvalidDate
	}
	return s.repo.ListByPumpDate(ctx, s.db, pumpID, bizdate.Normalize(date))
}

func checkCapacity(value, capacity decimal.Decimal) error {
	if capacity.IsPositive() && value.GreaterThan(capacity) {
		return readingdomain.ErrValueExceedsCapacity
	}
	return nil
}

func actorOrSystem(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "system"
	}
	return actor
}
