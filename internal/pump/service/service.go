package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  pumpdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  pumpdomain.Repository
}

func New(p Params) pumpdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pump.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req pumpdomain.CreateRequest) (*pumpdomain.Pump, error) {
	if req.StationID == 0 {
		return nil, pumpdomain.ErrInvalidStation
	}
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, pumpdomain.ErrInvalidNumber
	}
	capacity, err := quantity.Parse(req.MeterCapacity)
	if err != nil || !capacity.IsPositive() {
		return nil, pumpdomain.ErrInvalidCapacity
	}
	status := req.Status
	if status == "" {
		status = pumpdomain.StatusActive
	}
	if !status.Valid() {
		return nil, pumpdomain.ErrInvalidStatus
	}

	now := s.clock.Now().UTC()
	pump := &pumpdomain.Pump{
		ID:            s.genID.Generate(),
		StationID:     req.StationID,
		Number:        number,
		ProductID:     req.ProductID,
		MeterCapacity: quantity.Volume(capacity),
		InstalledAt:   req.InstalledAt,
		Status:        status,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, pump); err != nil {
		return nil, err
	}
	return pump, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*pumpdomain.Pump, error) {
	if id == 0 {
		return nil, pumpdomain.ErrInvalidID
	}
	pump, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if pump == nil {
		return nil, pumpdomain.ErrNotFound
	}
	return pump, nil
}

func (s *Service) List(ctx context.Context, stationID snowflake.ID) ([]pumpdomain.Pump, error) {
	if stationID == 0 {
		return nil, pumpdomain.ErrInvalidStation
	}
	return s.repo.ListByStation(ctx, s.db, stationID)
}

func (s *Service) ListActive(ctx context.Context, stationID snowflake.ID) ([]pumpdomain.Pump, error) {
	if stationID == 0 {
		return nil, pumpdomain.ErrInvalidStation
	}
	return s.repo.ListActiveByStation(ctx, s.db, stationID)
}

// ChangeStatus moves a pump through its lifecycle. Deactivated pumps stay
// deactivated.
func (s *Service) ChangeStatus(ctx context.Context, id snowflake.ID, status pumpdomain.Status) (*pumpdomain.Pump, error) {
	if !status.Valid() {
		return nil, pumpdomain.ErrInvalidStatus
	}
	pump, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pump.IsActive {
		return nil, pumpdomain.ErrInactive
	}
	if pump.Status == status {
		return pump, nil
	}

	previous := pump.Status
	pump.Status = status
	pump.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, pump); err != nil {
		return nil, err
	}
	s.log.Info("pump status changed",
		zap.String("pump_id", pump.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return pump, nil
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*pumpdomain.Pump, error) {
	pump, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pump.IsActive {
		return pump, nil
	}
	pump.IsActive = false
	pump.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, pump); err != nil {
		return nil, err
	}
	s.log.Info("pump deactivated", zap.String("pump_id", pump.ID.String()))
	return pump, nil
}

func (s *Service) ListStationsWithActivePumps(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.ListStationsWithActivePumps(ctx, s.db)
}
