package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Pump, error)
	Get(ctx context.Context, id snowflake.ID) (*Pump, error)
	List(ctx context.Context, stationID snowflake.ID) ([]Pump, error)
	ListActive(ctx context.Context, stationID snowflake.ID) ([]Pump, error)
	ChangeStatus(ctx context.Context, id snowflake.ID, status Status) (*Pump, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Pump, error)
	ListStationsWithActivePumps(ctx context.Context) ([]snowflake.ID, error)
}

type CreateRequest struct {
	StationID     snowflake.ID
	Number        string
	ProductID     *snowflake.ID
	MeterCapacity string
	InstalledAt   *time.Time
	Status        Status
}

var (
	ErrInvalidStation  = errors.New("invalid_station_id")
	ErrInvalidNumber   = errors.New("invalid_pump_number")
	ErrInvalidCapacity = errors.New("invalid_meter_capacity")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("pump_not_found")
	ErrInactive        = errors.New("pump_inactive")
)
