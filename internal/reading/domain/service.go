package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*MeterReading, error)
	Correct(ctx context.Context, req CorrectRequest) (*MeterReading, error)
	List(ctx context.Context, pumpID snowflake.ID, date time.Time) ([]MeterReading, error)
}

type RecordRequest struct {
	PumpID     snowflake.ID
	Date       time.Time
	Type       Type
	Value      string
	RecordedBy string
	// EstimationMethod marks an operator-entered estimate. Empty for physical readings.
	EstimationMethod EstimationMethod
}

type CorrectRequest struct {
	ReadingID  snowflake.ID
	Value      string
	ModifiedBy string
}

var (
	ErrInvalidPump             = errors.New("invalid_pump_id")
	ErrInvalidDate             = errors.New("invalid_date")
	ErrInvalidType             = errors.New("invalid_reading_type")
	ErrInvalidValue            = errors.New("invalid_reading_value")
	ErrInvalidEstimationMethod = errors.New("invalid_estimation_method")
	ErrInvalidID               = errors.New("invalid_id")
	ErrValueExceedsCapacity    = errors.New("reading_exceeds_capacity")
	ErrNotFound                = errors.New("reading_not_found")
	ErrConflict                = errors.New("reading_already_recorded")
)
