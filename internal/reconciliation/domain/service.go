package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CalculateForDate(ctx context.Context, req CalculateRequest) (*CalculateResult, error)
	ConfirmRollover(ctx context.Context, req ConfirmRolloverRequest) (*DailyCalculation, error)
	ApproveEstimatedCalculation(ctx context.Context, req ApprovalRequest) (*DailyCalculation, error)
	GetDeviations(ctx context.Context, req DeviationQuery) ([]DeviationRecord, error)

	ListPendingApprovals(ctx context.Context, req PendingApprovalQuery) ([]DailyCalculation, error)
	GetCalculations(ctx context.Context, stationID snowflake.ID, date time.Time) ([]DailyCalculation, error)
	GetCalculation(ctx context.Context, id snowflake.ID) (*DailyCalculation, error)
	GetStationSummary(ctx context.Context, stationID snowflake.ID, date time.Time) (*StationDailySummary, error)
	GetRunStatus(ctx context.Context, stationID snowflake.ID, date time.Time) (*ReconciliationRun, error)
}

type CalculateRequest struct {
	StationID        snowflake.ID
	Date             time.Time
	ForceRecalculate bool
	Actor            string
}

type ConfirmRolloverRequest struct {
	PumpID            snowflake.ID
	Date              time.Time
	RolloverValue     string
	NewClosingReading string
	Actor             string
}

type ApprovalRequest struct {
	CalculationID snowflake.ID
	Approved      bool
	Notes         string
	Actor         string
}

// DeviationQuery re-derives outliers over [From, To]. A nil threshold or a
// zero window falls back to the station settings.
type DeviationQuery struct {
	StationID        snowflake.ID
	From             time.Time
	To               time.Time
	ThresholdPercent *string
	WindowDays       int
}

type PendingApprovalQuery struct {
	StationID snowflake.ID
	From      *time.Time
	To        *time.Time
}
