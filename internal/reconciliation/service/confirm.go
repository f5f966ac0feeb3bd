package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/observability/logger"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfirmRollover applies an operator-confirmed meter wraparound to an
// existing calculation: volume becomes (rollover - opening) + closing.
func (s *Service) ConfirmRollover(ctx context.Context, req recondomain.ConfirmRolloverRequest) (*recondomain.DailyCalculation, error) {
	if req.PumpID == 0 {
		return nil, recondomain.ErrInvalidPump
	}
	if req.Date.IsZero() {
		return nil, recondomain.ErrInvalidDate
	}
	rolloverValue, err := quantity.ParseNonNegative(req.RolloverValue)
	if err != nil || !rolloverValue.IsPositive() {
		return nil, recondomain.NewValidationError("rollover_value", recondomain.ErrInvalidRolloverValue)
	}
	newClosing, err := quantity.ParseNonNegative(req.NewClosingReading)
	if err != nil {
		return nil, recondomain.NewValidationError("new_closing_reading", recondomain.ErrInvalidClosing)
	}
	date := bizdate.Normalize(req.Date)
	actor := actorOrSystem(req.Actor)

	ctx, span := s.tracer.Start(ctx, "reconciliation.confirm_rollover")
	defer span.End()

	pump, err := s.pumpRepo.FindByID(ctx, s.db, req.PumpID)
	if err != nil {
		return nil, err
	}
	if pump == nil {
		return nil, recondomain.ErrPumpNotFound
	}
	if rolloverValue.GreaterThan(pump.MeterCapacity) {
		return nil, recondomain.NewValidationError("rollover_value", recondomain.ErrRolloverExceedsCap)
	}
	rolloverValue = quantity.Volume(rolloverValue)
	newClosing = quantity.Volume(newClosing)
	settings := s.settings.ForStation(pump.StationID)

	var updated *recondomain.DailyCalculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		calc, err := s.repo.FindCalculation(ctx, tx, pump.ID, date)
		if err != nil {
			return err
		}
		if calc == nil {
			return recondomain.ErrCalculationNotFound
		}
		if rolloverValue.LessThan(calc.OpeningReading) {
			return recondomain.NewBusinessRuleViolation(recondomain.RuleRolloverBelowOpening,
				fmt.Sprintf("rollover value %s is below the opening reading %s", rolloverValue, calc.OpeningReading))
		}
		if newClosing.GreaterThanOrEqual(calc.OpeningReading) {
			return recondomain.NewBusinessRuleViolation(recondomain.RuleClosingNotBelowOpen,
				fmt.Sprintf("closing reading %s does not wrap below the opening reading %s", newClosing, calc.OpeningReading))
		}

		now := s.now()
		opening, err := s.confirmClosingReading(ctx, tx, calc, newClosing, actor)
		if err != nil {
			return err
		}

		volume := quantity.Volume(rolloverValue.Sub(calc.OpeningReading).Add(newClosing))
		dev, err := s.analyzeDeviation(ctx, tx, pump.ID, date, volume, settings.DeviationWindowDays)
		if err != nil {
			return err
		}

		calc.ClosingReading = newClosing
		calc.VolumeDispensed = volume
		calc.TotalRevenue = quantity.Revenue(volume, calc.UnitPrice)
		calc.HasRollover = true
		calc.RolloverValue = decimal.NewNullDecimal(rolloverValue)
		calc.RolloverAmbiguous = false
		if opening == nil || opening.IsEstimated {
			// Only the closing side is physical; the day still needs sign-off.
			calc.IsEstimated = true
			calc.Method = recondomain.MethodEstimated
			calc.ApprovalStatus = recondomain.ApprovalPending
		} else {
			calc.IsEstimated = false
			calc.Method = recondomain.MethodMeterReadings
			if calc.ApprovalStatus == recondomain.ApprovalPending {
				calc.ApprovalStatus = recondomain.ApprovalNotRequired
			}
		}
		calc.ConfirmedBy = &actor
		calc.ConfirmedAt = &now
		calc.UpdatedAt = now
		applyDeviation(calc, dev)

		if err := s.repo.UpdateCalculation(ctx, tx, calc); err != nil {
			return err
		}

		failed := 0
		if run, err := s.repo.FindRun(ctx, tx, calc.StationID, date); err != nil {
			return err
		} else if run != nil {
			failed = run.FailedCount
		}
		if _, err := s.refreshSummary(ctx, tx, calc.StationID, date, failed); err != nil {
			return err
		}
		updated = calc
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.RecordRollover(ctx, "confirmed")
	logger.WithStationDate(logger.WithContext(ctx, s.log), updated.StationID.String(), bizdate.Format(date)).Info("rollover confirmed",
		zap.String("pump_id", updated.PumpID.String()),
		zap.String("calculation_id", updated.ID.String()),
		zap.String("rollover_value", rolloverValue.String()),
		zap.String("volume_dispensed", updated.VolumeDispensed.String()),
	)
	return updated, nil
}

// confirmClosingReading records newClosing as the pump-day's physical
// closing reading, correcting an existing one when it differs or was estimated.
// It returns the day's opening reading, nil when none is stored.
func (s *Service) confirmClosingReading(ctx context.Context, tx *gorm.DB, calc *recondomain.DailyCalculation, newClosing decimal.Decimal, actor string) (*readingdomain.MeterReading, error) {
	readings, err := s.readingRepo.ListByPumpDate(ctx, tx, calc.PumpID, calc.BusinessDate)
	if err != nil {
		return nil, err
	}
	now := s.now()
	opening, closing := readingdomain.Pair(readings)
	if closing == nil {
		return opening, s.readingRepo.Insert(ctx, tx, &readingdomain.MeterReading{
			ID:           s.genID.Generate(),
			StationID:    calc.StationID,
			PumpID:       calc.PumpID,
			BusinessDate: calc.BusinessDate,
			ReadingType:  readingdomain.TypeClosing,
			Value:        newClosing,
			RecordedBy:   actor,
			RecordedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if closing.Value.Equal(newClosing) && !closing.IsEstimated {
		return opening, nil
	}
	closing.ApplyCorrection(newClosing, actor, now)
	return opening, s.readingRepo.Update(ctx, tx, closing)
}
