package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/observability/logger"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/deviation"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/estimation"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/rollover"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/smallbiznis/fuelrecon/pkg/db"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	outcomeCompleted = "completed"
	outcomePartial   = "partial"
	outcomeCancelled = "cancelled"
	outcomeUnchanged = "unchanged"
)

type pumpOutcome struct {
	pump    pumpdomain.Pump
	calc    *recondomain.DailyCalculation
	skipped bool
	err     error
	// attempted is false for pumps never started because ctx was cancelled.
	attempted bool
}

// CalculateForDate reconciles every active pump of a station for one
// business date. Each pump runs in its own transaction; a failing pump is
// reported in the result and does not stop the others.
func (s *Service) CalculateForDate(ctx context.Context, req recondomain.CalculateRequest) (*recondomain.CalculateResult, error) {
	if req.StationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	if req.Date.IsZero() {
		return nil, recondomain.ErrInvalidDate
	}
	date := bizdate.Normalize(req.Date)
	actor := actorOrSystem(req.Actor)
	settings := s.settings.ForStation(req.StationID)
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "reconciliation.calculate_for_date", trace.WithAttributes(
		attribute.String("station_id", req.StationID.String()),
		attribute.String("business_date", bizdate.Format(date)),
		attribute.Bool("force_recalculate", req.ForceRecalculate),
	))
	defer span.End()

	log := logger.WithStationDate(logger.WithContext(ctx, s.log), req.StationID.String(), bizdate.Format(date))

	pumps, err := s.pumpRepo.ListActiveByStation(ctx, s.db, req.StationID)
	if err != nil {
		return nil, err
	}
	if len(pumps) == 0 {
		return nil, recondomain.ErrNoActivePumps
	}

	run, err := s.repo.FindRun(ctx, s.db, req.StationID, date)
	if err != nil {
		return nil, err
	}

	if req.ForceRecalculate {
		run, err = s.resetRun(ctx, run, req.StationID, date)
		if err != nil {
			return nil, err
		}
		log.Info("existing calculations cleared for recompute")
	}

	existing, err := s.repo.ListCalculations(ctx, s.db, req.StationID, date)
	if err != nil {
		return nil, err
	}
	done := make(map[snowflake.ID]struct{}, len(existing))
	for _, c := range existing {
		done[c.PumpID] = struct{}{}
	}
	pending := make([]pumpdomain.Pump, 0, len(pumps))
	skipped := make([]snowflake.ID, 0, len(existing))
	for _, p := range pumps {
		if _, ok := done[p.ID]; ok {
			skipped = append(skipped, p.ID)
			continue
		}
		pending = append(pending, p)
	}

	if len(pending) == 0 && run != nil && run.State == recondomain.RunCompleted {
		result := newResult(req.StationID, date, run.RunKey, existing)
		result.Skipped = skipped
		s.metrics.ObserveStationRun(ctx, outcomeUnchanged, time.Since(started))
		return result, nil
	}

	run = s.nextRun(run, req.StationID, date)
	if err := s.repo.UpsertRun(ctx, s.db, run); err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_key", run.RunKey))
	span.SetAttributes(attribute.String("run_key", run.RunKey))

	outcomes := s.calculatePumps(ctx, pending, date, settings, actor)

	var batch recondomain.BatchResult
	created := make([]recondomain.DailyCalculation, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case !o.attempted:
		case o.calc != nil:
			batch.Succeeded = append(batch.Succeeded, o.pump.ID)
			created = append(created, *o.calc)
		case o.skipped:
			skipped = append(skipped, o.pump.ID)
		case o.err != nil:
			if ctx.Err() != nil && errors.Is(o.err, ctx.Err()) {
				continue
			}
			reason := failureReason(o.err)
			batch.Failed = append(batch.Failed, recondomain.PumpFailure{
				PumpID: o.pump.ID,
				Reason: reason,
				Err:    o.err,
			})
			s.metrics.RecordPumpFailure(ctx, reason)
			log.Warn("pump reconciliation failed",
				zap.String("pump_id", o.pump.ID.String()),
				zap.String("pump_number", o.pump.Number),
				zap.String("reason", reason),
				zap.Error(o.err),
			)
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		all := append(append([]recondomain.DailyCalculation{}, existing...), created...)
		result := newResult(req.StationID, date, run.RunKey, all)
		result.BatchResult = batch
		result.NewlyCalculated = len(created)
		result.Skipped = skipped
		s.metrics.ObserveStationRun(context.WithoutCancel(ctx), outcomeCancelled, time.Since(started))
		span.SetStatus(codes.Error, "cancelled")
		log.Warn("station reconciliation interrupted",
			zap.Int("calculated", len(created)),
			zap.Int("remaining", len(pending)-len(created)-len(batch.Failed)),
			zap.Error(ctxErr),
		)
		return result, ctxErr
	}

	var calcs []recondomain.DailyCalculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		calcs, err = s.repo.ListCalculations(ctx, tx, req.StationID, date)
		if err != nil {
			return err
		}
		summary, err := buildSummary(s.genID.Generate(), req.StationID, date, calcs, len(batch.Failed), s.now())
		if err != nil {
			return err
		}
		if err := s.repo.UpsertSummary(ctx, tx, summary); err != nil {
			return err
		}
		completeRun(run, batch, len(skipped), s.now())
		return s.repo.UpsertRun(ctx, tx, run)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary upsert failed")
		return nil, fmt.Errorf("station summary: %w", err)
	}

	result := newResult(req.StationID, date, run.RunKey, calcs)
	result.BatchResult = batch
	result.NewlyCalculated = len(created)
	result.Skipped = skipped

	outcome := outcomeCompleted
	if len(batch.Failed) > 0 {
		outcome = outcomePartial
		span.SetStatus(codes.Error, "partial batch failure")
	}
	s.metrics.ObserveStationRun(ctx, outcome, time.Since(started))
	log.Info("station reconciliation completed",
		zap.Int("calculated_count", result.CalculatedCount),
		zap.Int("newly_calculated", result.NewlyCalculated),
		zap.Int("skipped", len(skipped)),
		zap.Int("failed", len(batch.Failed)),
		zap.String("total_volume", result.TotalVolume.String()),
		zap.String("total_revenue", result.TotalRevenue.String()),
	)
	return result, nil
}

// calculatePumps fans out over pending pumps with at most MaxConcurrency
// pumps in flight. Outcomes keep the order of pending.
func (s *Service) calculatePumps(ctx context.Context, pending []pumpdomain.Pump, date time.Time, settings recondomain.Settings, actor string) []pumpOutcome {
	outcomes := make([]pumpOutcome, len(pending))
	limit := settings.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range pending {
		outcomes[i].pump = pending[i]
		if ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i].attempted = true
			outcomes[i].calc, outcomes[i].skipped, outcomes[i].err = s.calculatePump(ctx, pending[i], date, settings, actor)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// calculatePump reconciles one pump-day in a single transaction. It reports
// skipped when a calculation already exists.
func (s *Service) calculatePump(ctx context.Context, pump pumpdomain.Pump, date time.Time, settings recondomain.Settings, actor string) (*recondomain.DailyCalculation, bool, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.calculate_pump", trace.WithAttributes(
		attribute.String("pump_id", pump.ID.String()),
	))
	defer span.End()

	var (
		created *recondomain.DailyCalculation
		skipped bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindCalculation(ctx, tx, pump.ID, date)
		if err != nil {
			return err
		}
		if existing != nil {
			skipped = true
			return nil
		}

		if pump.ProductID == nil {
			return fmt.Errorf("pump has no linked product: %w", recondomain.ErrPriceNotFound)
		}
		unitPrice, err := s.prices.CurrentUnitPrice(ctx, tx, *pump.ProductID)
		if err != nil {
			return err
		}

		readings, err := s.readingRepo.ListByPumpDate(ctx, tx, pump.ID, date)
		if err != nil {
			return err
		}
		opening, closing := readingdomain.Pair(readings)

		method := recondomain.MethodMeterReadings
		var (
			openingValue, closingValue decimal.Decimal
			detected                   rollover.Result
		)
		if opening != nil && closing != nil && !opening.IsEstimated && !closing.IsEstimated {
			openingValue, closingValue = opening.Value, closing.Value
			detected = rollover.NewDetector(settings.RolloverMaxCapacityRatio).Detect(openingValue, closingValue, pump.MeterCapacity)
		} else {
			method = recondomain.MethodEstimated
			est, err := s.estimate(ctx, tx, pump, date, settings, opening, closing)
			if err != nil {
				return err
			}
			openingValue, closingValue = est.Opening, est.Closing
			if est.Synthesized() {
				detected = rollover.Known(openingValue, closingValue, pump.MeterCapacity, est.Volume)
			} else {
				detected = rollover.NewDetector(settings.RolloverMaxCapacityRatio).Detect(openingValue, closingValue, pump.MeterCapacity)
			}
		}

		dev, err := s.analyzeDeviation(ctx, tx, pump.ID, date, detected.VolumeDispensed, settings.DeviationWindowDays)
		if err != nil {
			return err
		}

		now := s.now()
		calc := &recondomain.DailyCalculation{
			ID:                s.genID.Generate(),
			StationID:         pump.StationID,
			PumpID:            pump.ID,
			ProductID:         pump.ProductID,
			BusinessDate:      date,
			OpeningReading:    quantity.Volume(openingValue),
			ClosingReading:    quantity.Volume(closingValue),
			VolumeDispensed:   detected.VolumeDispensed,
			UnitPrice:         quantity.Price(unitPrice),
			TotalRevenue:      quantity.Revenue(detected.VolumeDispensed, unitPrice),
			HasRollover:       detected.HasRollover,
			RolloverAmbiguous: detected.Ambiguous,
			IsEstimated:       method == recondomain.MethodEstimated,
			Method:            method,
			CalculatedBy:      actor,
			ApprovalStatus:    recondomain.ApprovalNotRequired,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if detected.HasRollover {
			calc.RolloverValue = decimal.NewNullDecimal(detected.RolloverValue)
		}
		if calc.IsEstimated {
			calc.ApprovalStatus = recondomain.ApprovalPending
		}
		applyDeviation(calc, dev)

		if err := s.repo.InsertCalculation(ctx, tx, calc); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return recondomain.ErrCalculationConflict
			}
			return err
		}
		created = calc
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
		return nil, false, err
	}
	if created != nil {
		s.recordCalculationMetrics(ctx, created, settings)
	}
	return created, skipped, nil
}

// estimate fills the missing readings and persists the synthesized ones so
// the pump-day stays auditable.
func (s *Service) estimate(ctx context.Context, tx *gorm.DB, pump pumpdomain.Pump, date time.Time, settings recondomain.Settings, opening, closing *readingdomain.MeterReading) (estimation.Result, error) {
	engine := estimation.New(txHistory{tx: tx, repo: s.repo, readings: s.readingRepo}, estimation.Settings{
		DefaultHistoricalVolume: settings.DefaultHistoricalVolume,
		DefaultOpeningReading:   settings.DefaultOpeningReading,
		HistoryLimit:            settings.EstimationHistoryLimit,
	})
	est, err := engine.Estimate(ctx, estimation.Input{
		PumpID:   pump.ID,
		Date:     date,
		Capacity: pump.MeterCapacity,
		Opening:  readingValue(opening),
		Closing:  readingValue(closing),
	})
	if err != nil {
		return estimation.Result{}, err
	}

	if est.SynthesizedOpening {
		if err := s.insertSynthesized(ctx, tx, pump, date, readingdomain.TypeOpening, est.Opening); err != nil {
			return estimation.Result{}, err
		}
	}
	if est.SynthesizedClosing {
		if err := s.insertSynthesized(ctx, tx, pump, date, readingdomain.TypeClosing, est.Closing); err != nil {
			return estimation.Result{}, err
		}
	}
	return est, nil
}

func (s *Service) insertSynthesized(ctx context.Context, tx *gorm.DB, pump pumpdomain.Pump, date time.Time, typ readingdomain.Type, value decimal.Decimal) error {
	method := readingdomain.EstimationHistoricalAverage
	now := s.now()
	err := s.readingRepo.Insert(ctx, tx, &readingdomain.MeterReading{
		ID:               s.genID.Generate(),
		StationID:        pump.StationID,
		PumpID:           pump.ID,
		BusinessDate:     date,
		ReadingType:      typ,
		Value:            quantity.Volume(value),
		RecordedBy:       "system",
		RecordedAt:       now,
		IsEstimated:      true,
		EstimationMethod: &method,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Another run synthesized this pump-day first.
		return recondomain.ErrCalculationConflict
	}
	return err
}

func (s *Service) recordCalculationMetrics(ctx context.Context, calc *recondomain.DailyCalculation, settings recondomain.Settings) {
	s.metrics.RecordCalculation(ctx, string(calc.Method))
	if calc.IsEstimated {
		s.metrics.RecordEstimation(ctx)
	}
	if calc.HasRollover {
		s.metrics.RecordRollover(ctx, "detected")
	}
	if calc.BaselineSampleSize > 0 && deviation.Exceeds(calc.DeviationPercent, settings.DeviationThresholdPercent) {
		s.metrics.RecordDeviationOutlier(ctx)
	}
}

// resetRun deletes the station-day's calculations and engine-synthesized
// readings and moves the run back to not_started.
func (s *Service) resetRun(ctx context.Context, run *recondomain.ReconciliationRun, stationID snowflake.ID, date time.Time) (*recondomain.ReconciliationRun, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.DeleteCalculations(ctx, tx, stationID, date); err != nil {
			return err
		}
		if _, err := s.readingRepo.DeleteSynthesized(ctx, tx, stationID, date); err != nil {
			return err
		}
		if run == nil {
			return nil
		}
		run.State = recondomain.RunNotStarted
		run.CompletedAt = nil
		run.UpdatedAt = s.now()
		return s.repo.UpsertRun(ctx, tx, run)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Service) nextRun(run *recondomain.ReconciliationRun, stationID snowflake.ID, date time.Time) *recondomain.ReconciliationRun {
	now := s.now()
	if run == nil {
		run = &recondomain.ReconciliationRun{
			ID:           s.genID.Generate(),
			StationID:    stationID,
			BusinessDate: date,
			CreatedAt:    now,
		}
	}
	run.RunKey = ulid.Make().String()
	run.State = recondomain.RunComputing
	run.StartedAt = &now
	run.CompletedAt = nil
	run.LastError = nil
	run.UpdatedAt = now
	return run
}

func completeRun(run *recondomain.ReconciliationRun, batch recondomain.BatchResult, skipped int, now time.Time) {
	run.State = recondomain.RunCompleted
	run.CompletedAt = &now
	run.SucceededCount = len(batch.Succeeded)
	run.SkippedCount = skipped
	run.FailedCount = len(batch.Failed)
	run.UpdatedAt = now
	run.Failures = nil
	run.LastError = nil
	if len(batch.Failed) == 0 {
		return
	}
	if raw, err := json.Marshal(batch.Failed); err == nil {
		run.Failures = datatypes.JSON(raw)
	}
	msg := batch.Err().Error()
	run.LastError = &msg
}

func newResult(stationID snowflake.ID, date time.Time, runKey string, calcs []recondomain.DailyCalculation) *recondomain.CalculateResult {
	t := sumCalculations(calcs)
	return &recondomain.CalculateResult{
		StationID:       stationID,
		BusinessDate:    date,
		RunKey:          runKey,
		CalculatedCount: len(calcs),
		TotalVolume:     t.volume,
		TotalRevenue:    t.revenue,
		Calculations:    calcs,
	}
}

func readingValue(r *readingdomain.MeterReading) decimal.NullDecimal {
	if r == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(r.Value)
}

// failureReason maps a pump error to a stable, low-cardinality code.
func failureReason(err error) string {
	for _, known := range []error{
		recondomain.ErrPriceNotFound,
		recondomain.ErrProductNotFound,
		recondomain.ErrCalculationConflict,
		recondomain.ErrPumpNotFound,
		context.DeadlineExceeded,
		context.Canceled,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal_error"
}
