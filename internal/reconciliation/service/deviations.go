package service

import (
	"context"

	"github.com/shopspring/decimal"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/deviation"
)

// GetDeviations re-derives outliers from stored history. Results match the
// stored DeviationPercent only when the window equals the configured one.
func (s *Service) GetDeviations(ctx context.Context, req recondomain.DeviationQuery) ([]recondomain.DeviationRecord, error) {
	if req.StationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	from, to, err := validateRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	settings := s.settings.ForStation(req.StationID)

	threshold := settings.DeviationThresholdPercent
	if req.ThresholdPercent != nil {
		threshold, err = decimal.NewFromString(*req.ThresholdPercent)
		if err != nil || threshold.IsNegative() {
			return nil, recondomain.NewValidationError("threshold", recondomain.ErrInvalidThreshold)
		}
	}
	window := settings.DeviationWindowDays
	switch {
	case req.WindowDays < 0 || req.WindowDays > maxQueryDays:
		return nil, recondomain.NewValidationError("window_days", recondomain.ErrInvalidWindow)
	case req.WindowDays > 0:
		window = req.WindowDays
	}

	ctx, span := s.tracer.Start(ctx, "reconciliation.get_deviations")
	defer span.End()

	query := deviation.NewQuery(deviationSource{db: s.db, repo: s.repo})
	return query.Find(ctx, deviation.Params{
		StationID:        req.StationID,
		From:             from,
		To:               to,
		ThresholdPercent: threshold,
		WindowDays:       window,
	})
}
