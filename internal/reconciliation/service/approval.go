package service

import (
	"context"
	"strings"

	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApproveEstimatedCalculation records the human review of an estimated
// calculation. Only pending estimated records can be reviewed.
func (s *Service) ApproveEstimatedCalculation(ctx context.Context, req recondomain.ApprovalRequest) (*recondomain.DailyCalculation, error) {
	if req.CalculationID == 0 {
		return nil, recondomain.ErrInvalidCalculation
	}
	actor := actorOrSystem(req.Actor)

	var reviewed *recondomain.DailyCalculation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		calc, err := s.repo.FindCalculationByID(ctx, tx, req.CalculationID)
		if err != nil {
			return err
		}
		if calc == nil {
			return recondomain.ErrCalculationNotFound
		}
		if !calc.IsEstimated {
			return recondomain.NewBusinessRuleViolation(recondomain.RuleNotEstimated,
				"only estimated calculations require approval")
		}
		if calc.ApprovalStatus != recondomain.ApprovalPending {
			return recondomain.NewBusinessRuleViolation(recondomain.RuleAlreadyReviewed,
				"calculation was already "+string(calc.ApprovalStatus))
		}

		now := s.now()
		calc.ApprovalStatus = recondomain.ApprovalRejected
		if req.Approved {
			calc.ApprovalStatus = recondomain.ApprovalApproved
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			calc.ApprovalNotes = &notes
		}
		calc.ApprovedBy = &actor
		calc.ApprovedAt = &now
		calc.UpdatedAt = now
		if err := s.repo.UpdateCalculation(ctx, tx, calc); err != nil {
			return err
		}
		reviewed = calc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("estimated calculation reviewed",
		zap.String("calculation_id", reviewed.ID.String()),
		zap.String("pump_id", reviewed.PumpID.String()),
		zap.String("approval_status", string(reviewed.ApprovalStatus)),
		zap.String("actor", actor),
	)
	return reviewed, nil
}

func (s *Service) ListPendingApprovals(ctx context.Context, req recondomain.PendingApprovalQuery) ([]recondomain.DailyCalculation, error) {
	if req.StationID == 0 {
		return nil, recondomain.ErrInvalidStation
	}
	from, to := req.From, req.To
	if from != nil && to != nil {
		f, t, err := validateRange(*from, *to)
		if err != nil {
			return nil, err
		}
		from, to = &f, &t
	} else if from != nil || to != nil {
		return nil, recondomain.ErrInvalidDateRange
	}
	return s.repo.ListPendingApprovals(ctx, s.db, req.StationID, from, to)
}
