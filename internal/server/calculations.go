package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
)

type calculateRequest struct {
	Date             string `json:"date"`
	ForceRecalculate bool   `json:"force_recalculate"`
}

func (s *Server) CalculateForDate(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.CalculateForDate(c.Request.Context(), recondomain.CalculateRequest{
		StationID:        stationID,
		Date:             date,
		ForceRecalculate: req.ForceRecalculate,
		Actor:            actorFromRequest(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCalculations(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.GetCalculations(c.Request.Context(), stationID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCalculation(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.GetCalculation(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type approvalRequest struct {
	Approved *bool  `json:"approved"`
	Notes    string `json:"notes"`
}

func (s *Server) ReviewCalculation(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Approved == nil {
		AbortWithError(c, newValidationError("approved", "required", "approved is required"))
		return
	}

	resp, err := s.reconciliationSvc.ApproveEstimatedCalculation(c.Request.Context(), recondomain.ApprovalRequest{
		CalculationID: id,
		Approved:      *req.Approved,
		Notes:         req.Notes,
		Actor:         actorFromRequest(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rolloverConfirmationRequest struct {
	Date              string           `json:"date"`
	RolloverValue     *decimal.Decimal `json:"rollover_value"`
	NewClosingReading *decimal.Decimal `json:"new_closing_reading"`
}

func (s *Server) ConfirmRollover(c *gin.Context) {
	pumpID, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req rolloverConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.RolloverValue == nil {
		AbortWithError(c, newValidationError("rollover_value", "required", "rollover_value is required"))
		return
	}
	if req.NewClosingReading == nil {
		AbortWithError(c, newValidationError("new_closing_reading", "required", "new_closing_reading is required"))
		return
	}

	resp, err := s.reconciliationSvc.ConfirmRollover(c.Request.Context(), recondomain.ConfirmRolloverRequest{
		PumpID:            pumpID,
		Date:              date,
		RolloverValue:     req.RolloverValue.String(),
		NewClosingReading: req.NewClosingReading.String(),
		Actor:             actorFromRequest(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDeviations(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Threshold  string `form:"threshold"`
		WindowDays string `form:"window_days"`
		From       string `form:"from"`
		To         string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseDate("from", query.From)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := parseDate("to", query.To)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	windowDays, err := parseOptionalInt("window_days", query.WindowDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.GetDeviations(c.Request.Context(), recondomain.DeviationQuery{
		StationID:        stationID,
		From:             from,
		To:               to,
		ThresholdPercent: optionalString(query.Threshold),
		WindowDays:       windowDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPendingApprovals(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	from, err := parseOptionalDate("from", c.Query("from"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := parseOptionalDate("to", c.Query("to"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.ListPendingApprovals(c.Request.Context(), recondomain.PendingApprovalQuery{
		StationID: stationID,
		From:      from,
		To:        to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStationSummary(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("date", strings.TrimSpace(c.Param("date")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.GetStationSummary(c.Request.Context(), stationID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRunStatus(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("date", strings.TrimSpace(c.Param("date")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciliationSvc.GetRunStatus(c.Request.Context(), stationID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
