package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
)

type recordReadingRequest struct {
	Date             string           `json:"date"`
	Type             string           `json:"reading_type"`
	Value            *decimal.Decimal `json:"value"`
	EstimationMethod string           `json:"estimation_method"`
}

func (s *Server) RecordReading(c *gin.Context) {
	pumpID, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.Value == nil {
		AbortWithError(c, newValidationError("value", "required", "value is required"))
		return
	}

	resp, err := s.readingSvc.Record(c.Request.Context(), readingdomain.RecordRequest{
		PumpID:           pumpID,
		Date:             date,
		Type:             readingdomain.Type(strings.TrimSpace(req.Type)),
		Value:            req.Value.String(),
		RecordedBy:       actorFromRequest(c),
		EstimationMethod: readingdomain.EstimationMethod(strings.TrimSpace(req.EstimationMethod)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListReadings(c *gin.Context) {
	pumpID, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.readingSvc.List(c.Request.Context(), pumpID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type correctReadingRequest struct {
	Value *decimal.Decimal `json:"value"`
}

func (s *Server) CorrectReading(c *gin.Context) {
	id, err := parseIDParam(c, "reading_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req correctReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Value == nil {
		AbortWithError(c, newValidationError("value", "required", "value is required"))
		return
	}

	resp, err := s.readingSvc.Correct(c.Request.Context(), readingdomain.CorrectRequest{
		ReadingID:  id,
		Value:      req.Value.String(),
		ModifiedBy: actorFromRequest(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
