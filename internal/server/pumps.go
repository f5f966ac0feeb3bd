package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
)

type createPumpRequest struct {
	Number        string           `json:"number"`
	ProductID     *snowflake.ID    `json:"product_id"`
	MeterCapacity *decimal.Decimal `json:"meter_capacity"`
	InstalledAt   string           `json:"installed_at"`
	Status        string           `json:"status"`
}

func (s *Server) CreatePump(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createPumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MeterCapacity == nil {
		AbortWithError(c, newValidationError("meter_capacity", "required", "meter_capacity is required"))
		return
	}
	installedAt, err := parseOptionalDate("installed_at", req.InstalledAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pumpSvc.Create(c.Request.Context(), pumpdomain.CreateRequest{
		StationID:     stationID,
		Number:        strings.TrimSpace(req.Number),
		ProductID:     req.ProductID,
		MeterCapacity: req.MeterCapacity.String(),
		InstalledAt:   installedAt,
		Status:        pumpdomain.Status(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPumps(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var resp []pumpdomain.Pump
	if c.Query("active") == "true" {
		resp, err = s.pumpSvc.ListActive(c.Request.Context(), stationID)
	} else {
		resp, err = s.pumpSvc.List(c.Request.Context(), stationID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPump(c *gin.Context) {
	id, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pumpSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type changePumpStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ChangePumpStatus(c *gin.Context) {
	id, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req changePumpStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pumpSvc.ChangeStatus(c.Request.Context(), id, pumpdomain.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivatePump(c *gin.Context) {
	id, err := parseIDParam(c, "pump_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pumpSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
