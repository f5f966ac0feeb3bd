package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
)

type createProductRequest struct {
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Currency  string           `json:"currency"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.UnitPrice == nil {
		AbortWithError(c, newValidationError("unit_price", "required", "unit_price is required"))
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateRequest{
		StationID: stationID,
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice.String(),
		Currency:  strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	stationID, err := parseIDParam(c, "station_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), stationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProduct(c *gin.Context) {
	id, err := parseIDParam(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePriceRequest struct {
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (s *Server) UpdateProductPrice(c *gin.Context) {
	id, err := parseIDParam(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.UnitPrice == nil {
		AbortWithError(c, newValidationError("unit_price", "required", "unit_price is required"))
		return
	}

	resp, err := s.productSvc.UpdateUnitPrice(c.Request.Context(), id, req.UnitPrice.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
