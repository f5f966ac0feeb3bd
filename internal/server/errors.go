package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *recondomain.ValidationError
	if errors.As(err, &fieldErr) {
		code := fieldErr.Reason
		if fieldErr.Err != nil {
			code = fieldErr.Err.Error()
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fieldErr.Field,
					Code:    code,
					Message: fieldErr.Reason,
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var rule *recondomain.BusinessRuleViolation
	if errors.As(err, &rule) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "business_rule_violation",
			Message: rule.Reason,
			Errors: []ValidationError{
				{
					Code:    rule.Rule,
					Message: rule.Reason,
				},
			},
		}
	}

	switch {
	case errors.Is(err, pumpdomain.ErrInactive):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "business_rule_violation",
			Message: "pump is deactivated",
			Errors: []ValidationError{
				{
					Field:   "pump_id",
					Code:    pumpdomain.ErrInactive.Error(),
					Message: "pump is deactivated",
				},
			},
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type and error_code on the request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	if status == http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, bizdate.ErrInvalidDate):
		return true
	case recondomain.IsValidation(err),
		isPumpValidationError(err),
		isProductValidationError(err),
		isReadingValidationError(err):
		return true
	default:
		return false
	}
}

func isPumpValidationError(err error) bool {
	for _, target := range []error{
		pumpdomain.ErrInvalidStation,
		pumpdomain.ErrInvalidNumber,
		pumpdomain.ErrInvalidCapacity,
		pumpdomain.ErrInvalidStatus,
		pumpdomain.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isProductValidationError(err error) bool {
	for _, target := range []error{
		productdomain.ErrInvalidStation,
		productdomain.ErrInvalidName,
		productdomain.ErrInvalidUnitPrice,
		productdomain.ErrInvalidCurrency,
		productdomain.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isReadingValidationError(err error) bool {
	for _, target := range []error{
		readingdomain.ErrInvalidPump,
		readingdomain.ErrInvalidDate,
		readingdomain.ErrInvalidType,
		readingdomain.ErrInvalidValue,
		readingdomain.ErrInvalidEstimationMethod,
		readingdomain.ErrInvalidID,
		readingdomain.ErrValueExceedsCapacity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, recondomain.ErrCalculationConflict),
		errors.Is(err, readingdomain.ErrConflict),
		errors.Is(err, productdomain.ErrCodeTaken):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, recondomain.ErrCalculationConflict):
		return "calculation already exists for this pump and date"
	case errors.Is(err, readingdomain.ErrConflict):
		return "reading already recorded for this pump, date and type"
	case errors.Is(err, productdomain.ErrCodeTaken):
		return "product code already in use at this station"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		recondomain.IsNotFound(err):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		recondomain.ErrCalculationNotFound,
		recondomain.ErrNoActivePumps,
		recondomain.ErrSummaryNotFound,
		recondomain.ErrRunNotFound,
		recondomain.ErrPumpNotFound,
		recondomain.ErrProductNotFound,
		recondomain.ErrPriceNotFound,
		recondomain.ErrReadingNotFound,
	} {
		if errors.Is(err, target) {
			return strings.ReplaceAll(target.Error(), "_", " ")
		}
	}
	return "not found"
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if idx := strings.Index(code, "_exceeds_"); idx > 0 {
		return code[:idx]
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case readingdomain.ErrValueExceedsCapacity.Error(),
		recondomain.ErrRolloverExceedsCap.Error():
		return "value exceeds meter capacity"
	default:
		return "invalid value"
	}
}
