package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obsmiddleware "github.com/smallbiznis/fuelrecon/internal/observability/logger"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
)

// actorFromRequest identifies who performed a write. Authentication is
// handled in front of this service; the header is trusted as-is.
func actorFromRequest(c *gin.Context) string {
	actor := strings.TrimSpace(c.GetHeader(obsmiddleware.HeaderActorID))
	if actor == "" {
		return "system"
	}
	return actor
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+strings.ReplaceAll(name, "_", " "))
	}
	return id, nil
}

func parseDate(field, value string) (time.Time, error) {
	date, err := bizdate.Parse(value)
	if err != nil {
		return time.Time{}, newValidationError(field, "invalid_"+field, field+" must be YYYY-MM-DD")
	}
	return date, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	date, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func parseOptionalInt(field, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+strings.ReplaceAll(field, "_", " "))
	}
	return parsed, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
