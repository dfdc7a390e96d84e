package handler

import (
	"context"
	"net/http"
	"time"

	"retailer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck reports whether the database answers a ping
func (h *Handler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.FromContext(c).Error("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "unhealthy",
			"service": "retailer-service",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "retailer-service",
	})
}
