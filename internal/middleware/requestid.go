package middleware

import (
	"retailer-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// RequestIDMiddleware tags every request with an id and a logger carrying it
func RequestIDMiddleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDKey)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Set(RequestIDKey, requestID)
			c.Response().Header().Set(RequestIDKey, requestID)

			logger.SetInContext(c, base.With(zap.String("request_id", requestID)))
			return next(c)
		}
	}
}
