package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const loggerKey = "logger"

// FromContext retrieves the request-scoped logger from the Echo context
func FromContext(c echo.Context) *zap.Logger {
	l, ok := c.Get(loggerKey).(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return l
}

// SetInContext stores a request-scoped logger in the Echo context
func SetInContext(c echo.Context, l *zap.Logger) {
	c.Set(loggerKey, l)
}
