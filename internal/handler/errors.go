package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"retailer-service/internal/apperror"
	"retailer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every failure as {"error": message}. Internal failures
// are logged with their cause and reported with a generic message.
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := apperror.HTTPStatus(err)
		message := apperror.PublicMessage(err)

		var appErr *apperror.Error
		var httpErr *echo.HTTPError
		if !errors.As(err, &appErr) && errors.As(err, &httpErr) {
			status = httpErr.Code
			message = fmt.Sprint(httpErr.Message)
		}

		log := logger.FromContext(c)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", zap.Int("status", status), zap.Error(err))
		} else {
			log.Info("Request rejected", zap.Int("status", status), zap.String("reason", message))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": message})
		}
		if err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}

// bindAndValidate decodes the request into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "Invalid request data")
	}
	return c.Validate(req)
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("Invalid %s", name)
	}
	return uint(id), nil
}
