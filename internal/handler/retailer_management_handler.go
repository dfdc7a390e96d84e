package handler

import (
	"errors"
	"net/http"

	"retailer-service/internal/apperror"
	"retailer-service/internal/service"
	"retailer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AssignRetailers grants a sales rep access to a list of retailers
func (h *Handler) AssignRetailers(c echo.Context) error {
	var req service.AssignmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.management.AssignRetailers(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// UnassignRetailers revokes a sales rep's access to a list of retailers
func (h *Handler) UnassignRetailers(c echo.Context) error {
	var req service.AssignmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.management.UnassignRetailers(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ImportRetailers loads retailers from the multipart "file" field
func (h *Handler) ImportRetailers(c echo.Context) error {
	log := logger.FromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		log.Warn("CSV upload without file field", zap.Error(err))
		return apperror.Validation("CSV file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperror.Internal(err, "open uploaded file")
	}
	defer src.Close()

	log.Info("Importing retailers",
		zap.String("filename", fileHeader.Filename),
		zap.Int64("size", fileHeader.Size))

	res, err := h.management.ImportRetailersFromCSV(c.Request().Context(), src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// AssignedRetailers lists the retailer ids assigned to the sales rep in the path
func (h *Handler) AssignedRetailers(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ids, err := h.management.AssignedRetailerIDs(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"salesRepId":  id,
		"retailerIds": ids,
	})
}
