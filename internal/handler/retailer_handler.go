package handler

import (
	"net/http"

	"retailer-service/internal/service"
	"retailer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListRetailers returns a page of the caller's assigned retailers
func (h *Handler) ListRetailers(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}

	var filter service.RetailerFilter
	if err := bindAndValidate(c, &filter); err != nil {
		return err
	}

	page, err := h.retailers.ListForSalesRep(c.Request().Context(), caller.ID, filter)
	if err != nil {
		return err
	}

	logger.FromContext(c).Debug("Retailers listed",
		zap.Int64("total", page.Meta.Total),
		zap.Int("page", page.Meta.Page))
	return c.JSON(http.StatusOK, page)
}

// GetRetailer returns one of the caller's assigned retailers with its relations
func (h *Handler) GetRetailer(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	retailer, err := h.retailers.GetForSalesRep(c.Request().Context(), id, caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, retailer)
}

// UpdateRetailer changes points, routes or notes of an assigned retailer
func (h *Handler) UpdateRetailer(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req service.UpdateRetailerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	retailer, err := h.retailers.UpdateForSalesRep(c.Request().Context(), id, caller.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, retailer)
}
