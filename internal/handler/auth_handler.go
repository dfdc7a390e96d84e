package handler

import (
	"net/http"

	"retailer-service/internal/service"

	"github.com/labstack/echo/v4"
)

// Login exchanges username and password for a bearer token
func (h *Handler) Login(c echo.Context) error {
	var req service.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Profile returns the authenticated caller
func (h *Handler) Profile(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caller)
}
