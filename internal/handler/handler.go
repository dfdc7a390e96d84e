package handler

import (
	"context"
	"net/http"

	"retailer-service/internal/apperror"
	"retailer-service/internal/middleware"
	"retailer-service/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Handler holds the services the HTTP surface dispatches to
type Handler struct {
	db         *gorm.DB
	masterData *service.MasterDataService
	retailers  *service.RetailerService
	management *service.RetailerManagementService
	auth       *service.AuthService
}

func New(db *gorm.DB, masterData *service.MasterDataService, retailers *service.RetailerService,
	management *service.RetailerManagementService, auth *service.AuthService) *Handler {
	return &Handler{
		db:         db,
		masterData: masterData,
		retailers:  retailers,
		management: management,
		auth:       auth,
	}
}

// callerOf returns the caller set by the route guard
func callerOf(c echo.Context) (*service.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return nil, apperror.Authentication("Missing authorization token")
	}
	return caller, nil
}

func createHandler[Req any, Out any](create func(context.Context, Req) (Out, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		out, err := create(c.Request().Context(), req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, out)
	}
}

func listHandler[Out any](list func(context.Context) (Out, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := list(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}

func updateHandler[Req any, Out any](update func(context.Context, uint, Req) (Out, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var req Req
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		out, err := update(c.Request().Context(), id, req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}

func deleteHandler[Out any](remove func(context.Context, uint) (Out, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		out, err := remove(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}
