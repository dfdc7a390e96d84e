package handler

import (
	"fmt"
	"net/http"

	mid "retailer-service/internal/middleware"
	"retailer-service/pkg/logger"
	"retailer-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Route is one row of the HTTP surface: who may call it and what serves it
type Route struct {
	Method     string
	Path       string
	Access     mid.Access
	Handler    echo.HandlerFunc
	Middleware []echo.MiddlewareFunc
}

// Routes is the complete route table. uploadLimitMB bounds the CSV import body.
func (h *Handler) Routes(uploadLimitMB int) []Route {
	const (
		masterData = "/admin/master-data"
		management = "/admin/retailer-management"
	)
	uploadLimit := middleware.BodyLimit(fmt.Sprintf("%dM", uploadLimitMB))

	return []Route{
		{http.MethodGet, "/health", mid.Public, h.HealthCheck, nil},

		// auth
		{http.MethodPost, "/auth/login", mid.Public, h.Login, nil},
		{http.MethodGet, "/auth/profile", mid.Authenticated, h.Profile, nil},

		// master data
		{http.MethodPost, masterData + "/regions", mid.AdminOnly, createHandler(h.masterData.CreateRegion), nil},
		{http.MethodGet, masterData + "/regions", mid.Authenticated, listHandler(h.masterData.ListRegions), nil},
		{http.MethodPut, masterData + "/regions/:id", mid.AdminOnly, updateHandler(h.masterData.UpdateRegion), nil},
		{http.MethodDelete, masterData + "/regions/:id", mid.AdminOnly, deleteHandler(h.masterData.DeleteRegion), nil},

		{http.MethodPost, masterData + "/areas", mid.AdminOnly, createHandler(h.masterData.CreateArea), nil},
		{http.MethodGet, masterData + "/areas", mid.Authenticated, listHandler(h.masterData.ListAreas), nil},
		{http.MethodPut, masterData + "/areas/:id", mid.AdminOnly, updateHandler(h.masterData.UpdateArea), nil},
		{http.MethodDelete, masterData + "/areas/:id", mid.AdminOnly, deleteHandler(h.masterData.DeleteArea), nil},

		{http.MethodPost, masterData + "/distributors", mid.AdminOnly, createHandler(h.masterData.CreateDistributor), nil},
		{http.MethodGet, masterData + "/distributors", mid.Authenticated, listHandler(h.masterData.ListDistributors), nil},
		{http.MethodPut, masterData + "/distributors/:id", mid.AdminOnly, updateHandler(h.masterData.UpdateDistributor), nil},
		{http.MethodDelete, masterData + "/distributors/:id", mid.AdminOnly, deleteHandler(h.masterData.DeleteDistributor), nil},

		{http.MethodPost, masterData + "/territories", mid.AdminOnly, createHandler(h.masterData.CreateTerritory), nil},
		{http.MethodGet, masterData + "/territories", mid.Authenticated, listHandler(h.masterData.ListTerritories), nil},
		{http.MethodPut, masterData + "/territories/:id", mid.AdminOnly, updateHandler(h.masterData.UpdateTerritory), nil},
		{http.MethodDelete, masterData + "/territories/:id", mid.AdminOnly, deleteHandler(h.masterData.DeleteTerritory), nil},

		// retailer management
		{http.MethodPost, management + "/assign", mid.AdminOnly, h.AssignRetailers, nil},
		{http.MethodDelete, management + "/unassign", mid.AdminOnly, h.UnassignRetailers, nil},
		{http.MethodPost, management + "/import-csv", mid.AdminOnly, h.ImportRetailers, []echo.MiddlewareFunc{uploadLimit}},
		{http.MethodPost, management + "/retailers", mid.AdminOnly, createHandler(h.management.CreateRetailer), nil},
		{http.MethodGet, management + "/sales-reps/:id/retailers", mid.AdminOnly, h.AssignedRetailers, nil},

		// sales rep administration
		{http.MethodPost, "/admin/sales-reps", mid.AdminOnly, createHandler(h.auth.CreateSalesRep), nil},
		{http.MethodGet, "/admin/sales-reps", mid.AdminOnly, listHandler(h.auth.ListSalesReps), nil},

		// sales rep retailers
		{http.MethodGet, "/retailers", mid.SalesRepOnly, h.ListRetailers, nil},
		{http.MethodGet, "/retailers/:id", mid.SalesRepOnly, h.GetRetailer, nil},
		{http.MethodPatch, "/retailers/:id", mid.SalesRepOnly, h.UpdateRetailer, nil},
	}
}

// Register mounts routes on e, each behind the guard for its access level
func Register(e *echo.Echo, routes []Route, resolver mid.CallerResolver, metrics *prometheus.Metrics) {
	for _, r := range routes {
		chain := append([]echo.MiddlewareFunc{mid.Guard(resolver, metrics, r.Access)}, r.Middleware...)
		e.Add(r.Method, r.Path, r.Handler, chain...)
	}
}

// NewEcho builds the server with the shared middleware stack
func NewEcho(metrics *prometheus.Metrics, base *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler()

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware(base))
	e.Use(metrics.Middleware())
	e.Use(logger.Middleware())

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}
