package server

import (
	"github.com/cellannotation/cas/internal/server/middleware"
	"github.com/cellannotation/cas/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/api/schema", routes.GetSchemaHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/build", routes.BuildTaxonomyHandler, middleware.RequirePermission(middleware.PermTaxonomyCreate))

	// Taxonomy routes
	apiRoutes.GET("/taxonomies", routes.GetTaxonomiesHandler, middleware.RequirePermission(middleware.PermTaxonomyView))
	apiRoutes.POST("/taxonomies", routes.CreateTaxonomyHandler, middleware.RequirePermission(middleware.PermTaxonomyCreate))
	apiRoutes.GET("/taxonomies/:id", routes.GetTaxonomyHandler, middleware.RequirePermission(middleware.PermTaxonomyView))
	apiRoutes.GET("/taxonomies/:id/cells", routes.GetTaxonomyCellsHandler, middleware.RequirePermission(middleware.PermTaxonomyView))
	apiRoutes.DELETE("/taxonomies/:id", routes.DeleteTaxonomyHandler, middleware.RequireAnyPermission(middleware.PermTaxonomyDelete, middleware.PermTaxonomyAdmin))
}
