package routes

import (
	"net/http"

	"github.com/cellannotation/cas/pkg/taxonomy"

	"github.com/labstack/echo/v4"
)

// GetSchemaHandler returns the JSON schemas of annotation records and of
// the full taxonomy document.
func GetSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"annotation": taxonomy.AnnotationSchema(),
		"taxonomy":   taxonomy.DocumentSchema(),
	})
}
