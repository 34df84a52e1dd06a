package routes

import (
	"net/http"
	"time"

	"github.com/cellannotation/cas/internal/metrics"
	"github.com/cellannotation/cas/internal/queue"
	"github.com/cellannotation/cas/internal/server/middleware"
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BuildTaxonomyHandler builds a taxonomy from an uploaded table and returns
// it directly. Nothing is stored.
func BuildTaxonomyHandler(c echo.Context) error {
	type buildResponse struct {
		Message  string           `json:"message"`
		Taxonomy *common.Taxonomy `json:"taxonomy,omitempty"`
	}

	up, err := readUpload(c, new(tableForm))
	if err != nil {
		return c.JSON(http.StatusBadRequest, buildResponse{
			Message: "Invalid request body",
		})
	}

	table, err := up.table()
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, buildResponse{
			Message: err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	start := time.Now()
	tax, err := app.Builder.Build(c.Request().Context(), table, up.labelsets)
	if err != nil {
		metrics.ObserveBuild("api", "failed", time.Since(start).Seconds(), 0)
		if queue.IsFatal(err) {
			return c.JSON(http.StatusUnprocessableEntity, buildResponse{
				Message: err.Error(),
			})
		}
		logger.Error("[Server] Failed to build taxonomy", "err", err)
		return c.JSON(http.StatusInternalServerError, buildResponse{
			Message: "Internal server error",
		})
	}
	metrics.ObserveBuild("api", "success", time.Since(start).Seconds(), len(tax.Annotations))

	return c.JSON(http.StatusOK, buildResponse{
		Message:  "Taxonomy built successfully",
		Taxonomy: tax,
	})
}
