package routes

import (
	"errors"
	"net/http"

	"github.com/cellannotation/cas/internal/server/middleware"
	"github.com/cellannotation/cas/internal/storage"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/store"

	"github.com/labstack/echo/v4"
)

// DeleteTaxonomyHandler removes the taxonomy rows and its stored files.
func DeleteTaxonomyHandler(c echo.Context) error {
	id, err := bindTaxonomyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	err = app.Store.DeleteTaxonomy(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Taxonomy not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to delete taxonomy", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	// Rows are gone at this point; leftover files are only logged.
	if err := app.Objects.DeleteFolder(ctx, storage.FolderKey(id)); err != nil {
		logger.Warn("[Server] Failed to delete taxonomy files", "taxonomy_id", id, "err", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Taxonomy deleted"})
}
