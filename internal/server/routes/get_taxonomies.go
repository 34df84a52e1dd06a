package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cellannotation/cas/internal/server/middleware"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/loader/csv"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/store"
	"github.com/cellannotation/cas/pkg/taxonomy"

	"github.com/labstack/echo/v4"
)

type taxonomyParams struct {
	ID string `param:"id" validate:"required,alphanum"`
}

func bindTaxonomyID(c echo.Context) (string, error) {
	params := new(taxonomyParams)
	if err := c.Bind(params); err != nil {
		return "", err
	}
	if err := c.Validate(params); err != nil {
		return "", err
	}
	if !util.IsPublicID(params.ID) {
		return "", fmt.Errorf("malformed taxonomy id %q", params.ID)
	}
	return params.ID, nil
}

func GetTaxonomiesHandler(c echo.Context) error {
	type listParams struct {
		Limit  int `query:"limit" validate:"min=0,max=500"`
		Offset int `query:"offset" validate:"min=0"`
	}

	params := new(listParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.Limit == 0 {
		params.Limit = 50
	}

	app := c.(*middleware.AppContext).App
	res, err := app.Store.ListTaxonomies(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		logger.Error("[Server] Failed to list taxonomies", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if res == nil {
		res = []store.TaxonomyRecord{}
	}

	return c.JSON(http.StatusOK, res)
}

// GetTaxonomyHandler returns the taxonomy record and, once ready, its
// labelsets and annotations.
func GetTaxonomyHandler(c echo.Context) error {
	type getTaxonomyResponse struct {
		store.TaxonomyRecord
		Document *common.Taxonomy `json:"taxonomy,omitempty"`
	}

	id, err := bindTaxonomyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	rec, err := app.Store.GetTaxonomy(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Taxonomy not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load taxonomy", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	resp := getTaxonomyResponse{TaxonomyRecord: rec}
	if rec.Status == store.StatusReady {
		doc, err := app.Store.GetAnnotations(ctx, id)
		if err != nil {
			logger.Error("[Server] Failed to load annotations", "taxonomy_id", id, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		doc.Title = rec.Title
		resp.Document = doc
	}

	return c.JSON(http.StatusOK, resp)
}

// GetTaxonomyCellsHandler returns the annotations projected back onto the
// cells of the uploaded table as CSV.
func GetTaxonomyCellsHandler(c echo.Context) error {
	id, err := bindTaxonomyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	rec, err := app.Store.GetTaxonomy(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Taxonomy not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load taxonomy", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if rec.Status != store.StatusReady {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Taxonomy is " + string(rec.Status)})
	}

	doc, err := app.Store.GetAnnotations(ctx, id)
	if err != nil {
		logger.Error("[Server] Failed to load annotations", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	content, err := app.Objects.GetFile(ctx, rec.FilePath)
	if err != nil {
		logger.Error("[Server] Failed to load upload", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	table, err := csv.ParseTable(content, csv.Delimiter(loader.FormatFromPath(rec.FilePath), content), rec.IndexColumn)
	if err != nil {
		logger.Error("[Server] Failed to parse upload", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	flat, err := taxonomy.Flatten(table.CellIDs(), doc.Annotations)
	if err != nil {
		logger.Error("[Server] Failed to flatten taxonomy", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	indexName := rec.IndexColumn
	if indexName == "" {
		indexName = "cell_id"
	}

	var b strings.Builder
	if err := csv.WriteTable(&b, flat, indexName); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+id+`_cells.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(b.String()))
}
