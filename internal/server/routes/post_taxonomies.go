package routes

import (
	"encoding/json"
	"net/http"

	"github.com/cellannotation/cas/internal/queue"
	"github.com/cellannotation/cas/internal/server/middleware"
	"github.com/cellannotation/cas/internal/storage"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/store"

	"github.com/labstack/echo/v4"
)

// CreateTaxonomyHandler stores the uploaded table and queues a build job.
// The table is only parsed by the worker.
func CreateTaxonomyHandler(c echo.Context) error {
	type createTaxonomyForm struct {
		Name string `form:"name" validate:"required"`
	}

	type createTaxonomyResponse struct {
		Message  string               `json:"message"`
		Taxonomy *store.TaxonomyRecord `json:"taxonomy,omitempty"`
	}

	form := new(createTaxonomyForm)
	if err := c.Bind(form); err != nil {
		return c.JSON(http.StatusBadRequest, createTaxonomyResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(form); err != nil {
		return c.JSON(http.StatusBadRequest, createTaxonomyResponse{
			Message: "Invalid request body",
		})
	}
	up, err := readUpload(c, new(tableForm))
	if err != nil {
		return c.JSON(http.StatusBadRequest, createTaxonomyResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	id, err := util.NewPublicID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createTaxonomyResponse{
			Message: "Internal server error",
		})
	}

	src, err := up.header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, createTaxonomyResponse{
			Message: "Invalid request body",
		})
	}
	defer src.Close()

	key := storage.UploadKey(id, up.header.Filename)
	if err := app.Objects.PutFile(ctx, key, src); err != nil {
		logger.Error("[Server] Failed to upload table", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, createTaxonomyResponse{
			Message: "Internal server error",
		})
	}

	rec := store.TaxonomyRecord{
		ID:          id,
		Title:       form.Name,
		Status:      store.StatusPending,
		Labelsets:   up.labelsets,
		FilePath:    key,
		IndexColumn: up.index,
	}
	if err := app.Store.CreateTaxonomy(ctx, rec); err != nil {
		logger.Error("[Server] Failed to create taxonomy", "taxonomy_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, createTaxonomyResponse{
			Message: "Internal server error",
		})
	}

	job := queue.NewTaxonomyJobMsg(id, key, up.index, up.labelsets)
	data, err := json.Marshal(job)
	if err == nil {
		err = queue.PublishFIFO(ctx, app.Queue, queue.TaxonomyQueue, data, nil)
	}
	if err != nil {
		logger.Error("[Server] Failed to publish taxonomy job", "taxonomy_id", id, "err", err)
		if err := app.Store.UpdateStatus(ctx, id, store.StatusFailed, "failed to queue build"); err != nil {
			logger.Warn("[Server] Failed to mark taxonomy failed", "taxonomy_id", id, "err", err)
		}
		return c.JSON(http.StatusInternalServerError, createTaxonomyResponse{
			Message: "Internal server error",
		})
	}

	logger.Info("[Server] Queued taxonomy build", "taxonomy_id", id, "correlation_id", job.CorrelationID)
	return c.JSON(http.StatusAccepted, createTaxonomyResponse{
		Message:  "Taxonomy queued",
		Taxonomy: &rec,
	})
}
