package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cellannotation/cas/internal/metrics"
	"github.com/cellannotation/cas/internal/storage"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/leaselock"
	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/loader/csv"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/obs"
	"github.com/cellannotation/cas/pkg/store"
	"github.com/cellannotation/cas/pkg/taxonomy"
)

// Builder builds a taxonomy from a cell metadata table.
type Builder interface {
	Build(ctx context.Context, src taxonomy.Source, labelsets []string) (*common.Taxonomy, error)
}

// Locker runs fn while holding an exclusive lease on key.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Worker holds everything needed to process taxonomy jobs.
type Worker struct {
	Store     store.TaxonomyStorage
	Objects   storage.ObjectStore
	Locks     Locker
	Builder   Builder
	Namespace string
	LeaseTTL  time.Duration
}

// objectLoader reads uploaded tables from the object store.
type objectLoader struct {
	objects storage.ObjectStore
}

func (l objectLoader) GetFileBytes(ctx context.Context, file loader.TableFile) ([]byte, error) {
	return l.objects.GetFile(ctx, file.FilePath)
}

// ProcessTaxonomyMessage builds the taxonomy named in body, stores the
// resulting document next to the upload and saves the annotations.
//
// Jobs for taxonomies that are already ready are acknowledged without work,
// so redelivered messages are harmless. Errors caused by the input table mark
// the taxonomy failed; other errors leave it pending for a retry.
func (w *Worker) ProcessTaxonomyMessage(ctx context.Context, body []byte) (err error) {
	msg, err := ParseTaxonomyJobMsg(body)
	if err != nil {
		return err
	}

	log := []any{"taxonomy_id", msg.TaxonomyID, "correlation_id", msg.CorrelationID}
	logger.Info("[Queue] Processing taxonomy job", log...)

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	opts := leaselock.Options{TTL: w.LeaseTTL}
	return w.Locks.WithLease(ctx, leaselock.TaxonomyKey(msg.TaxonomyID), opts, func(ctx context.Context) error {
		rec, err := w.Store.GetTaxonomy(ctx, msg.TaxonomyID)
		if err != nil {
			return fmt.Errorf("load taxonomy %s: %w", msg.TaxonomyID, err)
		}
		if rec.Status == store.StatusReady {
			logger.Info("[Queue] Taxonomy already built, skipping", log...)
			return nil
		}

		if err := w.Store.UpdateStatus(ctx, msg.TaxonomyID, store.StatusProcessing, ""); err != nil {
			return err
		}

		start := time.Now()
		tax, err := w.build(ctx, msg, rec)
		outcome := "success"
		if err != nil {
			outcome = "failed"
			w.markFailed(msg.TaxonomyID, err)
		}
		count := 0
		if tax != nil {
			count = len(tax.Annotations)
		}
		metrics.ObserveBuild("worker", outcome, time.Since(start).Seconds(), count)
		if err != nil {
			return err
		}

		logger.Info("[Queue] Taxonomy ready", append(log, "annotations", count)...)
		return nil
	})
}

func (w *Worker) build(ctx context.Context, msg TaxonomyJobMsg, rec store.TaxonomyRecord) (*common.Taxonomy, error) {
	file := loader.NewTableFile(loader.NewTableFileParams{
		ID:          msg.TaxonomyID,
		FilePath:    msg.FilePath,
		IndexColumn: msg.IndexColumn,
		Loader:      objectLoader{w.Objects},
	})
	table, err := csv.NewCSVTableLoader(file.Loader).GetTable(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}

	tax, err := w.Builder.Build(ctx, table, msg.Labelsets)
	if err != nil {
		return nil, err
	}
	tax.Title = rec.Title
	taxonomy.PopulateIDs(tax, w.Namespace, msg.TaxonomyID)

	data, err := json.Marshal(tax)
	if err != nil {
		return tax, err
	}
	key := storage.ResultKey(msg.TaxonomyID)
	err = util.RetryErrWithContext(ctx, 3, 200*time.Millisecond, func(ctx context.Context) error {
		return w.Objects.PutFile(ctx, key, bytes.NewReader(data))
	})
	if err != nil {
		return tax, err
	}

	if err := w.Store.SaveResult(ctx, msg.TaxonomyID, key, tax); err != nil {
		return tax, fmt.Errorf("save result: %w", err)
	}
	return tax, nil
}

// markFailed records the error on the taxonomy. Data errors are final;
// anything else goes back to pending until the retry succeeds.
func (w *Worker) markFailed(id string, cause error) {
	status := store.StatusPending
	if IsFatal(cause) {
		status = store.StatusFailed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Store.UpdateStatus(ctx, id, status, cause.Error()); err != nil {
		logger.Warn("[Queue] Failed to record taxonomy error", "taxonomy_id", id, "err", err)
	}
}

// IsFatal reports whether retrying a job that failed with err is pointless.
func IsFatal(err error) bool {
	return taxonomy.IsFatal(err) ||
		errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, csv.ErrEmptyTable) ||
		errors.Is(err, csv.ErrIndexColumn) ||
		errors.Is(err, csv.ErrDuplicateCol) ||
		errors.Is(err, csv.ErrRowWidth) ||
		errors.Is(err, obs.ErrDuplicateCell)
}
