package store

import (
	"context"
	"errors"
	"time"

	"github.com/cellannotation/cas/pkg/common"
)

var ErrNotFound = errors.New("taxonomy not found")

type TaxonomyStatus string

const (
	StatusPending    TaxonomyStatus = "pending"
	StatusProcessing TaxonomyStatus = "processing"
	StatusReady      TaxonomyStatus = "ready"
	StatusFailed     TaxonomyStatus = "failed"
)

// TaxonomyRecord is the bookkeeping row of a taxonomy build. The annotations
// themselves are loaded separately with GetAnnotations.
type TaxonomyRecord struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Status          TaxonomyStatus `json:"status"`
	Labelsets       []string       `json:"labelsets"`
	FilePath        string         `json:"file_path"`
	IndexColumn     string         `json:"index_column,omitempty"`
	ResultPath      string         `json:"result_path,omitempty"`
	Error           string         `json:"error,omitempty"`
	AnnotationCount int            `json:"annotation_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TaxonomyStorage persists taxonomy builds and their results.
//
// SaveResult replaces any previously stored annotations of the taxonomy and
// marks it ready in the same transaction. DeleteTaxonomy removes the record
// and everything stored under it; it returns ErrNotFound for unknown ids, as
// do the getters.
type TaxonomyStorage interface {
	CreateTaxonomy(ctx context.Context, rec TaxonomyRecord) error
	UpdateStatus(ctx context.Context, id string, status TaxonomyStatus, message string) error
	SaveResult(ctx context.Context, id string, resultPath string, tax *common.Taxonomy) error

	GetTaxonomy(ctx context.Context, id string) (TaxonomyRecord, error)
	ListTaxonomies(ctx context.Context, limit, offset int) ([]TaxonomyRecord, error)
	GetAnnotations(ctx context.Context, id string) (*common.Taxonomy, error)

	DeleteTaxonomy(ctx context.Context, id string) error
}
