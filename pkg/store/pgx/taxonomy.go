package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const createTaxonomySQL = `
INSERT INTO taxonomies (id, title, status, labelsets, file_path, index_column)
VALUES ($1, $2, $3, $4, $5, $6)
`

const updateStatusSQL = `
UPDATE taxonomies
SET status = $2, error = $3, updated_at = now()
WHERE id = $1
`

const markReadySQL = `
UPDATE taxonomies
SET status = 'ready', error = '', result_path = $2, annotation_count = $3, updated_at = now()
WHERE id = $1
`

const selectTaxonomyColumns = `
SELECT id, title, status, labelsets, file_path, index_column, result_path, error,
       annotation_count, created_at, updated_at
FROM taxonomies
`

const getTaxonomySQL = selectTaxonomyColumns + `WHERE id = $1`

const listTaxonomiesSQL = selectTaxonomyColumns + `
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`

const deleteLabelsetsSQL = `DELETE FROM taxonomy_labelsets WHERE taxonomy_id = $1`

const deleteAnnotationsSQL = `DELETE FROM taxonomy_annotations WHERE taxonomy_id = $1`

const insertLabelsetsSQL = `
INSERT INTO taxonomy_labelsets (taxonomy_id, position, name, rank, labelset_id)
SELECT $1, u.position, u.name, u.rank, u.labelset_id
FROM unnest($2::int[], $3::text[], $4::int[], $5::text[]) AS u(position, name, rank, labelset_id)
`

const insertAnnotationsSQL = `
INSERT INTO taxonomy_annotations (
    taxonomy_id, position, labelset, cell_label, cell_fullname, cell_set_accession,
    cell_ontology_term_id, cell_ontology_term, parent_cell_set_name,
    parent_cell_set_accession, cell_ids
)
SELECT $1, u.position, u.labelset, u.cell_label, u.cell_fullname, u.cell_set_accession,
       u.cell_ontology_term_id, u.cell_ontology_term, u.parent_cell_set_name,
       u.parent_cell_set_accession, u.cell_ids::jsonb
FROM unnest(
    $2::int[], $3::text[], $4::text[], $5::text[], $6::text[],
    $7::text[], $8::text[], $9::text[], $10::text[], $11::text[]
) AS u(
    position, labelset, cell_label, cell_fullname, cell_set_accession,
    cell_ontology_term_id, cell_ontology_term, parent_cell_set_name,
    parent_cell_set_accession, cell_ids
)
`

const getLabelsetsSQL = `
SELECT name, rank, labelset_id
FROM taxonomy_labelsets
WHERE taxonomy_id = $1
ORDER BY position
`

const getAnnotationsSQL = `
SELECT labelset, cell_label, cell_fullname, cell_set_accession, cell_ontology_term_id,
       cell_ontology_term, parent_cell_set_name, parent_cell_set_accession, cell_ids
FROM taxonomy_annotations
WHERE taxonomy_id = $1
ORDER BY position
`

const deleteTaxonomySQL = `DELETE FROM taxonomies WHERE id = $1`

func (s *TaxonomyDBStorage) CreateTaxonomy(ctx context.Context, rec store.TaxonomyRecord) error {
	status := rec.Status
	if status == "" {
		status = store.StatusPending
	}
	_, err := s.conn.Exec(ctx, createTaxonomySQL,
		rec.ID,
		util.SanitizePostgresText(rec.Title),
		string(status),
		util.SanitizePostgresTexts(rec.Labelsets),
		rec.FilePath,
		rec.IndexColumn,
	)
	if err != nil {
		return fmt.Errorf("failed to create taxonomy %s: %w", rec.ID, err)
	}
	return nil
}

func (s *TaxonomyDBStorage) UpdateStatus(ctx context.Context, id string, status store.TaxonomyStatus, message string) error {
	tag, err := s.conn.Exec(ctx, updateStatusSQL, id, string(status), util.SanitizePostgresText(message))
	if err != nil {
		return fmt.Errorf("failed to update taxonomy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SaveResult stores the labelsets and annotations of a finished build,
// replacing earlier results, and marks the taxonomy ready.
func (s *TaxonomyDBStorage) SaveResult(ctx context.Context, id string, resultPath string, tax *common.Taxonomy) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteLabelsetsSQL, id); err != nil {
		return fmt.Errorf("failed to clear labelsets: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteAnnotationsSQL, id); err != nil {
		return fmt.Errorf("failed to clear annotations: %w", err)
	}

	if err := insertLabelsets(ctx, tx, id, tax.Labelsets); err != nil {
		return err
	}
	if err := insertAnnotations(ctx, tx, id, tax.Annotations); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, markReadySQL, id, resultPath, len(tax.Annotations))
	if err != nil {
		return fmt.Errorf("failed to mark taxonomy ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return tx.Commit(ctx)
}

func insertLabelsets(ctx context.Context, tx pgxv5.Tx, id string, labelsets []common.Labelset) error {
	positions := make([]int32, len(labelsets))
	names := make([]string, len(labelsets))
	ranks := make([]int32, len(labelsets))
	ids := make([]string, len(labelsets))
	for i, l := range labelsets {
		positions[i] = int32(i)
		names[i] = util.SanitizePostgresText(l.Name)
		ranks[i] = int32(l.Rank)
		ids[i] = l.ID
	}

	if _, err := tx.Exec(ctx, insertLabelsetsSQL, id, positions, names, ranks, ids); err != nil {
		return fmt.Errorf("failed to insert labelsets: %w", err)
	}
	return nil
}

func insertAnnotations(ctx context.Context, tx pgxv5.Tx, id string, annotations []common.Annotation) error {
	return store.ChunkRange(len(annotations), store.ChunkSize, func(start, end int) error {
		n := end - start
		positions := make([]int32, n)
		columns := make([][]string, 9)
		for c := range columns {
			columns[c] = make([]string, n)
		}

		for i, a := range annotations[start:end] {
			cellIDs, err := json.Marshal(a.CellIDs)
			if err != nil {
				return fmt.Errorf("failed to marshal cell ids: %w", err)
			}
			positions[i] = int32(start + i)
			columns[0][i] = util.SanitizePostgresText(a.Labelset)
			columns[1][i] = util.SanitizePostgresText(a.CellLabel)
			columns[2][i] = util.SanitizePostgresText(a.CellFullname)
			columns[3][i] = a.CellSetAccession
			columns[4][i] = util.SanitizePostgresText(a.CellOntologyTermID)
			columns[5][i] = util.SanitizePostgresText(a.CellOntologyTerm)
			columns[6][i] = util.SanitizePostgresText(a.ParentCellSetName)
			columns[7][i] = a.ParentCellSetAccession
			columns[8][i] = util.SanitizePostgresText(string(cellIDs))
		}

		args := []any{id, positions}
		for _, c := range columns {
			args = append(args, c)
		}
		if _, err := tx.Exec(ctx, insertAnnotationsSQL, args...); err != nil {
			return fmt.Errorf("failed to insert annotations %d-%d: %w", start, end, err)
		}
		return nil
	})
}

func scanRecord(row pgxv5.Row) (store.TaxonomyRecord, error) {
	var rec store.TaxonomyRecord
	var status string
	var count int32
	err := row.Scan(
		&rec.ID, &rec.Title, &status, &rec.Labelsets, &rec.FilePath, &rec.IndexColumn,
		&rec.ResultPath, &rec.Error, &count, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return rec, store.ErrNotFound
	}
	rec.Status = store.TaxonomyStatus(status)
	rec.AnnotationCount = int(count)
	return rec, err
}

func (s *TaxonomyDBStorage) GetTaxonomy(ctx context.Context, id string) (store.TaxonomyRecord, error) {
	return scanRecord(s.conn.QueryRow(ctx, getTaxonomySQL, id))
}

func (s *TaxonomyDBStorage) ListTaxonomies(ctx context.Context, limit, offset int) ([]store.TaxonomyRecord, error) {
	rows, err := s.conn.Query(ctx, listTaxonomiesSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TaxonomyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAnnotations loads the stored result of a taxonomy in build order.
func (s *TaxonomyDBStorage) GetAnnotations(ctx context.Context, id string) (*common.Taxonomy, error) {
	rec, err := s.GetTaxonomy(ctx, id)
	if err != nil {
		return nil, err
	}

	tax := &common.Taxonomy{ID: rec.ID, Title: rec.Title}

	rows, err := s.conn.Query(ctx, getLabelsetsSQL, id)
	if err != nil {
		return nil, err
	}
	tax.Labelsets, err = pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Labelset, error) {
		var l common.Labelset
		var rank int32
		err := row.Scan(&l.Name, &rank, &l.ID)
		l.Rank = int(rank)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load labelsets: %w", err)
	}

	rows, err = s.conn.Query(ctx, getAnnotationsSQL, id)
	if err != nil {
		return nil, err
	}
	tax.Annotations, err = pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Annotation, error) {
		var a common.Annotation
		var cellIDs []byte
		err := row.Scan(
			&a.Labelset, &a.CellLabel, &a.CellFullname, &a.CellSetAccession, &a.CellOntologyTermID,
			&a.CellOntologyTerm, &a.ParentCellSetName, &a.ParentCellSetAccession, &cellIDs,
		)
		if err != nil {
			return a, err
		}
		return a, json.Unmarshal(cellIDs, &a.CellIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations: %w", err)
	}

	return tax, nil
}

// DeleteTaxonomy removes the taxonomy. Labelsets and annotations go with it
// through ON DELETE CASCADE.
func (s *TaxonomyDBStorage) DeleteTaxonomy(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, deleteTaxonomySQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete taxonomy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
