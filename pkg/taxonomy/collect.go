package taxonomy

import (
	"context"
	"fmt"
	"strings"

	"github.com/cellannotation/cas/pkg/accession"
	"github.com/cellannotation/cas/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// labelGroup is the per-labelset view of one label before it is merged into
// the label-keyed lookup table.
type labelGroup struct {
	label     string
	cellIDs   []string
	accession string
	ontology  OntologyTerm
}

// Collect builds the label-keyed cell set lookup table for the given ordered
// labelsets.
//
// Labels are grouped by exact, case-sensitive match on the labelset column;
// empty values mark unannotated cells and are skipped. Entries whose label
// text occurs in more than one labelset are merged: their cell ids are
// unioned and the rank of the labelset processed last wins, while the
// accession and ontology term of the first occurrence are kept.
//
// Every call uses a fresh accession service from the client's factory.
// Labelset columns are grouped concurrently, but the merge always runs in
// labelset order so the result does not depend on scheduling.
func (c *Client) Collect(ctx context.Context, src Source, labelsets []string) (map[string]*CellSet, error) {
	if len(labelsets) == 0 {
		return nil, ErrNoLabelsets
	}

	ranks := AssignRanks(labelsets)
	index := src.CellIDs()

	idColumn, err := src.Column(c.ontologyIDColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: ontology id column: %w", ErrLookup, err)
	}
	termColumn, err := src.Column(c.ontologyTermColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: ontology term column: %w", ErrLookup, err)
	}

	svc := c.newAccession()
	groups := make([][]labelGroup, len(labelsets))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelLabelsets)

	for i, name := range labelsets {
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			values, err := src.Column(name)
			if err != nil {
				return fmt.Errorf("%w: labelset %q: %w", ErrLookup, name, err)
			}
			g, err := c.collectLabelset(svc, name, index, values, idColumn, termColumn)
			if err != nil {
				return err
			}
			groups[i] = g
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	entries := make(map[string]*CellSet)
	for i, name := range labelsets {
		rank := ranks[name]
		for _, g := range groups[i] {
			if existing, ok := entries[g.label]; ok {
				existing.union(g.cellIDs)
				existing.Rank = rank
				continue
			}
			entry := newCellSet(g.label, g.cellIDs, rank)
			entry.Accession = g.accession
			entry.Ontology = g.ontology
			entries[g.label] = entry
		}
	}

	logger.Debug("[Taxonomy] Collected cell sets", "labelsets", len(labelsets), "entries", len(entries))

	return entries, nil
}

func (c *Client) collectLabelset(
	svc accession.Service,
	labelset string,
	index []string,
	values []string,
	idColumn []string,
	termColumn []string,
) ([]labelGroup, error) {
	labels, rowsByLabel := groupRows(values)
	groups := make([]labelGroup, 0, len(labels))

	for _, label := range labels {
		rows := rowsByLabel[label]
		cellIDs := make([]string, len(rows))
		for i, row := range rows {
			cellIDs[i] = index[row]
		}

		ontology, err := lookupOntology(label, rows, idColumn, termColumn)
		if err != nil {
			return nil, fmt.Errorf("labelset %q: %w", labelset, err)
		}
		if err := c.checkOntology(labelset, label, rows, ontology, idColumn, termColumn); err != nil {
			return nil, err
		}

		acc, err := svc.GenerateAccessionID(cellIDs, labelset)
		if err != nil {
			return nil, fmt.Errorf("%w: label %q in labelset %q: %w", ErrAccession, label, labelset, err)
		}

		groups = append(groups, labelGroup{
			label:     label,
			cellIDs:   cellIDs,
			accession: acc,
			ontology:  ontology,
		})
	}

	return groups, nil
}

// checkOntology verifies that every row carrying label agrees with the first
// row's ontology term.
func (c *Client) checkOntology(
	labelset, label string,
	rows []int,
	first OntologyTerm,
	idColumn, termColumn []string,
) error {
	for _, row := range rows {
		if idColumn[row] == first.ID && termColumn[row] == first.Term {
			continue
		}
		if c.strictOntology {
			return fmt.Errorf(
				"%w: label %q in labelset %q maps to %q/%q and %q/%q",
				ErrInconsistentOntology, label, labelset, first.ID, first.Term, idColumn[row], termColumn[row],
			)
		}
		logger.Warn(
			"[Taxonomy] Rows sharing a label disagree on the ontology term, keeping the first",
			"labelset", labelset, "label", label, "kept", first.ID, "found", idColumn[row],
		)
		return nil
	}
	return nil
}

// lookupOntology returns the ontology term of the first of the rows matching
// label. rows must be in table order.
func lookupOntology(label string, rows []int, idColumn, termColumn []string) (OntologyTerm, error) {
	if len(rows) == 0 {
		return OntologyTerm{}, fmt.Errorf("%w: no row with label %q", ErrLookup, label)
	}
	row := rows[0]
	return OntologyTerm{ID: idColumn[row], Term: termColumn[row]}, nil
}

// CellIDsFold returns the ids of cells whose labelset value matches label
// after lower-casing both sides.
func CellIDsFold(src Source, labelset, label string) ([]string, error) {
	values, err := src.Column(labelset)
	if err != nil {
		return nil, fmt.Errorf("%w: labelset %q: %w", ErrLookup, labelset, err)
	}
	return foldRows(values, src.CellIDs())[strings.ToLower(label)], nil
}

// foldRows groups cell ids by their lower-cased value in one pass.
func foldRows(values, index []string) map[string][]string {
	out := make(map[string][]string)
	for row, v := range values {
		key := strings.ToLower(v)
		out[key] = append(out[key], index[row])
	}
	return out
}

// groupRows groups row numbers by exact value. Labels are returned in
// first-seen order; empty values are skipped.
func groupRows(values []string) ([]string, map[string][]int) {
	var labels []string
	rows := make(map[string][]int)
	for row, v := range values {
		if v == "" {
			continue
		}
		if _, ok := rows[v]; !ok {
			labels = append(labels, v)
		}
		rows[v] = append(rows[v], row)
	}
	return labels, rows
}
