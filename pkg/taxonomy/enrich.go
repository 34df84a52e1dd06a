package taxonomy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cellannotation/cas/pkg/common"
)

// Enrich materializes one annotation per (labelset, label) pair and links it
// to the parent found by BuildHierarchy. Labelsets are visited in the given
// order and labels in first-seen order.
//
// Cell ids are looked up again with a case-insensitive match, independently
// of the exact grouping used to build the cell sets. When a record's
// ontology id and term both equal those of its parent cell set, the two
// fields are dropped from the record. The comparison always uses the
// parent's lookup entry, so pruning a record never affects another one.
func Enrich(src Source, labelsets []string, entries map[string]*CellSet) ([]common.Annotation, error) {
	records := make([]common.Annotation, 0, len(entries))

	for _, labelset := range labelsets {
		values, err := src.Column(labelset)
		if err != nil {
			return nil, fmt.Errorf("%w: labelset %q: %w", ErrLookup, labelset, err)
		}
		labels, _ := groupRows(values)
		folded := foldRows(values, src.CellIDs())

		for _, label := range labels {
			entry, ok := entries[label]
			if !ok {
				return nil, fmt.Errorf("%w: no cell set for label %q in labelset %q", ErrLookup, label, labelset)
			}
			cellIDs := slices.Clone(folded[strings.ToLower(label)])

			records = append(records, common.Annotation{
				Labelset:           labelset,
				CellLabel:          label,
				CellFullname:       label,
				CellSetAccession:   entry.Accession,
				CellOntologyTermID: entry.Ontology.ID,
				CellOntologyTerm:   entry.Ontology.Term,
				CellIDs:            cellIDs,
			})
		}
	}

	for i := range records {
		attachParent(&records[i], entries)
	}

	return records, nil
}

func attachParent(record *common.Annotation, entries map[string]*CellSet) {
	entry := entries[record.CellLabel]
	if entry == nil || !entry.HasParent || entry.Parent == "" || entry.ParentAccession == "" {
		return
	}

	record.ParentCellSetName = entry.Parent
	record.ParentCellSetAccession = entry.ParentAccession

	parent, ok := entries[entry.Parent]
	if !ok {
		return
	}
	if parent.Ontology.ID == record.CellOntologyTermID && parent.Ontology.Term == record.CellOntologyTerm {
		record.CellOntologyTermID = ""
		record.CellOntologyTerm = ""
	}
}
