package taxonomy

import (
	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/obs"
)

// FlatSeparator joins the labelset and the field name in flattened column
// names, as in "Cluster--cell_label".
const FlatSeparator = "--"

// Flatten projects annotations back onto the cells. Every present annotation
// field except cell_ids becomes a column named <labelset>--<field>; each
// member cell of the annotation gets the field's value and all other cells
// stay empty.
func Flatten(index []string, annotations []common.Annotation) (*obs.Table, error) {
	out, err := obs.NewTable(index)
	if err != nil {
		return nil, err
	}

	for _, a := range annotations {
		fields := annotationFields(a)
		for _, f := range fields {
			column := a.Labelset + FlatSeparator + f.name
			for _, cellID := range a.CellIDs {
				if err := out.SetValue(column, cellID, f.value); err != nil {
					return nil, err
				}
			}
		}
	}

	return out, nil
}

type flatField struct {
	name  string
	value string
}

func annotationFields(a common.Annotation) []flatField {
	all := []flatField{
		{"labelset", a.Labelset},
		{"cell_label", a.CellLabel},
		{"cell_fullname", a.CellFullname},
		{"cell_set_accession", a.CellSetAccession},
		{"cell_ontology_term_id", a.CellOntologyTermID},
		{"cell_ontology_term", a.CellOntologyTerm},
		{"parent_cell_set_name", a.ParentCellSetName},
		{"parent_cell_set_accession", a.ParentCellSetAccession},
	}

	out := all[:0]
	for _, f := range all {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}
