package common

// Taxonomy is the cell annotation document produced from a per-cell metadata
// table. It carries the ranked labelsets and one annotation per observed
// (labelset, label) pair.
//
// A taxonomy contains:
//   - Labelsets: the ordered classification levels and their ranks
//   - Annotations: cell sets with accessions and parent links
type Taxonomy struct {
	ID          string       `json:"id,omitempty" jsonschema_description:"Identifier of the taxonomy, usually CAS:<ontology id>."`
	Title       string       `json:"title,omitempty"`
	Labelsets   []Labelset   `json:"labelsets"`
	Annotations []Annotation `json:"annotations"`
}

// Labelset is one classification level of a taxonomy, such as "Class" or
// "Cluster". Rank is derived from the labelset's position in the ordered
// input; the first listed labelset has the highest rank.
type Labelset struct {
	ID   string `json:"id,omitempty" jsonschema_description:"Identifier of the labelset, <namespace>:<name>."`
	Name string `json:"name" jsonschema_description:"Name of the labelset column in the cell metadata table."`
	Rank int    `json:"rank" jsonschema_description:"Granularity of the labelset. The first listed labelset has rank n-1, the last rank 0."`
}

// Annotation describes a single cell set. Optional fields are omitted when
// empty: ontology fields are dropped when they are inherited unchanged from
// the parent cell set.
type Annotation struct {
	Labelset               string   `json:"labelset" jsonschema_description:"Labelset the cell label belongs to."`
	CellLabel              string   `json:"cell_label" jsonschema_description:"Label text as found in the labelset column."`
	CellFullname           string   `json:"cell_fullname" jsonschema_description:"Full name of the cell label."`
	CellSetAccession       string   `json:"cell_set_accession" jsonschema_description:"Stable identifier derived from the member cell ids and the labelset."`
	CellOntologyTermID     string   `json:"cell_ontology_term_id,omitempty" jsonschema_description:"Cell ontology term id, omitted when equal to the parent's."`
	CellOntologyTerm       string   `json:"cell_ontology_term,omitempty" jsonschema_description:"Cell ontology term label, omitted when equal to the parent's."`
	CellIDs                []string `json:"cell_ids" jsonschema_description:"Identifiers of the member cells."`
	ParentCellSetName      string   `json:"parent_cell_set_name,omitempty" jsonschema_description:"Label of the immediate parent cell set."`
	ParentCellSetAccession string   `json:"parent_cell_set_accession,omitempty" jsonschema_description:"Accession of the immediate parent cell set."`
}

// HasParent reports whether the annotation was linked to a parent cell set.
func (a Annotation) HasParent() bool {
	return a.ParentCellSetName != "" && a.ParentCellSetAccession != ""
}
