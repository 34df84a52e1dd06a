package taxonomy

import "slices"

// Source is a read-only, fully materialized cell metadata table. Column
// values are aligned with CellIDs.
type Source interface {
	CellIDs() []string
	Column(name string) ([]string, error)
}

// OntologyTerm is the cell ontology assignment of a label.
type OntologyTerm struct {
	ID   string
	Term string
}

// CellSet is the lookup entry for one label text. Entries from different
// labelsets that share label text are merged into one CellSet.
type CellSet struct {
	Label     string
	CellIDs   map[string]struct{}
	Rank      int
	Accession string
	Ontology  OntologyTerm

	Parent          string
	ParentAccession string
	ParentRank      int
	HasParent       bool
}

func newCellSet(label string, cellIDs []string, rank int) *CellSet {
	set := make(map[string]struct{}, len(cellIDs))
	for _, id := range cellIDs {
		set[id] = struct{}{}
	}
	return &CellSet{
		Label:   label,
		CellIDs: set,
		Rank:    rank,
	}
}

// Members returns the cell ids of the set in sorted order.
func (c *CellSet) Members() []string {
	out := make([]string, 0, len(c.CellIDs))
	for id := range c.CellIDs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *CellSet) union(cellIDs []string) {
	for _, id := range cellIDs {
		c.CellIDs[id] = struct{}{}
	}
}

func (c *CellSet) setParent(parent *CellSet) {
	c.Parent = parent.Label
	c.ParentAccession = parent.Accession
	c.ParentRank = parent.Rank
	c.HasParent = true
}

func (c *CellSet) clearParent() {
	c.Parent = ""
	c.ParentAccession = ""
	c.ParentRank = 0
	c.HasParent = false
}

func sameCells(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	return containsAll(b, a)
}

func strictSubset(a, b map[string]struct{}) bool {
	if len(a) >= len(b) {
		return false
	}
	return containsAll(b, a)
}

func containsAll(super, sub map[string]struct{}) bool {
	for id := range sub {
		if _, ok := super[id]; !ok {
			return false
		}
	}
	return true
}
