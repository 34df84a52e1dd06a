package taxonomy

import (
	"errors"
	"fmt"
	"testing"
)

type testSet struct {
	label string
	cells []string
	rank  int
}

func newEntries(sets ...testSet) map[string]*CellSet {
	entries := make(map[string]*CellSet, len(sets))
	for _, s := range sets {
		e := newCellSet(s.label, s.cells, s.rank)
		e.Accession = "acc-" + s.label
		entries[s.label] = e
	}
	return entries
}

func TestBuildHierarchy(t *testing.T) {
	tests := []struct {
		name    string
		sets    []testSet
		parents map[string]string
	}{
		{
			name: "three levels",
			sets: []testSet{
				{"Neuron", []string{"c1", "c2", "c3", "c4"}, 2},
				{"IT", []string{"c1", "c2", "c3"}, 1},
				{"IT_1", []string{"c1", "c2"}, 0},
				{"IT_2", []string{"c3"}, 0},
			},
			parents: map[string]string{
				"IT":   "Neuron",
				"IT_1": "IT",
				"IT_2": "IT",
			},
		},
		{
			name: "identical sets prefer lower rank",
			sets: []testSet{
				{"Broad", []string{"c1", "c2", "c3"}, 3},
				{"Narrow", []string{"c1", "c2", "c3"}, 1},
			},
			parents: map[string]string{
				"Broad": "Narrow",
			},
		},
		{
			name: "lowest rank superset wins",
			sets: []testSet{
				{"All", []string{"c1", "c2", "c3", "c4"}, 3},
				{"Most", []string{"c1", "c2", "c3"}, 2},
				{"Leaf", []string{"c1"}, 0},
			},
			parents: map[string]string{
				"Most": "All",
				"Leaf": "Most",
			},
		},
		{
			name: "equal rank falls back to smaller set",
			sets: []testSet{
				{"Wide", []string{"c1", "c2", "c3", "c4"}, 1},
				{"Tight", []string{"c1", "c2"}, 1},
				{"Leaf", []string{"c1"}, 0},
			},
			parents: map[string]string{
				"Tight": "Wide",
				"Leaf":  "Tight",
			},
		},
		{
			name: "disjoint sets are roots",
			sets: []testSet{
				{"A", []string{"c1"}, 0},
				{"B", []string{"c2"}, 0},
			},
			parents: map[string]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries := newEntries(tc.sets...)
			if err := BuildHierarchy(entries); err != nil {
				t.Fatalf("BuildHierarchy: %v", err)
			}

			for label, e := range entries {
				want, ok := tc.parents[label]
				if !ok {
					if e.HasParent {
						t.Fatalf("%s: unexpected parent %q", label, e.Parent)
					}
					continue
				}
				if !e.HasParent || e.Parent != want {
					t.Fatalf("%s: parent = %q, want %q", label, e.Parent, want)
				}
				if e.ParentAccession != "acc-"+want {
					t.Fatalf("%s: parent accession = %q", label, e.ParentAccession)
				}
				if e.ParentRank != entries[want].Rank {
					t.Fatalf("%s: parent rank = %d, want %d", label, e.ParentRank, entries[want].Rank)
				}
			}
		})
	}
}

func TestBuildHierarchyAmbiguous(t *testing.T) {
	entries := newEntries(
		testSet{"Left", []string{"c1", "c2"}, 1},
		testSet{"Right", []string{"c1", "c2"}, 1},
	)

	err := BuildHierarchy(entries)
	if !errors.Is(err, ErrAmbiguousHierarchy) {
		t.Fatalf("expected ErrAmbiguousHierarchy, got %v", err)
	}

	var amb *AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("expected *AmbiguityError, got %T", err)
	}
	if amb.Left != "Left" || amb.Right != "Right" || amb.Rank != 1 {
		t.Fatalf("got %+v", amb)
	}
	for label, e := range entries {
		if e.HasParent {
			t.Fatalf("%s: parent assigned despite failure", label)
		}
	}
}

func TestBuildHierarchyClearsPreviousParents(t *testing.T) {
	entries := newEntries(
		testSet{"A", []string{"c1"}, 0},
		testSet{"B", []string{"c2"}, 0},
	)
	entries["A"].setParent(entries["B"])

	if err := BuildHierarchy(entries); err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	if entries["A"].HasParent {
		t.Fatalf("stale parent %q kept", entries["A"].Parent)
	}
}

// layeredEntries builds a balanced tree of depth levels. Level 0 is the
// root; each node splits its cells in two at the next level.
func layeredEntries(levels int) map[string]*CellSet {
	var sets []testSet
	cells := 1 << levels
	for level := 0; level <= levels; level++ {
		width := cells >> level
		for start := 0; start < cells; start += width {
			ids := make([]string, 0, width)
			for c := start; c < start+width; c++ {
				ids = append(ids, fmt.Sprintf("c%03d", c))
			}
			sets = append(sets, testSet{
				label: fmt.Sprintf("L%d_%d", level, start/width),
				cells: ids,
				rank:  levels - level,
			})
		}
	}
	return newEntries(sets...)
}

func TestBuildHierarchyProperties(t *testing.T) {
	entries := layeredEntries(4)
	if err := BuildHierarchy(entries); err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}

	for label, e := range entries {
		if !e.HasParent {
			continue
		}
		parent := entries[e.Parent]
		if parent == nil {
			t.Fatalf("%s: parent %q is not an entry", label, e.Parent)
		}

		if !containsAll(parent.CellIDs, e.CellIDs) {
			t.Fatalf("%s: cells not contained in parent %s", label, e.Parent)
		}
		if sameCells(parent.CellIDs, e.CellIDs) && parent.Rank >= e.Rank {
			t.Fatalf("%s: equal-set parent %s must have lower rank", label, e.Parent)
		}

		seen := map[string]bool{label: true}
		for cur := e; cur.HasParent; cur = entries[cur.Parent] {
			if seen[cur.Parent] {
				t.Fatalf("%s: cycle through %s", label, cur.Parent)
			}
			seen[cur.Parent] = true
		}
	}

	if roots := Roots(entries); len(roots) != 1 || roots[0] != "L0_0" {
		t.Fatalf("roots = %v, want [L0_0]", roots)
	}
}

func TestBuildHierarchyIsDeterministic(t *testing.T) {
	first := layeredEntries(3)
	if err := BuildHierarchy(first); err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}

	for i := 0; i < 20; i++ {
		again := layeredEntries(3)
		if err := BuildHierarchy(again); err != nil {
			t.Fatalf("BuildHierarchy: %v", err)
		}
		for label, e := range first {
			if again[label].Parent != e.Parent {
				t.Fatalf("run %d: %s parent = %q, want %q", i, label, again[label].Parent, e.Parent)
			}
		}
	}
}
