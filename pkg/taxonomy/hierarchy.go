package taxonomy

import (
	"sort"

	"github.com/cellannotation/cas/pkg/logger"
)

// snapshotEntry is an immutable copy of the fields the parent search reads.
type snapshotEntry struct {
	label string
	cells map[string]struct{}
	rank  int
}

// BuildHierarchy assigns at most one parent to every entry.
//
// A candidate parent B of entry A is either a strict superset of A, or a set
// identical to A with a strictly lower rank. Among all candidates the one
// with the lowest rank wins; equal ranks fall back to the smaller set and
// then to label order. Two distinct entries with identical sets and
// identical ranks make the hierarchy ambiguous and fail the build.
//
// The search reads a snapshot of all entries and collects its decisions
// before touching any entry, so the outcome does not depend on map
// iteration order. Parents left over from a previous call are cleared.
func BuildHierarchy(entries map[string]*CellSet) error {
	snapshot := make([]snapshotEntry, 0, len(entries))
	for label, e := range entries {
		snapshot = append(snapshot, snapshotEntry{label: label, cells: e.CellIDs, rank: e.Rank})
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].label < snapshot[j].label
	})

	parents := make(map[string]string, len(snapshot))

	for i := range snapshot {
		a := &snapshot[i]
		var best *snapshotEntry

		for j := range snapshot {
			if i == j {
				continue
			}
			b := &snapshot[j]

			switch {
			case sameCells(a.cells, b.cells):
				if a.rank == b.rank {
					left, right := a.label, b.label
					if right < left {
						left, right = right, left
					}
					return &AmbiguityError{Left: left, Right: right, Rank: a.rank}
				}
				if b.rank > a.rank {
					continue
				}
			case !strictSubset(a.cells, b.cells):
				continue
			}

			if best == nil || closerParent(b, best) {
				best = b
			}
		}

		if best != nil {
			parents[a.label] = best.label
		}
	}

	for _, e := range entries {
		e.clearParent()
	}
	for child, parent := range parents {
		entries[child].setParent(entries[parent])
	}

	logger.Debug("[Taxonomy] Hierarchy built", "entries", len(entries), "edges", len(parents))

	return nil
}

// closerParent reports whether b is a tighter parent candidate than best.
func closerParent(b, best *snapshotEntry) bool {
	if b.rank != best.rank {
		return b.rank < best.rank
	}
	if len(b.cells) != len(best.cells) {
		return len(b.cells) < len(best.cells)
	}
	return b.label < best.label
}

// Roots returns the labels of entries without a parent, sorted.
func Roots(entries map[string]*CellSet) []string {
	var roots []string
	for label, e := range entries {
		if !e.HasParent {
			roots = append(roots, label)
		}
	}
	sort.Strings(roots)
	return roots
}
