package taxonomy

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup is returned when a label or column cannot be resolved in the
	// cell metadata table.
	ErrLookup = errors.New("label lookup failed")
	// ErrAmbiguousHierarchy is returned when two cell sets are identical at
	// the same rank.
	ErrAmbiguousHierarchy = errors.New("ambiguous hierarchy")
	// ErrAccession wraps failures of the accession service.
	ErrAccession = errors.New("accession generation failed")
	// ErrInconsistentOntology is returned in strict mode when rows sharing a
	// label disagree on their ontology term.
	ErrInconsistentOntology = errors.New("inconsistent ontology terms")
	ErrNoLabelsets          = errors.New("no labelsets given")
)

// AmbiguityError names the two cell labels that share an identical cell id
// set at the same rank.
type AmbiguityError struct {
	Left  string
	Right string
	Rank  int
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf(
		"%s and %s cell labels have the same cell_ids at rank %d; cell_ids can't be identical at the same rank",
		e.Left, e.Right, e.Rank,
	)
}

func (e *AmbiguityError) Unwrap() error {
	return ErrAmbiguousHierarchy
}

// IsFatal reports whether err is caused by the input data or the accession
// setup rather than by the environment, meaning a retry cannot succeed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLookup) ||
		errors.Is(err, ErrAccession) ||
		errors.Is(err, ErrAmbiguousHierarchy) ||
		errors.Is(err, ErrInconsistentOntology) ||
		errors.Is(err, ErrNoLabelsets)
}
