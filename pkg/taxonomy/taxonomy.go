// Package taxonomy turns a per-cell table of categorical labels into a
// hierarchy of cell sets.
//
// Building a taxonomy runs four steps in order:
//   - AssignRanks maps the ordered labelsets to ranks
//   - Client.Collect builds one CellSet per label text
//   - BuildHierarchy links every CellSet to its closest superset
//   - Enrich produces the annotation records with parent links
//
// Labelsets must be listed from the coarsest (for example "Class") to the
// finest (for example "Cluster").
package taxonomy

import (
	"context"
	"time"

	"github.com/cellannotation/cas/pkg/common"
	"github.com/cellannotation/cas/pkg/logger"
)

// Build runs the whole pipeline over src and returns the resulting taxonomy.
// Either the full taxonomy is returned or an error; there are no partial
// results.
func (c *Client) Build(ctx context.Context, src Source, labelsets []string) (*common.Taxonomy, error) {
	if len(labelsets) == 0 {
		return nil, ErrNoLabelsets
	}

	start := time.Now()
	logger.Info("[Taxonomy] Building", "labelsets", len(labelsets), "cells", len(src.CellIDs()))

	entries, err := c.Collect(ctx, src, labelsets)
	if err != nil {
		return nil, err
	}

	if err := BuildHierarchy(entries); err != nil {
		return nil, err
	}

	annotations, err := Enrich(src, labelsets, entries)
	if err != nil {
		return nil, err
	}

	ranks := AssignRanks(labelsets)
	sets := make([]common.Labelset, 0, len(labelsets))
	for _, name := range labelsets {
		sets = append(sets, common.Labelset{Name: name, Rank: ranks[name]})
	}

	logger.Info(
		"[Taxonomy] Build completed",
		"annotations", len(annotations),
		"roots", len(Roots(entries)),
		"duration", time.Since(start).String(),
	)

	return &common.Taxonomy{
		Labelsets:   sets,
		Annotations: annotations,
	}, nil
}
