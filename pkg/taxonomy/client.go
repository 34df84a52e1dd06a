package taxonomy

import (
	"github.com/cellannotation/cas/pkg/accession"
)

const (
	DefaultOntologyIDColumn   = "cell_type_ontology_term_id"
	DefaultOntologyTermColumn = "cell_type"
)

// Client builds cell set taxonomies from cell metadata tables.
//
// A Client should be created using NewClient.
type Client struct {
	newAccession       accession.Factory
	ontologyIDColumn   string
	ontologyTermColumn string
	strictOntology     bool
	parallelLabelsets  int
}

// NewClientParams defines the configuration parameters for creating a new
// Client.
//
// Accession creates the accession service for each build; it defaults to a
// cached HashAccessionManager. A fresh service per build keeps issued ids
// from one taxonomy out of the next. OntologyIDColumn and OntologyTermColumn name the two
// table columns holding the cell ontology assignment. StrictOntology turns a
// disagreement between rows sharing a label into an error instead of a
// warning. ParallelLabelsets bounds how many labelset columns are grouped
// concurrently.
type NewClientParams struct {
	Accession          accession.Factory
	OntologyIDColumn   string
	OntologyTermColumn string
	StrictOntology     bool
	ParallelLabelsets  int
}

// NewClient creates a Client configured with the provided parameters.
//
// Example:
//
//	client := taxonomy.NewClient(taxonomy.NewClientParams{
//		ParallelLabelsets: 4,
//	})
//	tax, err := client.Build(ctx, table, []string{"Class", "Subclass", "Cluster"})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewClient(params NewClientParams) *Client {
	newAccession := params.Accession
	if newAccession == nil {
		newAccession = accession.NewCachedHashFactory(accession.DefaultDigestSize)
	}
	idColumn := params.OntologyIDColumn
	if idColumn == "" {
		idColumn = DefaultOntologyIDColumn
	}
	termColumn := params.OntologyTermColumn
	if termColumn == "" {
		termColumn = DefaultOntologyTermColumn
	}
	parallel := params.ParallelLabelsets
	if parallel <= 0 {
		parallel = 1
	}

	return &Client{
		newAccession:       newAccession,
		ontologyIDColumn:   idColumn,
		ontologyTermColumn: termColumn,
		strictOntology:     params.StrictOntology,
		parallelLabelsets:  parallel,
	}
}
