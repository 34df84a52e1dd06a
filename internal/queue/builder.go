package queue

import (
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/accession"
	"github.com/cellannotation/cas/pkg/taxonomy"
)

// NewBuilder configures the taxonomy pipeline from the CAS_* environment
// variables.
func NewBuilder() *taxonomy.Client {
	digest := util.GetEnvInt("CAS_ACCESSION_DIGEST", accession.DefaultDigestSize)
	return taxonomy.NewClient(taxonomy.NewClientParams{
		Accession:          accession.NewCachedHashFactory(digest),
		OntologyIDColumn:   util.GetEnv("CAS_ONTOLOGY_ID_COLUMN"),
		OntologyTermColumn: util.GetEnv("CAS_ONTOLOGY_TERM_COLUMN"),
		StrictOntology:     util.GetEnvBool("CAS_STRICT_ONTOLOGY", false),
		ParallelLabelsets:  util.GetEnvInt("CAS_PARALLEL_LABELSETS", 4),
	})
}
