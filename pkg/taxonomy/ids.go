package taxonomy

import (
	"strings"

	"github.com/cellannotation/cas/pkg/common"
)

const casPrefix = "CAS:"

// PopulateIDs fills the ids needed by knowledge-graph exports. The taxonomy
// id becomes CAS:<ontologyID> and each labelset id <namespace>:<name>.
// Existing ids are kept.
func PopulateIDs(t *common.Taxonomy, namespace, ontologyID string) {
	if t.ID != "" {
		return
	}

	if !strings.Contains(ontologyID, casPrefix) {
		ontologyID = casPrefix + ontologyID
	}
	t.ID = ontologyID

	for i := range t.Labelsets {
		if t.Labelsets[i].ID == "" {
			t.Labelsets[i].ID = namespace + ":" + t.Labelsets[i].Name
		}
	}
}
