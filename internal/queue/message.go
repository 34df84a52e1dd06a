package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TaxonomyJobMsg asks a worker to build the taxonomy of an uploaded table.
type TaxonomyJobMsg struct {
	CorrelationID string   `json:"correlation_id"`
	TaxonomyID    string   `json:"taxonomy_id"`
	FilePath      string   `json:"file_path"`
	IndexColumn   string   `json:"index_column,omitempty"`
	Labelsets     []string `json:"labelsets"`
}

// NewTaxonomyJobMsg creates a job message with a fresh correlation id.
func NewTaxonomyJobMsg(taxonomyID, filePath, indexColumn string, labelsets []string) TaxonomyJobMsg {
	return TaxonomyJobMsg{
		CorrelationID: uuid.NewString(),
		TaxonomyID:    taxonomyID,
		FilePath:      filePath,
		IndexColumn:   indexColumn,
		Labelsets:     labelsets,
	}
}

var ErrInvalidMessage = errors.New("invalid queue message")

// ParseTaxonomyJobMsg decodes and checks a job message.
func ParseTaxonomyJobMsg(body []byte) (TaxonomyJobMsg, error) {
	var msg TaxonomyJobMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.TaxonomyID == "" || msg.FilePath == "" || len(msg.Labelsets) == 0 {
		return msg, fmt.Errorf("%w: taxonomy_id, file_path and labelsets are required", ErrInvalidMessage)
	}
	return msg, nil
}
