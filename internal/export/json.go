package export

import (
	"encoding/json"
	"io"

	"github.com/withandromeda/andromeda/internal"
)

// JSONExporter exports history as an indented JSON document
type JSONExporter struct{}

type jsonHistory struct {
	Count int                    `json:"count"`
	Items []internal.HistoryItem `json:"items"`
}

// Export exports items to JSON format
func (e *JSONExporter) Export(items []internal.HistoryItem, w io.Writer) error {
	if items == nil {
		items = []internal.HistoryItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jsonHistory{Count: len(items), Items: items})
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
