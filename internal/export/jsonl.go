package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/withandromeda/andromeda/internal"
)

// JSONLExporter writes one visit per line. Favicons are left out.
type JSONLExporter struct{}

type jsonlVisit struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Address   string `json:"address"`
	Timestamp string `json:"timestamp"`
}

// Export exports items to JSONL format
func (e *JSONLExporter) Export(items []internal.HistoryItem, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, item := range items {
		visit := jsonlVisit{
			ID:        item.ID,
			Title:     item.Title,
			Address:   item.Address,
			Timestamp: item.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := enc.Encode(visit); err != nil {
			return fmt.Errorf("failed to encode visit %s: %w", item.ID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
