package export

import (
	"io"

	"github.com/withandromeda/andromeda/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports history in YAML format
type YAMLExporter struct{}

// Export exports items to YAML format
func (e *YAMLExporter) Export(items []internal.HistoryItem, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	if items == nil {
		items = []internal.HistoryItem{}
	}
	return enc.Encode(map[string]interface{}{"history": items})
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
