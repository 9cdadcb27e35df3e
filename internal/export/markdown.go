package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/withandromeda/andromeda/internal"
)

// MarkdownExporter exports history as a Markdown list grouped by day
type MarkdownExporter struct{}

// Export exports items to Markdown format
func (e *MarkdownExporter) Export(items []internal.HistoryItem, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Browsing History\n\nTimes are UTC.\n\n")
	_, _ = fmt.Fprintf(w, "**Visits:** %d\n\n", len(items))

	day := ""
	for _, item := range items {
		ts := item.Timestamp.UTC()
		if d := ts.Format("2006-01-02"); d != day {
			day = d
			_, _ = fmt.Fprintf(w, "## %s\n\n", day)
		}

		title := item.Title
		if title == "" {
			title = item.Address
		}
		_, _ = fmt.Fprintf(w, "- %s [%s](%s)\n", ts.Format("15:04"), escapeMarkdown(title), escapeLinkTarget(item.Address))
	}

	return nil
}

// escapeMarkdown escapes characters that would break link text
func escapeMarkdown(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"[", `\[`,
		"]", `\]`,
		"*", `\*`,
		"_", `\_`,
		"\n", " ",
	)
	return r.Replace(text)
}

func escapeLinkTarget(address string) string {
	return strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(address)
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
