package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
	"github.com/withandromeda/andromeda/internal/export"
)

var (
	historyLimit int
	exportFormat string
	exportOutput string
	clearConfirm bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, search, clear and export history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visited pages, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		printHistory(cmd.OutOrStdout(), p.history().Search(""), historyLimit)
		return nil
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find visits whose title or address contains query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		printHistory(cmd.OutOrStdout(), p.history().Search(args[0]), historyLimit)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm {
			return fmt.Errorf("refusing to clear history without --yes")
		}
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		h := p.history()
		n := h.Len()
		if err := h.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %d visit(s)", n))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history to a file",
	Long: `Export history in chronological order as jsonl, json, yaml or md.

Without --output the export is written to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		items := p.history().Items()
		if exportOutput == "" {
			if err := exporter.Export(items, cmd.OutOrStdout()); err != nil {
				return &internal.ExportError{Format: exportFormat, Err: err}
			}
			return nil
		}

		path := exportOutput
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "history."+exporter.Extension())
		}
		if err := writeExport(exporter, items, path); err != nil {
			return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Exported %d visit(s) to %s", len(items), path))
		return nil
	},
}

func writeExport(exporter export.Exporter, items []internal.HistoryItem, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return exporter.Export(items, f)
}

func printHistory(w io.Writer, items []internal.HistoryItem, limit int) {
	if len(items) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No history found"))
		return
	}
	total := len(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("History (%s)", countStyle.Render(strconv.Itoa(total)))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			dateStyle.Render(item.Timestamp.Local().Format(time.DateTime)),
			titleStyle.Render(title),
			item.Address)
	}
	_ = tw.Flush()
	if len(items) < total {
		fmt.Fprintf(w, "... and %d more\n", total-len(items))
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historySearchCmd, historyClearCmd, historyExportCmd)

	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum visits to show (0 for all)")
	historyClearCmd.Flags().BoolVarP(&clearConfirm, "yes", "y", false, "Confirm clearing history")
	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format (jsonl, json, yaml, md)")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory")
}
