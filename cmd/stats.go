package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var (
	statsLive   bool
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show browser state metrics",
	Long: `Show tab, history, navigation and favicon metrics.

By default the counts come from the saved profile. With --live the saved
tabs are restored and loaded first, so navigation and favicon counters
reflect that run. --format prom prints the Prometheus text exposition.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsFormat != "table" && statsFormat != "prom" {
			return fmt.Errorf("unsupported format: %s (supported: table, prom)", statsFormat)
		}

		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		var metrics *internal.Metrics
		if statsLive {
			s, err := p.startSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.settle(cmd.Context(), defaultSettleTimeout); err != nil {
				internal.PrintWarning(cmd.ErrOrStderr(), err.Error())
			}
			metrics = s.metrics
		} else {
			metrics = internal.NewMetrics()
			metrics.SetTabsOpen(len(internal.LoadTabSnapshot(p.store)))
			metrics.SetHistoryItems(p.history().Len())
		}

		if statsFormat == "prom" {
			return writeExposition(cmd.OutOrStdout(), metrics)
		}
		printSnapshot(cmd.OutOrStdout(), metrics.Snapshot())
		return nil
	},
}

func writeExposition(w io.Writer, metrics *internal.Metrics) error {
	families, err := metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func printSnapshot(w io.Writer, s internal.MetricsSnapshot) {
	fmt.Fprintln(w, sectionStyle.Render("Browser state"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "tabs open\t%d\n", s.TabsOpen)
	fmt.Fprintf(tw, "history items\t%d\n", s.HistoryItems)
	fmt.Fprintf(tw, "stale events dropped\t%d\n", s.StaleEventsDropped)
	for _, k := range sortedKeys(s.Navigations) {
		fmt.Fprintf(tw, "navigations %s\t%d\n", k, s.Navigations[k])
	}
	for _, k := range sortedKeys(s.FaviconFetches) {
		fmt.Fprintf(tw, "favicons %s\t%d\n", k, s.FaviconFetches[k])
	}
	_ = tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsLive, "live", false, "Restore and load the saved tabs before reporting")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "table", "Output format (table, prom)")
}
