package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List the saved tabs",
	Long:  `List the tabs that will be restored on the next launch, in order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		records := internal.LoadTabSnapshot(p.store)
		printTabRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func printTabRecords(w io.Writer, records []internal.TabRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No saved tabs (a blank tab opens on launch)"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Saved tabs (%s)", countStyle.Render(strconv.Itoa(len(records))))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, rec := range records {
		address := rec.Address
		if address == "" {
			address = "(home)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", idStyle.Render(strconv.Itoa(i)), titleStyle.Render(rec.Title), address)
	}
	_ = tw.Flush()
}

// printSessionTabs lists live tabs and marks the active one
func printSessionTabs(w io.Writer, s *session) {
	active := s.ActiveIndex()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, t := range s.Tabs() {
		marker := " "
		if i == active {
			marker = "*"
		}
		address := t.Address
		if address == "" {
			address = "(home)"
		}
		status := t.State.String()
		if t.LastError != nil {
			status = errorStyle.Render(status)
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", marker, idStyle.Render(strconv.Itoa(i)), titleStyle.Render(t.Title), address, status)
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(tabsCmd)
}
