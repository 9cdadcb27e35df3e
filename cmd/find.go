package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var findTab int

var findCmd = &cobra.Command{
	Use:   "find <text>",
	Short: "Search for text in a saved tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		s, err := p.startSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if findTab < 0 || findTab >= s.Len() {
			return fmt.Errorf("no tab at index %d (%d open)", findTab, s.Len())
		}
		s.SelectTab(findTab)
		if err := s.settle(cmd.Context(), defaultSettleTimeout); err != nil {
			internal.PrintWarning(cmd.ErrOrStderr(), err.Error())
		}

		found, err := s.FindInPage(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("find failed: %w", err)
		}
		if found {
			internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Found %q", args[0]))
		} else {
			internal.PrintInfo(cmd.OutOrStdout(), fmt.Sprintf("%q not found", args[0]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().IntVarP(&findTab, "tab", "t", 0, "Index of the tab to search")
}
