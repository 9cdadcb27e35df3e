package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var (
	navigateTab     int
	navigateTimeout = defaultSettleTimeout
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <address>",
	Short: "Load an address in a saved tab",
	Long: `Restore the saved tabs, select one and load an address in it.

The address is typed text: surrounding whitespace is ignored and https://
is assumed when no scheme is given.`,
	Args: cobra.ExactArgs(1),
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

		if navigateTab < 0 || navigateTab >= s.Len() {
			return fmt.Errorf("no tab at index %d (%d open)", navigateTab, s.Len())
		}
		s.SelectTab(navigateTab)
		if !s.Navigate(args[0]) {
			return fmt.Errorf("invalid address: %q", args[0])
		}
		if err := s.settle(cmd.Context(), navigateTimeout); err != nil {
			internal.PrintWarning(cmd.ErrOrStderr(), err.Error())
		}

		printSessionTabs(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(navigateCmd)
	navigateCmd.Flags().IntVarP(&navigateTab, "tab", "t", 0, "Index of the tab to navigate")
	navigateCmd.Flags().DurationVar(&navigateTimeout, "timeout", defaultSettleTimeout, "How long to wait for pages to load")
}
