package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var openTimeout = defaultSettleTimeout

var openCmd = &cobra.Command{
	Use:   "open [address]",
	Short: "Open a new tab",
	Long: `Restore the saved tabs, open a new tab and wait for it to load.

Without an address the new tab shows the home page. Addresses without a
scheme are loaded over https.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := ""
		if len(args) == 1 {
			normalized, ok := internal.NormalizeAddress(args[0])
			if !ok {
				return fmt.Errorf("invalid address: %q", args[0])
			}
			address = normalized
		}

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

		if _, err := s.CreateTab(address, ""); err != nil {
			return fmt.Errorf("failed to open tab: %w", err)
		}
		if err := s.settle(cmd.Context(), openTimeout); err != nil {
			internal.PrintWarning(cmd.ErrOrStderr(), err.Error())
		}

		printSessionTabs(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().DurationVar(&openTimeout, "timeout", defaultSettleTimeout, "How long to wait for pages to load")
}
