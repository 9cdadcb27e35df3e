package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var closeCmd = &cobra.Command{
	Use:   "close <index>",
	Short: "Close a saved tab",
	Long:  `Close the tab at index. The last remaining tab cannot be closed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid tab index %q", args[0])
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

		before := s.Len()
		if index < 0 || index >= before {
			return fmt.Errorf("no tab at index %d (%d open)", index, before)
		}
		s.CloseTab(index)
		if s.Len() == before {
			internal.PrintWarning(cmd.ErrOrStderr(), "the last tab stays open")
		} else {
			internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Closed tab %d", index))
		}

		printSessionTabs(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(closeCmd)
}
