package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var sidebarCmd = &cobra.Command{
	Use:   "sidebar",
	Short: "Show or toggle the sidebar pin",
}

var sidebarStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the sidebar is pinned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		c := internal.NewSidebarController(p.store, p.cfg.SidebarHideDelay)
		defer c.Close()
		printSidebar(cmd.OutOrStdout(), c)
		return nil
	},
}

var sidebarToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Pin a hidden sidebar or hide a visible one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProfile()
		if err != nil {
			return err
		}
		defer p.Close()

		c := internal.NewSidebarController(p.store, p.cfg.SidebarHideDelay)
		defer c.Close()
		c.TogglePin()
		printSidebar(cmd.OutOrStdout(), c)
		return nil
	},
}

func printSidebar(w io.Writer, c *internal.SidebarController) {
	state := c.State()
	label := warningStyle.Render(state.String())
	if state == internal.SidebarPinned {
		label = successStyle.Render(state.String())
	}
	fmt.Fprintf(w, "Sidebar: %s (hides %s after the pointer leaves)\n", label, c.Delay())
}

func init() {
	rootCmd.AddCommand(sidebarCmd)
	sidebarCmd.AddCommand(sidebarStatusCmd, sidebarToggleCmd)
}
