package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var doctorDetails bool

// doctorCmd checks the profile the other commands rely on
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the profile can be located and read",
	Long: `Check the health of the Andromeda profile by verifying:
  • Profile directory and config file
  • State database access
  • Saved tabs, history and privacy records
  • Favicon cache index

This command is useful for debugging storage issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		cfg := appConfig
		if cfg == nil {
			cfg = internal.DefaultConfig()
		}
		paths := cfg.Paths()

		fmt.Fprintln(w, sectionStyle.Render("Andromeda Health Check"))
		fmt.Fprintln(w)

		fmt.Fprintln(w, infoStyle.Render("Step 1: Locating profile..."))
		fmt.Fprintln(w, successStyle.Render("✅ Profile directory: ")+paths.BasePath)
		if paths.ConfigExists() {
			fmt.Fprintln(w, successStyle.Render("✅ Config file found"))
		} else {
			fmt.Fprintln(w, warningStyle.Render("⚠️  No config file, using defaults"))
		}
		if doctorDetails {
			fmt.Fprintf(w, "   Config:   %s\n", paths.ConfigPath)
			fmt.Fprintf(w, "   Database: %s\n", paths.DatabasePath)
			fmt.Fprintf(w, "   Cache:    %s\n", paths.CacheDir)
			fmt.Fprintf(w, "   Backend:  %s\n", cfg.BackendOrigin)
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, infoStyle.Render("Step 2: Opening state database..."))
		existed := paths.DatabaseExists()
		p, err := openProfile()
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render("❌ Failed to open database:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer p.Close()
		if existed {
			fmt.Fprintln(w, successStyle.Render("✅ Database opened"))
		} else {
			fmt.Fprintln(w, warningStyle.Render("⚠️  Database was missing and has been created"))
		}

		keys, err := p.store.Keys()
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render("❌ Failed to list records:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		if doctorDetails {
			for _, kv := range keys {
				fmt.Fprintf(w, "   %s (%s)\n", kv.Key, kv.Value)
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, infoStyle.Render("Step 3: Reading records..."))
		tabs := internal.LoadTabSnapshot(p.store)
		settings := p.privacySettings()
		history := p.history()
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %d saved tab(s)", len(tabs))))
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %d history item(s), retention %s", history.Len(), retentionText(settings.HistoryRetentionDays))))
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %d site rule(s)", len(settings.SiteRules))))
		checkRules(w, settings.SiteRules)
		fmt.Fprintln(w)

		fmt.Fprintln(w, infoStyle.Render("Step 4: Checking favicon cache..."))
		cache := internal.NewFaviconCache(paths.CacheDir, cfg.FaviconMaxAge)
		_, err = cache.LoadIndex()
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintln(w, successStyle.Render("✅ No icons cached yet"))
		case err != nil:
			fmt.Fprintln(w, warningStyle.Render("⚠️  Favicon index unreadable:"), err)
		default:
			fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %d cached icon(s)", cache.Len())))
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, sectionStyle.Render("Summary"))
		fmt.Fprintln(w, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

// checkRules flags rules that can never match
func checkRules(w io.Writer, rules []internal.SiteRule) {
	for _, r := range rules {
		if r.Pattern == "" {
			fmt.Fprintln(w, warningStyle.Render("⚠️  Rule "+r.ID+" has an empty pattern"))
		}
		if r.JavaScriptOverride == nil && r.ThirdPartyCookiesOverride == nil {
			fmt.Fprintln(w, warningStyle.Render("⚠️  Rule "+r.ID+" overrides nothing"))
		}
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVarP(&doctorDetails, "details", "d", false, "Show detailed diagnostic information")
}
