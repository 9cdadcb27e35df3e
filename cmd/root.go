package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/withandromeda/andromeda/internal"
)

var (
	verbose     bool
	storagePath string
	configPath  string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	appConfig *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "andromeda",
	Short: "Manage Andromeda browser tabs, history and privacy rules",
	Long: `Command-line front end for the Andromeda browser state core.

It restores the persisted tab session, drives navigations through a
Chromium engine, and manages browsing history, per-site privacy rules
and the sidebar pin.

Quick Start:
  andromeda tabs                         # List the saved tabs
  andromeda open go.dev                  # Open a tab and load it
  andromeda history search golang        # Search history
  andromeda rules add "*.example.com/*" --javascript=off`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if storagePath != "" {
			cfg.DatabasePath = resolveStoragePath(storagePath)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		if err := internal.ConfigureLogger(level, cfg.LogDevelopment); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer internal.SyncLogger()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveStoragePath accepts a database file or a profile directory
func resolveStoragePath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return internal.NewProfilePaths(path).DatabasePath
	}
	return path
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Custom storage location (path to database file or profile directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: config.yaml in the profile directory)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
