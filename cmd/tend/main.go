package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	version = "0.1.0"
	commit  = ""
)

var (
	flagConfig string
	flagDB     string
	flagFmt    string
)

func versionString() string {
	if commit != "" {
		return fmt.Sprintf("tend version %s (commit: %s)", version, commit)
	}
	return fmt.Sprintf("tend version %s-dev", version)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tend",
		Short:        "Keep in touch with the people who matter",
		Version:      versionString(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/tend/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (env: TEND_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "table", "Output format: table|json")

	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newUpNextCmd())
	rootCmd.AddCommand(newGardenCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMigrateCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tend: %v\n", err)
		os.Exit(1)
	}
}
