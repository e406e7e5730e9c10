package cmd

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	configPath string
	owner      string
	verbose    bool
	plain      bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Admin tools for the TruthDB organization",
	Long: `Release and fleet tooling for the TruthDB organization.

The product is split across repositories with a strict build dependency
chain (installer-kernel -> installer -> truthdb -> installer-iso). This
tool tags them in order, pushes the tags to GitHub, and waits for the
externally-built release assets to appear and stabilize.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to a config file (default: search standard locations, else built-in defaults)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&owner, "owner", "o", "",
		"GitHub org/owner (overrides config)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Enable verbose output",
	)
	rootCmd.PersistentFlags().BoolVar(
		&plain, "plain", false,
		"Line-oriented text output instead of the live dashboard",
	)
}
