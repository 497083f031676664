package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/output"
	"github.com/mj1618/a11y-chain/internal/platform"
	"github.com/mj1618/a11y-chain/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "a11y-chain",
	Short: "Route input events through accessibility transmission chains",
	Long: `a11y-chain runs touch, mouse and key input through a chain of accessibility
nodes (magnification, touch exploration, key filtering, mouse keys, screen
touch, gesture injection) before handing what survives to the OS.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: $A11Y_CHAIN_CONFIG or ~/.config/a11y-chain/a11y-chain.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if platform.RequestPermissionsFunc != nil && needsPlatform(cmd) {
			platform.RequestPermissionsFunc()
		}

		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags.
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")
		return nil
	}
}

// needsPlatform reports whether cmd may open the OS input backend.
func needsPlatform(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "serve", "watch":
		return true
	case "replay":
		live, _ := cmd.Flags().GetBool("live")
		return live
	}
	return false
}
