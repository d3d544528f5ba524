// Wifiled is a control utility for WiFi RGBW LED controllers.
//
// It provides UDP broadcast discovery, power/color/effect control over
// the controllers' TCP protocol, and direct access to the AT command
// channel of the WiFi module. Frequently used controllers can be saved
// under friendly names in a local configuration file.
//
// Usage:
//
//	wifiled [command] [flags]
//
// See 'wifiled --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiled/internal/logging"
	"github.com/muurk/wifiled/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifiled",
	Short: "WiFi LED Controller Utility",
	Long: `A command line utility for WiFi RGBW LED controllers.

Provides network discovery, power and color control, built-in and
custom effect programming, and raw AT command access for the
controllers' WiFi module.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiled %s (commit: %s)\n", version.Version, version.Commit)
	},
}
