// Package main provides the scenariolist CLI: a local versioned scenario
// list plus the sync server and remote push/pull commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI version string.
const Version = "0.3.0"

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global persistent flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scenariolist",
	Short: "Versioned, append-only scenario lists with delta sync",
	Long: `Scenariolist manages versioned, append-only lists of scenario records.
Every mutation bumps the version; reads can be pinned to any past version,
and lists synchronize with a server by exchanging versioned deltas.`,
	// Do not print usage on errors returned by subcommands.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: .scenariolist-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(dropKeyCmd)
	rootCmd.AddCommand(addValuesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scenariolist version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("scenariolist", Version)
	},
}
