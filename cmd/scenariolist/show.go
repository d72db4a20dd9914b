// Show command for the scenariolist CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

var showVersion int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the materialized local list",
	Long: `Display the materialized scenario list: raw records with renames,
drops, and overrides applied. Use --version to pin a past version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, list, err := openLocalList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "show:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		version := showVersion
		if !cmd.Flags().Changed("version") {
			version, err = list.Version()
			if err != nil {
				fmt.Fprintln(os.Stderr, "show:", err)
				os.Exit(exitSysError)
			}
		}

		view := list.At(version)
		scenarios, err := view.Scenarios()
		if err != nil {
			fmt.Fprintln(os.Stderr, "show:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			out, err := json.MarshalIndent(map[string]any{
				"version":   version,
				"scenarios": scenarios,
			}, "", "  ")
			if err != nil {
				fmt.Fprintln(os.Stderr, "marshal JSON:", err)
				os.Exit(exitSysError)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("version %d, %d record(s)\n", version, len(scenarios))
		for i, sc := range scenarios {
			fmt.Printf("  [%d] %s\n", i, formatScenario(sc))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().IntVar(&showVersion, "version", 0, "show the list as of this version")
}

// formatScenario renders one record as compact JSON for human output.
func formatScenario(sc types.Scenario) string {
	out, err := json.Marshal(sc)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(sc))
	}
	return string(out)
}
