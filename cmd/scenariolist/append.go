// Append command for the scenariolist CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

var appendCmd = &cobra.Command{
	Use:   "append <json>",
	Short: "Append one scenario record to the local list",
	Long: `Append a scenario record, given as a JSON object, to the end of the
local list. Fails if the record contains a key registered as dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload types.Scenario
		if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
			fmt.Fprintln(os.Stderr, "parse record:", err)
			os.Exit(exitUserError)
		}

		backend, list, err := openLocalList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "append:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		if err := list.Append(payload); err != nil {
			fmt.Fprintln(os.Stderr, "append:", err)
			os.Exit(exitUserError)
		}
		version, err := list.Version()
		if err != nil {
			fmt.Fprintln(os.Stderr, "append:", err)
			os.Exit(exitSysError)
		}
		fmt.Printf("appended; version %d\n", version)
		return nil
	},
}
