// Init command for the scenariolist CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local scenario list",
	Long:  `Initialize the data directory, database schema, and the local working list.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := attachBackend()
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		// Idempotent: reuse the local list when it already exists.
		if _, err := backend.List(localListID); err == nil {
			fmt.Println("local list already initialized")
			return nil
		}

		id, err := backend.CreateList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "create list:", err)
			os.Exit(exitSysError)
		}
		fmt.Printf("initialized local list %d\n", id)
		return nil
	},
}
