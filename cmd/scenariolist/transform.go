// Rename, drop-key, and add-values commands for the scenariolist CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old-key> <new-key>",
	Short: "Register a key rename",
	Long: `Register a rename applied at read time and to future appends.
Already-stored records are not rewritten.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation("rename", func() error {
			backend, list, err := openLocalList()
			if err != nil {
				return err
			}
			defer backend.Detach()
			return list.Rename(args[0], args[1])
		})
	},
}

var dropKeyCmd = &cobra.Command{
	Use:   "drop-key <key>",
	Short: "Register a key drop",
	Long: `Register a drop applied at read time. Future appends containing the
key are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation("drop-key", func() error {
			backend, list, err := openLocalList()
			if err != nil {
				return err
			}
			defer backend.Detach()
			return list.DropKey(args[0])
		})
	},
}

var addValuesCmd = &cobra.Command{
	Use:   "add-values <key> <json-array>",
	Short: "Record positional value overrides",
	Long: `Merge {key: values[i]} into the override of the record at position i.
A shorter array leaves later positions untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var values []any
		if err := json.Unmarshal([]byte(args[1]), &values); err != nil {
			fmt.Fprintln(os.Stderr, "parse values:", err)
			os.Exit(exitUserError)
		}
		return runMutation("add-values", func() error {
			backend, list, err := openLocalList()
			if err != nil {
				return err
			}
			defer backend.Detach()
			return list.AddValues(args[0], values)
		})
	},
}

// runMutation executes a mutating command body with uniform error output.
func runMutation(name string, fn func() error) error {
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(exitUserError)
	}
	fmt.Println("ok")
	return nil
}
