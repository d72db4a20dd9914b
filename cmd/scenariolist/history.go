// History command for the scenariolist CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyFrom int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display the mutation history of the local list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, list, err := openLocalList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "history:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		entries, err := list.History(historyFrom)
		if err != nil {
			fmt.Fprintln(os.Stderr, "history:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				fmt.Fprintln(os.Stderr, "marshal JSON:", err)
				os.Exit(exitSysError)
			}
			fmt.Println(string(out))
			return nil
		}

		for _, e := range entries {
			args, _ := json.Marshal(e.Args)
			fmt.Printf("v%d %s %s\n", e.Version, e.Method, string(args))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFrom, "from-version", 0, "only entries after this version")
}
