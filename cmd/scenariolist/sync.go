// Push and pull commands for the scenariolist CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scenariolist/pkg/scenariolist"
)

var (
	syncRemote   string
	syncListID   int64
	pushBaseline int
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push local changes to the sync server",
	Long: `Send the local delta since the baseline version to the remote list.
On conflict, pull first and push again; there is no merge.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := remoteClient(syncRemote)
		if err != nil {
			fmt.Fprintln(os.Stderr, "push:", err)
			os.Exit(exitUserError)
		}
		backend, list, err := openLocalList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "push:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		status, err := list.Push(context.Background(), client, syncListID, pushBaseline)
		if err != nil {
			fmt.Fprintln(os.Stderr, "push:", err)
			os.Exit(exitSysError)
		}
		fmt.Println(status)
		if status == scenariolist.StatusConflict {
			os.Exit(exitUserError)
		}
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull remote changes into the local list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := remoteClient(syncRemote)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pull:", err)
			os.Exit(exitUserError)
		}
		backend, list, err := openLocalList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "pull:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		status, err := list.Pull(context.Background(), client, syncListID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pull:", err)
			os.Exit(exitSysError)
		}
		fmt.Println(status)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{pushCmd, pullCmd} {
		cmd.Flags().StringVar(&syncRemote, "remote", "", "sync server base URL (default from config.yaml)")
		cmd.Flags().Int64Var(&syncListID, "list-id", 1, "remote list ID")
	}
	pushCmd.Flags().IntVar(&pushBaseline, "base-version", 0, "baseline version the remote is known to have")
}
