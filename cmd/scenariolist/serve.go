// Serve command for the scenariolist CLI: runs the sync server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scenariolist/internal/logger"
	"github.com/mesh-intelligence/scenariolist/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scenario-list sync server",
	Long: `Run the HTTP sync server over the SQLite backend: list CRUD, delta
pull/push, snapshots, and a read-only SQL explorer.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(os.Getenv("LOG_MODE"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "init logger:", err)
			os.Exit(exitSysError)
		}
		defer log.Sync()

		backend, err := attachBackend()
		if err != nil {
			fmt.Fprintln(os.Stderr, "serve:", err)
			os.Exit(exitSysError)
		}
		defer backend.Detach()

		addr := serveAddr
		if addr == "" {
			v, err := resolveConfig()
			if err != nil {
				fmt.Fprintln(os.Stderr, "serve:", err)
				os.Exit(exitSysError)
			}
			addr = v.GetString(cfgKeyListenAddr)
		}

		srv := server.New(backend, log)
		log.Info("sync server listening", "addr", addr)
		if err := srv.Router().Run(addr); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(exitSysError)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config.yaml)")
}
