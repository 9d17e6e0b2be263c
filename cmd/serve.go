package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/rogersnm/todos/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run a development todos server",
	Annotations: map[string]string{annStandalone: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		storage, _ := cmd.Flags().GetString("storage")
		noAuth, _ := cmd.Flags().GetBool("no-auth")
		flagSecret, _ := cmd.Flags().GetString("secret")
		secret := serverSecret(flagSecret)

		// Request logs are the point of a dev server.
		if cfg.LogLevel == "" && !debug {
			log.SetLevel(logrus.InfoLevel)
		}

		var stores server.StoreFactory
		switch storage {
		case "memory":
			stores = server.MemoryStores()
		case "local":
			stores = server.LocalStores(filepath.Join(dataDir, "server"))
		default:
			return fmt.Errorf("invalid storage %q: must be memory or local", storage)
		}

		srv, err := server.New(server.Config{
			Secret: []byte(secret),
			Stores: stores,
			NoAuth: noAuth,
			Logger: log,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving todos on %s (storage: %s)\n", addr, storage)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

// serverSecret prefers the flag, then TODOS_SECRET from the environment or .env.
func serverSecret(flag string) string {
	if flag != "" {
		return flag
	}
	return env.Secret
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "listen address")
	serveCmd.Flags().String("storage", "memory", "where tasks are kept (memory, local)")
	serveCmd.Flags().Bool("no-auth", false, "serve one shared list without login")
	serveCmd.Flags().String("secret", "", "token signing secret (default $TODOS_SECRET, or random)")
	rootCmd.AddCommand(serveCmd)
}
