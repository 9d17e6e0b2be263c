package cmd

import (
	"fmt"

	"github.com/rogersnm/todos/internal/config"
	"github.com/rogersnm/todos/internal/markdown"
	"github.com/rogersnm/todos/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show or change configuration",
	Annotations: map[string]string{annStandalone: "true"},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := "(none)"
		if cfg.AccessToken != "" {
			token = cfg.AccessToken[:min(8, len(cfg.AccessToken))] + "..."
		}
		filter := cfg.DefaultFilter
		if filter == "" {
			filter = string(model.FilterAll)
		}
		fields := []string{
			markdown.RenderField("Backend", cfg.BackendName()),
			markdown.RenderField("Data", dataDir),
			markdown.RenderField("Filter", filter),
			markdown.RenderField("Token", token),
		}
		if cfg.BackendName() == config.BackendCloud {
			fields = append(fields, markdown.RenderField("Server", cfg.ServerURL()))
		}
		fmt.Fprint(cmd.OutOrStdout(), markdown.RenderHeader("Configuration", fields))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set backend, server, default_filter or log_level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		var apply func(*config.Config)
		switch key {
		case "backend":
			if err := (&config.Config{Backend: value}).Validate(); err != nil {
				return err
			}
			apply = func(c *config.Config) { c.Backend = value }
		case "server":
			apply = func(c *config.Config) { c.Server = value }
		case "default_filter":
			if _, err := model.ParseFilter(value); err != nil {
				return err
			}
			apply = func(c *config.Config) { c.DefaultFilter = value }
		case "log_level":
			if _, err := logrus.ParseLevel(value); err != nil {
				return err
			}
			apply = func(c *config.Config) { c.LogLevel = value }
		default:
			return fmt.Errorf("unknown key %q", key)
		}
		if err := editConfig(apply); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
