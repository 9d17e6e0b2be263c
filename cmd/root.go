package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	mtp "github.com/modeltoolsprotocol/go-sdk"
	"github.com/rogersnm/todos/internal/config"
	"github.com/rogersnm/todos/internal/logging"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/route"
	"github.com/rogersnm/todos/internal/session"
	"github.com/rogersnm/todos/internal/state"
	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	dataDir string
	debug   bool
	cfg     *config.Config
	env     config.Env
	log     *logrus.Logger
	st      store.Store
	app     *state.Container
)

// Command annotations.
const (
	// annRoute names the route a command renders; the guard checks it.
	annRoute = "route"
	// annStandalone marks commands that need no todo store.
	annStandalone = "standalone"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".todos")
	}
	return filepath.Join(home, ".todos")
}

var rootCmd = &cobra.Command{
	Use:     "todos",
	Short:   "A todo list that stays in sync across devices",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		var err error
		cfg, err = config.Load(dataDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		var dotenv string
		if cwd, err := os.Getwd(); err == nil {
			if dotenv, err = config.FindDotenv(cwd); err != nil {
				return err
			}
		}
		env, err = config.LoadEnv(dotenv)
		if err != nil {
			return err
		}
		cfg.ApplyEnv(env)
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.LogLevel
		if debug {
			level = "debug"
		}
		log, err = logging.New(level, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		if isStandalone(cmd) {
			return nil
		}
		return setupApp(cmd)
	},
	SilenceUsage: true,
}

func isStandalone(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annStandalone] == "true" {
			return true
		}
	}
	return false
}

// setupApp builds the store for the configured backend and the container
// on top of it, restores the session and applies the route guard.
func setupApp(cmd *cobra.Command) error {
	switch cfg.BackendName() {
	case config.BackendCloud:
		st = store.NewCloudStore(cfg.ServerURL(), "")
	default:
		st = store.NewLocal(dataDir)
	}

	app = state.New(st,
		state.WithLogger(log),
		state.WithSession(session.ConfigStorage{DataDir: dataDir}),
	)
	if err := app.Restore(); err != nil {
		return err
	}
	if cfg.DefaultFilter != "" {
		f, err := model.ParseFilter(cfg.DefaultFilter)
		if err != nil {
			return fmt.Errorf("default_filter: %w", err)
		}
		app.SetFilter(f)
	}

	if cfg.BackendName() == config.BackendCloud {
		if name := cmd.Annotations[annRoute]; name != "" {
			return route.Check(name, app.LoggedIn())
		}
	}
	return nil
}

// editConfig applies fn to the config file as stored, without the
// environment overrides folded into cfg.
func editConfig(fn func(*config.Config)) error {
	fileCfg, err := config.Load(dataDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	fn(fileCfg)
	if err := config.Save(dataDir, fileCfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "data directory path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	mtpOpts := &mtp.DescribeOptions{
		Commands: map[string]*mtp.CommandAnnotation{
			"add": {
				Examples: []mtp.Example{
					{Description: "Add a todo", Command: "todos add \"Buy milk\""},
				},
			},
			"list": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Table of todos with completion mark, ID, title and creation time, followed by the count of items left",
				},
				Examples: []mtp.Example{
					{Description: "List all todos", Command: "todos list"},
					{Description: "List only unfinished todos", Command: "todos list --filter active"},
				},
			},
			"update": {
				Examples: []mtp.Example{
					{Description: "Rename a todo", Command: "todos update t-k3m9x2ab --title \"Buy oat milk\""},
					{Description: "Mark a todo done", Command: "todos update t-k3m9x2ab --completed"},
				},
			},
			"done": {
				Examples: []mtp.Example{
					{Description: "Complete a todo", Command: "todos done t-k3m9x2ab"},
				},
			},
			"rm": {
				Examples: []mtp.Example{
					{Description: "Delete a todo (interactive confirm)", Command: "todos rm t-k3m9x2ab"},
					{Description: "Delete a todo (skip confirm)", Command: "todos rm t-k3m9x2ab --force"},
				},
			},
			"check-all": {
				Examples: []mtp.Example{
					{Description: "Complete every todo", Command: "todos check-all"},
					{Description: "Reopen every todo", Command: "todos check-all --uncheck"},
				},
			},
			"filter": {
				Examples: []mtp.Example{
					{Description: "Show only completed todos by default", Command: "todos filter completed"},
				},
			},
			"show": {
				Examples: []mtp.Example{
					{Description: "Show one todo", Command: "todos show t-k3m9x2ab"},
				},
			},
			"watch": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "The todo table, redrawn whenever another device changes the list",
				},
			},
			"login": {
				Examples: []mtp.Example{
					{Description: "Log in interactively", Command: "todos login"},
					{Description: "Log in non-interactively", Command: "todos login --username ann@example.com --password secret"},
				},
			},
			"register": {
				Examples: []mtp.Example{
					{Description: "Create an account and log in", Command: "todos register --name Ann --email ann@example.com --password secret"},
				},
			},
			"whoami": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Name and email of the logged in user",
				},
			},
			"serve": {
				Examples: []mtp.Example{
					{Description: "Run a development backend", Command: "todos serve --addr :8000"},
					{Description: "Persist tasks to disk", Command: "todos serve --storage local"},
				},
			},
		},
	}

	mtp.WithDescribe(rootCmd, mtpOpts)
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
