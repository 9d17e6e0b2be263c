package cmd

import (
	"errors"
	"fmt"

	"github.com/rogersnm/todos/internal/state"
	"github.com/spf13/cobra"
)

const clearScreen = "\033[H\033[2J"

var watchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Show the list and redraw it as it changes",
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Load(cmd.Context()); err != nil {
			return err
		}
		redraw := func() {
			fmt.Fprint(cmd.OutOrStdout(), clearScreen)
			printList(cmd)
		}
		redraw()
		app.Observe(redraw)

		err := app.Listen(cmd.Context())
		if errors.Is(err, state.ErrNoRealtime) {
			return fmt.Errorf("watch needs the cloud backend: run 'todos config set backend cloud'")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
