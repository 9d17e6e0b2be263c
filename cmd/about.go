package cmd

import (
	"fmt"

	"github.com/rogersnm/todos/internal/markdown"
	"github.com/rogersnm/todos/internal/route"
	"github.com/spf13/cobra"
)

const aboutText = `# todos

A todo list that stays in sync across devices.

- **local** backend: one markdown file per todo in the data directory.
- **cloud** backend: todos live on a server and every open ` + "`todos watch`" + `
  sees changes from other devices as they happen.

Run ` + "`todos serve`" + ` for a development server, then
` + "`todos config set backend cloud`" + ` and ` + "`todos register`" + `.
`

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "About todos",
	Annotations: map[string]string{
		annRoute:      route.About,
		annStandalone: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := markdown.RenderMarkdown(aboutText)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aboutCmd)
}
