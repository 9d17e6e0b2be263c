package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rogersnm/todos/internal/config"
	"github.com/rogersnm/todos/internal/editor"
	"github.com/rogersnm/todos/internal/markdown"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/route"
	"github.com/rogersnm/todos/internal/store"
	"github.com/spf13/cobra"
)

var todoAnnotations = map[string]string{annRoute: route.Todo}

// findTodo loads the list and returns the todo with the given id.
func findTodo(cmd *cobra.Command, taskID string) (model.Task, error) {
	if err := app.Load(cmd.Context()); err != nil {
		return model.Task{}, err
	}
	for _, t := range app.Todos() {
		if t.ID == taskID {
			return t, nil
		}
	}
	return model.Task{}, fmt.Errorf("todo %s: %w", taskID, store.ErrNotFound)
}

func printList(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, markdown.RenderTaskTable(app.Filtered()))
	if len(app.Todos()) > 0 {
		fmt.Fprintln(out, markdown.RenderFooter(app.Remaining(), app.ShowClearCompleted()))
	}
}

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List todos",
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("filter") {
			s, _ := cmd.Flags().GetString("filter")
			f, err := model.ParseFilter(s)
			if err != nil {
				return err
			}
			app.SetFilter(f)
		}
		if err := app.Load(cmd.Context()); err != nil {
			return err
		}
		printList(cmd)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:         "add <title>",
	Short:       "Add a todo",
	Args:        cobra.MinimumNArgs(1),
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			return fmt.Errorf("title is required")
		}
		t, err := app.Add(cmd.Context(), title)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", t.Title, t.ID)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:         "update <id>",
	Short:       "Update a todo",
	Args:        cobra.ExactArgs(1),
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		upd := store.TaskUpdate{}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			title = strings.TrimSpace(title)
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			upd.Title = &title
		}
		if cmd.Flags().Changed("completed") {
			completed, _ := cmd.Flags().GetBool("completed")
			upd.Completed = &completed
		}
		if upd.IsEmpty() {
			return fmt.Errorf("at least one update flag is required (--title, --completed)")
		}

		if err := app.Update(cmd.Context(), args[0], upd); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:         "edit <id>",
	Short:       "Edit a todo's title in $EDITOR",
	Args:        cobra.ExactArgs(1),
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := findTodo(cmd, args[0])
		if err != nil {
			return err
		}
		title, err := editor.EditText(t.Title)
		if err != nil {
			return err
		}
		// An emptied title cancels the edit.
		if title == "" || title == t.Title {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
			return nil
		}
		if err := app.Update(cmd.Context(), t.ID, store.TaskUpdate{Title: &title}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", t.ID, title)
		return nil
	},
}

func setCompletedCmd(use, short, verb string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:         use + " <id>",
		Short:       short,
		Args:        cobra.ExactArgs(1),
		Annotations: todoAnnotations,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Update(cmd.Context(), args[0], store.TaskUpdate{Completed: &completed}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
			return nil
		},
	}
}

var (
	doneCmd = setCompletedCmd("done", "Mark a todo completed", "Completed", true)
	undoCmd = setCompletedCmd("undo", "Mark a todo active again", "Reopened", false)
)

var showCmd = &cobra.Command{
	Use:         "show <id>",
	Short:       "Show one todo",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annRoute: route.Todos},
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := findTodo(cmd, args[0])
		if err != nil {
			return err
		}
		status := "active"
		if t.Completed {
			status = "completed"
		}
		fmt.Fprint(cmd.OutOrStdout(), markdown.RenderHeader(t.Title, []string{
			markdown.RenderField("ID", t.ID),
			markdown.RenderField("Status", status),
			markdown.RenderField("Created", t.Timestamp.Local().Format("2006-01-02 15:04")),
		}))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:         "rm <id>",
	Short:       "Delete a todo",
	Args:        cobra.ExactArgs(1),
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := findTodo(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Todo: %s (%s)\n", t.Title, t.ID)
		if err := confirmDelete(cmd, t.ID); err != nil {
			return err
		}
		if err := app.Remove(cmd.Context(), t.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", t.ID)
		return nil
	},
}

func confirmDelete(cmd *cobra.Command, taskID string) error {
	if force, _ := cmd.Flags().GetBool("force"); force {
		return nil
	}
	var confirm bool
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Delete %s?", taskID)).
		Value(&confirm).
		Run(); err != nil || !confirm {
		return fmt.Errorf("deletion cancelled")
	}
	return nil
}

var checkAllCmd = &cobra.Command{
	Use:         "check-all",
	Short:       "Mark every todo completed",
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		uncheck, _ := cmd.Flags().GetBool("uncheck")
		if err := app.Load(cmd.Context()); err != nil {
			return err
		}
		if err := app.SetCompletedForAll(cmd.Context(), !uncheck); err != nil {
			return err
		}
		printList(cmd)
		return nil
	},
}

var clearCompletedCmd = &cobra.Command{
	Use:         "clear-completed",
	Short:       "Delete every completed todo",
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Load(cmd.Context()); err != nil {
			return err
		}
		before := len(app.Todos())
		if err := app.ClearCompleted(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed todo(s)\n", before-len(app.Todos()))
		return nil
	},
}

var filterCmd = &cobra.Command{
	Use:         "filter <all|active|completed>",
	Short:       "Set the default filter for list",
	Args:        cobra.ExactArgs(1),
	Annotations: todoAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := model.ParseFilter(args[0])
		if err != nil {
			return err
		}
		app.SetFilter(f)
		if err := editConfig(func(c *config.Config) { c.DefaultFilter = string(f) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Filter set to %s\n", f)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("filter", "f", "", "show all, active or completed todos")

	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().Bool("completed", false, "completion state")

	rmCmd.Flags().BoolP("force", "f", false, "skip confirmation")

	checkAllCmd.Flags().Bool("uncheck", false, "mark every todo active instead")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(checkAllCmd)
	rootCmd.AddCommand(clearCompletedCmd)
	rootCmd.AddCommand(filterCmd)
}
