package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/route"
	"github.com/spf13/cobra"
)

// promptMissing asks for every field whose value is still empty.
func promptMissing(fields ...huh.Field) error {
	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("cancelled")
	}
	return nil
}

func textField(title string, v *string) huh.Field {
	return huh.NewInput().Title(title).Value(v)
}

func passwordField(v *string) huh.Field {
	return huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(v)
}

var loginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Log in to the todos server",
	Annotations: map[string]string{annRoute: route.Login},
	RunE: func(cmd *cobra.Command, args []string) error {
		var creds model.Credentials
		creds.Username, _ = cmd.Flags().GetString("username")
		creds.Password, _ = cmd.Flags().GetString("password")

		var fields []huh.Field
		if creds.Username == "" {
			fields = append(fields, textField("Email", &creds.Username))
		}
		if creds.Password == "" {
			fields = append(fields, passwordField(&creds.Password))
		}
		if err := promptMissing(fields...); err != nil {
			return err
		}

		// Don't show the previous session's list to the next user.
		app.ClearTodos()
		if err := app.Authenticate(cmd.Context(), creds); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", creds.Username)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:         "register",
	Short:       "Create an account and log in",
	Annotations: map[string]string{annRoute: route.Register},
	RunE: func(cmd *cobra.Command, args []string) error {
		var reg model.Registration
		reg.Name, _ = cmd.Flags().GetString("name")
		reg.Email, _ = cmd.Flags().GetString("email")
		reg.Password, _ = cmd.Flags().GetString("password")

		var fields []huh.Field
		if reg.Name == "" {
			fields = append(fields, textField("Name", &reg.Name))
		}
		if reg.Email == "" {
			fields = append(fields, textField("Email", &reg.Email))
		}
		if reg.Password == "" {
			fields = append(fields, passwordField(&reg.Password))
		}
		if err := promptMissing(fields...); err != nil {
			return err
		}

		if err := app.Register(cmd.Context(), reg); err != nil {
			return err
		}
		app.ClearTodos()
		if err := app.Authenticate(cmd.Context(), model.Credentials{Username: reg.Email, Password: reg.Password}); err != nil {
			return fmt.Errorf("registered, but logging in failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", reg.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.LoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		if err := app.Deauthenticate(cmd.Context()); err != nil {
			return err
		}
		app.ClearTodos()
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:         "whoami",
	Short:       "Show the logged in user",
	Annotations: map[string]string{annRoute: route.Todo},
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := app.CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.Name, u.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "account email")
	loginCmd.Flags().StringP("password", "p", "", "account password")

	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().StringP("password", "p", "", "account password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
