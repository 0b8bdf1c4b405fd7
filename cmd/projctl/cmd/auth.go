package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

var (
	signupUsername string
	signupEmail    string
	signupRole     string
	logoutAll      bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an account on the server. The password is prompted twice.

Roles: admin, manager, intern, employee. Only admin and manager may edit
existing projects.

Example:
  projctl signup --username alice --email alice@example.com --role manager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if signupUsername == "" || signupEmail == "" || signupRole == "" {
			return fmt.Errorf("--username, --email and --role are required")
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password confirmation: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		user, err := c.Signup(context.Background(), tracker.SignupInput{
			Username:        signupUsername,
			Email:           signupEmail,
			Password:        password,
			ConfirmPassword: confirm,
			Role:            signupRole,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account %s (%s) created. Run \"projctl login %s\" to sign in.\n",
			user.Username, user.Role, user.Username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login USERNAME|EMAIL",
	Short: "Sign in and store credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.Login(context.Background(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s (%s)\n",
			c.Credentials().Server, result.Username, result.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Logout(context.Background(), logoutAll); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		me, err := c.Me(context.Background())
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), me)
		}
		access := "read-only"
		if me.CanEdit {
			access = "can edit"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s (%s) server=%s\n",
			me.Username, me.Email, me.Role, access, c.Credentials().Server)
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVarP(&signupUsername, "username", "u", "", "username")
	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "email address")
	signupCmd.Flags().StringVarP(&signupRole, "role", "r", "", "role (admin, manager, intern, employee)")

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "revoke every session of the account, not just this one")

	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
