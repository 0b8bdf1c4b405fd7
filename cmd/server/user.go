package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

var stdinReader = bufio.NewReader(os.Stdin)

var (
	userUsername string
	userEmail    string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts directly in the store",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a user without going through the API.

The password is prompted interactively so it stays out of shell history.
It must be at least 6 characters long and contain an uppercase letter,
a lowercase letter and a digit.

Roles: admin, manager, intern, employee

Example:
  projtrack-server user create --username alice --email alice@example.com --role manager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userUsername == "" || userEmail == "" || userRole == "" {
			return fmt.Errorf("--username, --email and --role are required")
		}

		password, err := promptPassword("Enter password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password confirmation: %w", err)
		}

		svc, closeStore, err := openService()
		if err != nil {
			return err
		}
		defer closeStore()

		user, err := svc.Signup(context.Background(), tracker.SignupInput{
			Username:        userUsername,
			Email:           userEmail,
			Password:        password,
			ConfirmPassword: confirm,
			Role:            userRole,
		})
		if err != nil {
			return fmt.Errorf("create user: %s", tracker.Message(err, err.Error()))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nUser created successfully:\n")
		fmt.Fprintf(out, "  ID:       %s\n", user.ID)
		fmt.Fprintf(out, "  Username: %s\n", user.Username)
		fmt.Fprintf(out, "  Email:    %s\n", user.Email)
		fmt.Fprintf(out, "  Role:     %s\n", user.Role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := openService()
		if err != nil {
			return err
		}
		defer closeStore()

		users, err := svc.Users(context.Background())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				u.ID, u.Username, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	userCreateCmd.Flags().StringVarP(&userUsername, "username", "u", "", "username")
	userCreateCmd.Flags().StringVarP(&userEmail, "email", "e", "", "email address")
	userCreateCmd.Flags().StringVarP(&userRole, "role", "r", "", "role (admin, manager, intern, employee)")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
}

// openService opens the configured store for a one-off command.
func openService() (*tracker.Service, func(), error) {
	cfg, err := LoadStorageConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, fmt.Errorf("create logger: %w", err)
		}
	}
	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return tracker.NewService(store, logger), func() { store.Close() }, nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	password, err := stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(password, "\r\n"), nil
}
