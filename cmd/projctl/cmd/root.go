// Package cmd contains the CLI commands for projctl.
package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/good-yellow-bee/projtrack/internal/client"
	"github.com/good-yellow-bee/projtrack/pkg/config"
)

// DefaultServer is used when neither --server nor stored credentials name one.
const DefaultServer = "http://localhost:8080"

var (
	verbose         bool
	output          string
	serverURL       string
	credentialsPath string
)

var stdinReader = bufio.NewReader(os.Stdin)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "projctl",
	Short: "projctl - ProjTrack command-line client",
	Long: `projctl talks to a ProjTrack server over its JSON API.

Credentials from "projctl login" are kept in
~/.config/projtrack/credentials.yaml and refreshed automatically.

Examples:
  # Create an account and sign in
  projctl signup --username alice --email alice@example.com --role manager
  projctl login alice

  # List projects sorted by end date, newest first
  projctl projects list --sort endDate --desc

  # Rename two projects in one batch
  projctl projects retitle 64f0c1=Website:complete 64f0c2="Mobile app"`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server URL (default: stored server or "+DefaultServer+")")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "", "credentials file (default: ~/.config/projtrack/credentials.yaml)")
}

// credentialStore resolves the credentials file location.
func credentialStore() (*client.CredentialStore, error) {
	path := credentialsPath
	if path == "" {
		var err error
		if path, err = client.DefaultCredentialsPath(); err != nil {
			return nil, err
		}
	}
	return client.NewCredentialStore(path), nil
}

// newClient builds an API client from the stored credentials and flags.
func newClient() (*client.Client, error) {
	store, err := credentialStore()
	if err != nil {
		return nil, err
	}
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}

	server := serverURL
	if server == "" {
		server = os.Getenv("PROJTRACK_SERVER")
	}
	if server == "" {
		server = creds.Server
	}
	if server == "" {
		server = DefaultServer
	}
	// tokens belong to the server that issued them
	if creds.Server != "" && strings.TrimRight(server, "/") != creds.Server {
		creds = &client.Credentials{}
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	return client.New(server, creds,
		client.WithCredentialStore(store),
		client.WithLogger(logger),
		client.WithUserAgent(config.UserAgent("projctl"))), nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
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

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
