package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mbeoliero/uq/sdk"
)

var (
	version = "dev"
	commit  = "unknown"
)

const defaultServer = "http://localhost:8080"

// app carries the flags and streams shared by every command
type app struct {
	server      string
	sessionPath string

	in  io.Reader
	out io.Writer
	err io.Writer
}

// NewRootCmd builds the uq command tree
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, err: errOut}

	rootCmd := &cobra.Command{
		Use:   "uq",
		Short: "UQ terminal messenger",
		Long: `uq is a terminal client for the UQ messenger.
Sign in with a magic link, manage contacts and chat in real time.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVarP(&a.server, "server", "s", envOr("UQ_SERVER", defaultServer), "UQ server base url")
	rootCmd.PersistentFlags().StringVar(&a.sessionPath, "session", defaultSessionPath(), "session file path")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newVerifyCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newUsersCmd(a),
		newContactsCmd(a),
		newAddCmd(a),
		newChatCmd(a),
	)
	return rootCmd
}

// Execute runs the root command until it returns or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newClient returns a client for the configured server, signed in when a session is saved
func (a *app) newClient() (*sdk.Client, *SessionFile, error) {
	sf, err := LoadSession(a.sessionPath)
	if err != nil && !errors.Is(err, ErrNotLoggedIn) {
		return nil, nil, err
	}

	server := a.server
	opts := []sdk.ClientOption{sdk.WithPlatformId(sdk.PlatformIdTerminal)}
	if sf != nil {
		if server == defaultServer && sf.Server != "" {
			server = sf.Server
		}
		opts = append(opts, sdk.WithDefaultSession(sf.Session))
	}

	client, err := sdk.NewClient(server, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, sf, nil
}

// signedIn is newClient for commands that need a session
func (a *app) signedIn() (*sdk.Client, *SessionFile, error) {
	client, sf, err := a.newClient()
	if err != nil {
		return nil, nil, err
	}
	if sf == nil || !sf.Session.Valid() {
		return nil, nil, ErrNotLoggedIn
	}
	return client, sf, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".uq", "session.yaml")
	}
	return filepath.Join(home, ".uq", "session.yaml")
}
