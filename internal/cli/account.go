package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbeoliero/uq/sdk"
)

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Email yourself a sign-in code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.newClient()
			if err != nil {
				return err
			}
			if err := client.RequestMagicLink(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "A sign-in code is on its way to %s.\n", email)
			fmt.Fprintf(a.out, "Run `uq verify --email %s --code <code>` to finish.\n", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Exchange the emailed code for a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sdk.NewClient(a.server, sdk.WithPlatformId(sdk.PlatformIdTerminal))
			if err != nil {
				return err
			}
			resp, err := client.Verify(cmd.Context(), email, strings.TrimSpace(code))
			if err != nil {
				return err
			}

			sf := &SessionFile{Server: a.server, Email: email, Session: client.Session()}
			if err := SaveSession(a.sessionPath, sf); err != nil {
				return err
			}

			if resp.IsNew {
				fmt.Fprintf(a.out, "Welcome to UQ! Your number is %d.\n", resp.UserInfo.UqNumber)
			} else {
				fmt.Fprintf(a.out, "Signed in as %s.\n", formatUser(resp.UserInfo))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&code, "code", "c", "", "code from the email")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			// an expired token still clears the local session
			if err := client.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(a.err, "warning: server logout failed: %v\n", err)
			}
			if err := RemoveSession(a.sessionPath); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			me, err := client.GetUserInfo(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(a.out, me)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "status <online|away|busy|invisible>",
		Short:     "Set your presence status",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{sdk.StatusOnline, sdk.StatusAway, sdk.StatusBusy, sdk.StatusInvisible},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			me, err := client.SetStatus(cmd.Context(), strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Status set to %s.\n", statusBadge(me.Status))
			return nil
		},
	}
}
