package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "users [query]",
		Short: "Browse the user registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			users, err := client.ListRegistry(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "No users found.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "UQ#\tNAME\tSTATUS\tLAST SEEN")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.UqNumber, u.Username, statusBadge(u.Status), lastSeen(u.Status, u.LastSeen))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max users to list")
	return cmd
}

func newContactsCmd(a *app) *cobra.Command {
	var onlineOnly bool
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List your contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			contacts, err := client.ListContacts(cmd.Context(), onlineOnly)
			if err != nil {
				return err
			}
			unread, err := client.UnreadCounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(a.out, "No contacts yet, add one with `uq add <uq number>`.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "UQ#\tNAME\tSTATUS\tLAST SEEN\tUNREAD")
			for _, c := range contacts {
				var uqNumber int64
				status, seen := "", int64(0)
				if c.Contact != nil {
					uqNumber, status, seen = c.Contact.UqNumber, c.Contact.Status, c.Contact.LastSeen
				}
				badge := ""
				if n := unread[c.ContactId]; n > 0 {
					badge = strconv.FormatInt(n, 10)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", uqNumber, c.DisplayName(), statusBadge(status), lastSeen(status, seen), badge)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&onlineOnly, "online", false, "only contacts that are online")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "add <uq number>",
		Short: "Add a contact by UQ number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uqNumber, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid uq number %q", args[0])
			}
			client, _, err := a.signedIn()
			if err != nil {
				return err
			}
			contact, err := client.AddContact(cmd.Context(), uqNumber, nickname)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s.\n", contact.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "name to show for this contact")
	return cmd
}
