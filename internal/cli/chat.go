package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mbeoliero/uq/sdk"
	"github.com/mbeoliero/uq/sdk/feed"
)

const chatHelp = "Type to send. /more older messages, /retry failed sends, /translate [n] [lang], /summary, /quit"

const summaryLimit = 20

func newChatCmd(a *app) *cobra.Command {
	var (
		pageSize int
		lang     string
	)
	cmd := &cobra.Command{
		Use:   "chat <uq number|user id>",
		Short: "Open a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sf, err := a.signedIn()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			partner, err := resolvePartner(ctx, client, args[0])
			if err != nil {
				return err
			}
			if partner.Id == sf.UserId {
				return fmt.Errorf("that is you")
			}

			view := newChatView(a.out, sf.UserId, partner)
			mgr := feed.NewManager(feed.FromClient(client),
				feed.WithPageSize(pageSize),
				feed.WithOnChange(view.render),
				feed.WithChime(feed.ChimeFunc(view.bell)),
			)
			defer mgr.Close()

			fmt.Fprintf(a.out, "Chatting with %s, %s\n%s\n", formatUser(partner), statusBadge(partner.Status), chatHelp)
			if err := mgr.Open(ctx, sf.Session, partner.Id); err != nil {
				return err
			}
			if _, err := client.MarkRead(ctx, partner.Id); err != nil {
				fmt.Fprintf(a.err, "warning: mark read failed: %v\n", err)
			}

			s := &chatSession{client: client, mgr: mgr, view: view, partner: partner, lang: lang, out: a.out}
			err = s.loop(ctx, a.in)
			if _, markErr := client.MarkRead(context.Background(), partner.Id); markErr != nil {
				fmt.Fprintf(a.err, "warning: mark read failed: %v\n", markErr)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&pageSize, "page", feed.DefaultPageSize, "messages per history page")
	cmd.Flags().StringVar(&lang, "lang", "en", "language /translate translates into")
	return cmd
}

// resolvePartner accepts a UQ number, optionally prefixed with #, or a user id
func resolvePartner(ctx context.Context, client *sdk.Client, arg string) (*sdk.UserInfo, error) {
	if uqNumber, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64); err == nil {
		return client.GetByUqNumber(ctx, uqNumber)
	}
	return client.GetProfile(ctx, arg)
}

type chatSession struct {
	client  *sdk.Client
	mgr     *feed.Manager
	view    *chatView
	partner *sdk.UserInfo
	lang    string
	out     io.Writer
}

func (s *chatSession) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the chat should end
func (s *chatSession) handle(ctx context.Context, line string) bool {
	command, arg := parseInput(line)
	switch command {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/more":
		if err := s.mgr.LoadMore(ctx); err != nil {
			s.view.notice("could not load older messages: %v", err)
		} else if !s.mgr.State().HasMore {
			s.view.notice("no older messages")
		}
	case "/retry":
		s.retryFailed(ctx)
	case "/translate":
		s.translate(ctx, arg)
	case "/summary":
		summary, err := s.client.Summarize(ctx, s.partner.Id, summaryLimit)
		switch {
		case err != nil:
			s.view.notice("summary failed: %v", err)
		case summary == "":
			s.view.notice("nothing to summarize")
		default:
			s.view.notice("summary: %s", summary)
		}
	case "/help":
		s.view.notice(chatHelp)
	case "/send":
		if _, err := s.mgr.Send(ctx, arg); err != nil && !errors.Is(err, feed.ErrEmptyContent) {
			s.view.notice("not sent, type /retry to try again")
		}
	default:
		s.view.notice("unknown command %s", command)
	}
	return false
}

func (s *chatSession) retryFailed(ctx context.Context) {
	var failed []string
	for _, it := range s.mgr.State().Items {
		if it.State == feed.StateFailed {
			failed = append(failed, it.LocalId)
		}
	}
	if len(failed) == 0 {
		s.view.notice("nothing to retry")
		return
	}
	for _, localId := range failed {
		if err := s.mgr.Retry(ctx, localId); err != nil {
			s.view.notice("retry failed: %v", err)
		}
	}
}

// translate accepts "/translate", "/translate 3", "/translate fr" and "/translate 3 fr"
func (s *chatSession) translate(ctx context.Context, arg string) {
	n, lang := 1, s.lang
	fields := strings.Fields(arg)
	if len(fields) > 0 {
		if v, err := strconv.Atoi(fields[0]); err == nil {
			n = v
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		lang = fields[0]
		fields = fields[1:]
	}
	if n < 1 || len(fields) > 0 {
		s.view.notice("usage: /translate [n] [lang], n counts back from the latest message")
		return
	}
	if lang == "" {
		lang = "en"
	}
	msg, ok := nthLatest(s.mgr.State().Items, n)
	if !ok {
		s.view.notice("no such message")
		return
	}
	resp, err := s.client.Translate(ctx, msg.Id, lang)
	if err != nil {
		s.view.notice("translate failed: %v", err)
		return
	}
	if !resp.Translated {
		s.view.notice("already in your language: %s", resp.Text)
		return
	}
	s.view.notice("translation: %s", resp.Text)
}

// parseInput splits a slash command from its argument, plain text becomes /send
func parseInput(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	if !strings.HasPrefix(line, "/") {
		return "/send", line
	}
	command, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(command), strings.TrimSpace(arg)
}

// nthLatest returns the n-th newest confirmed message, n starting at 1
func nthLatest(items []feed.Item, n int) (*sdk.MessageInfo, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].State != feed.StateConfirmed {
			continue
		}
		n--
		if n == 0 {
			return items[i].Message, true
		}
	}
	return nil, false
}

// chatView prints feed items once, and again only when their state changes
type chatView struct {
	mu      sync.Mutex
	out     io.Writer
	me      string
	partner *sdk.UserInfo
	shown   map[string]feed.ItemState
}

func newChatView(out io.Writer, me string, partner *sdk.UserInfo) *chatView {
	return &chatView{
		out:     out,
		me:      me,
		partner: partner,
		shown:   make(map[string]feed.ItemState),
	}
}

func itemKey(it feed.Item) string {
	if it.LocalId != "" {
		return "local:" + it.LocalId
	}
	return "id:" + it.Id()
}

func (v *chatView) render(state feed.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// unseen items ahead of the first seen one came from /more
	earlier := 0
	for _, it := range state.Items {
		if _, ok := v.shown[itemKey(it)]; ok {
			break
		}
		earlier++
	}
	if earlier == len(state.Items) {
		earlier = 0
	}
	if earlier > 0 {
		fmt.Fprintln(v.out, "── earlier ──")
	}

	for _, it := range state.Items {
		key := itemKey(it)
		prev, ok := v.shown[key]
		v.shown[key] = it.State
		switch {
		case !ok:
			fmt.Fprintln(v.out, v.line(it))
		case prev != it.State && it.State == feed.StateFailed:
			fmt.Fprintf(v.out, "✗ not sent: %s (%v)\n", it.Message.Content, it.Err)
		case prev == feed.StateFailed && it.State == feed.StatePending:
			fmt.Fprintf(v.out, "… retrying: %s\n", it.Message.Content)
		}
	}
}

func (v *chatView) line(it feed.Item) string {
	m := it.Message
	name := v.partner.Username
	if m.SenderId == v.me {
		name = "me"
	} else if m.Sender != nil && m.Sender.Username != "" {
		name = m.Sender.Username
	}

	marker := ""
	switch it.State {
	case feed.StatePending:
		marker = " …"
	case feed.StateFailed:
		marker = " ✗"
	}
	return fmt.Sprintf("[%s] %s: %s%s", clock(m.CreatedAt), name, m.Content, marker)
}

func (v *chatView) notice(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "* "+format+"\n", args...)
}

func (v *chatView) bell() {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprint(v.out, "\a")
}
