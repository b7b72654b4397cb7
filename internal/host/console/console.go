// Package console is a line-oriented host: it prints to a writer and
// reads the verification code from a reader.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/host"
)

// Console is a host backed by a terminal
type Console struct {
	account  string
	out      io.Writer
	in       *bufio.Reader // nil means no input can be given
	settings repo.SettingsRepo
	blist    *host.Blist

	mu           sync.Mutex
	state        host.ConnectionState
	authFailure  string
	disconnected atomic.Bool
}

// New creates a console host for the account
func New(account string, out io.Writer, in io.Reader, settings repo.SettingsRepo, blist repo.BlistRepo) *Console {
	c := &Console{
		account:  account,
		out:      out,
		settings: settings,
		blist:    host.NewBlist(blist, account),
	}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// RequestInput prints the prompt and reads one line.
// End of input or an empty line means no answer.
func (c *Console) RequestInput(_ context.Context, req host.InputRequest) (string, bool, error) {
	c.printf("%s\n%s\n%s [%s/%s]: ", req.Title, req.Primary, req.Secondary, req.OKText, req.CancelText)
	if c.in == nil {
		return "", false, nil
	}
	line, err := c.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("failed to read input: %w", err)
	}
	if line == "" {
		return "", false, nil
	}
	return line, true, nil
}

// IsDisconnected reports whether the user went offline
func (c *Console) IsDisconnected(context.Context) bool {
	return c.disconnected.Load()
}

// SetDisconnected toggles the offline state
func (c *Console) SetDisconnected(v bool) {
	c.disconnected.Store(v)
}

func (c *Console) PersistCredentials(ctx context.Context, creds domain.Credentials) error {
	return c.settings.SaveCredentials(ctx, c.account, creds)
}

func (c *Console) LoadCredentials(ctx context.Context) (domain.Credentials, bool, error) {
	return c.settings.LoadCredentials(ctx, c.account)
}

func (c *Console) SetState(_ context.Context, state host.ConnectionState) error {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.printf("* %s\n", state)
	return nil
}

// State returns the last connection state
func (c *Console) State() host.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Console) ReportAuthFailure(_ context.Context, message string) error {
	c.mu.Lock()
	c.authFailure = message
	c.mu.Unlock()
	c.printf("! authentication failed: %s\n", message)
	return nil
}

// AuthFailure returns the last reported authentication failure
func (c *Console) AuthFailure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authFailure
}

func (c *Console) ChatJoined(ctx context.Context, chat domain.PartialChat) error {
	change, err := c.blist.Ensure(ctx, chat)
	if err != nil {
		return err
	}
	switch {
	case change.Created:
		c.printf("+ chat %s (%s)\n", chat.Title, chat.StableName)
	case change.Changed():
		c.printf("~ chat %s (%s)\n", chat.Title, chat.StableName)
	}
	return nil
}

func (c *Console) ConversationJoined(_ context.Context, chat domain.PartialChat) error {
	c.printf("*** %s joined\n", chat.Title)
	return nil
}

func (c *Console) LoadChatInfo(_ context.Context, info *domain.ChatInfo, roster domain.Roster) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s (%s)\n", info.Title, info.StableName)
	if info.About != "" {
		fmt.Fprintf(&b, "    %s\n", info.About)
	}
	for _, e := range roster {
		fmt.Fprintf(&b, "    [%s] %s\n", e.Flag, e.Alias)
	}
	c.printf("%s", b.String())
	return nil
}

func (c *Console) DeliverMessage(_ context.Context, msg domain.Message) error {
	c.printf("[%s] %s <%s> %s\n", msg.Time.Format("15:04:05"), msg.ChatName, msg.AuthorDisplay, msg.Text)
	return nil
}

func (c *Console) Notify(_ context.Context, chatName, message string) error {
	if chatName == "" {
		c.printf("! %s\n", message)
		return nil
	}
	c.printf("! %s: %s\n", chatName, message)
	return nil
}

var _ host.Host = (*Console)(nil)
