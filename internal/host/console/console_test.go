package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/data"
	"github.com/flared/icq-bridge/internal/host"
)

func newConsole(t *testing.T, input string) (*Console, *bytes.Buffer) {
	t.Helper()
	db, err := data.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	settings, err := data.NewSettingsRepo(db)
	require.NoError(t, err)
	blist, err := data.NewBlistRepo(db)
	require.NoError(t, err)

	var out bytes.Buffer
	var in io.Reader
	if input != "" {
		in = strings.NewReader(input)
	}
	return New("+1", &out, in, settings, blist), &out
}

func TestConsole_RequestInput(t *testing.T) {
	c, out := newConsole(t, "123456\n")

	code, ok, err := c.RequestInput(context.Background(), host.InputRequest{Title: "SMS Code", Primary: "Enter SMS code", OKText: "Login", CancelText: "Cancel"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123456", code)
	assert.Contains(t, out.String(), "SMS Code")
	assert.Contains(t, out.String(), "[Login/Cancel]")
}

func TestConsole_RequestInputNoAnswer(t *testing.T) {
	c, _ := newConsole(t, "")
	_, ok, err := c.RequestInput(context.Background(), host.InputRequest{})
	require.NoError(t, err)
	assert.False(t, ok)

	c, _ = newConsole(t, "\n")
	_, ok, err = c.RequestInput(context.Background(), host.InputRequest{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsole_Credentials(t *testing.T) {
	c, _ := newConsole(t, "")
	ctx := context.Background()

	_, ok, err := c.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.PersistCredentials(ctx, domain.Credentials{Token: "tok", HostTime: 7}))
	creds, ok, err := c.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), creds.HostTime)
}

func TestConsole_ChatJoinedOnce(t *testing.T) {
	c, out := newConsole(t, "")
	ctx := context.Background()
	chat := domain.PartialChat{StableName: "681@chat.agent", Title: "Go", Group: "Chats"}

	require.NoError(t, c.ChatJoined(ctx, chat))
	require.NoError(t, c.ChatJoined(ctx, chat))

	assert.Equal(t, 1, strings.Count(out.String(), "+ chat Go"))
	assert.NotContains(t, out.String(), "~ chat")
}

func TestConsole_Presenter(t *testing.T) {
	c, out := newConsole(t, "")
	ctx := context.Background()

	info := &domain.ChatInfo{StableName: "681@chat.agent", Title: "Go", About: "gophers"}
	roster := domain.Roster{{StableName: "1", Alias: "Ann", Flag: domain.FlagOperator}}
	require.NoError(t, c.LoadChatInfo(ctx, info, roster))
	require.NoError(t, c.DeliverMessage(ctx, domain.Message{ChatName: "681@chat.agent", AuthorDisplay: "Ann", Text: "hi", Time: time.Date(2020, 1, 1, 10, 0, 0, 0, time.Local)}))
	require.NoError(t, c.Notify(ctx, "681@chat.agent", "failed"))
	require.NoError(t, c.SetState(ctx, host.StateConnected))
	require.NoError(t, c.ReportAuthFailure(ctx, "bad token"))

	s := out.String()
	assert.Contains(t, s, "=== Go (681@chat.agent)")
	assert.Contains(t, s, "[op] Ann")
	assert.Contains(t, s, "[10:00:00] 681@chat.agent <Ann> hi")
	assert.Contains(t, s, "! 681@chat.agent: failed")
	assert.Equal(t, host.StateConnected, c.State())
	assert.Equal(t, "bad token", c.AuthFailure())
}
