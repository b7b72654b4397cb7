package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/conf"
	"github.com/flared/icq-bridge/internal/data"
	"github.com/flared/icq-bridge/internal/host/console"
	"github.com/flared/icq-bridge/internal/infra/icq"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeICQ serves one batch of events, then empty polls
func fakeICQ(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wim/aim/startSession":
			assert.Equal(t, "tok", r.URL.Query().Get("a"))
			_, _ = io.WriteString(w, `{"response":{"statusCode":200,"data":{"aimsid":"sid","myInfo":{"aimId":"100"},"fetchBaseURL":"`+srv.URL+`/fetch/1"}}}`)

		case r.URL.Path == "/fetch/1":
			_, _ = io.WriteString(w, `{"response":{"statusCode":200,"data":{"fetchBaseURL":"`+srv.URL+`/fetch/2","events":[
				{"type":"myInfo","seqNum":1,"eventData":{"aimId":"100","friendly":"Me"}},
				{"type":"histDlgState","seqNum":2,"eventData":{"sn":"200","persons":[{"sn":"200","friendly":"Ann"}],"messages":[
					{"msgId":"7","time":1600000007,"text":"hi there"},
					{"msgId":"5","time":1600000005,"text":"look https://files.icq.net/get/f1"}
				]}},
				{"type":"typing","eventData":{"aimId":"200"}}
			]}}}`)

		case r.URL.Path == "/fetch/2":
			time.Sleep(10 * time.Millisecond)
			_, _ = io.WriteString(w, `{"response":{"statusCode":200,"data":{"fetchBaseURL":"`+srv.URL+`/fetch/2","events":[]}}}`)

		case strings.HasPrefix(r.URL.Path, "/files/info/"):
			_, _ = io.WriteString(w, `{"status":200,"result":{"info":{"file_size":2048,"file_name":"a.png","dlink":"https://dl/a.png","mime":"image/png"}}}`)

		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestICQServer_EndToEnd(t *testing.T) {
	srv := fakeICQ(t)
	ctx := context.Background()

	db, err := data.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	settings, err := data.NewSettingsRepo(db)
	require.NoError(t, err)
	blist, err := data.NewBlistRepo(db)
	require.NoError(t, err)
	require.NoError(t, settings.SaveCredentials(ctx, "+15550100", domain.Credentials{Token: "tok", HostTime: 1}))

	out := &syncBuffer{}
	h := console.New("+15550100", out, nil, settings, blist)

	cfg := &conf.Config{
		ICQ:  conf.ICQConfig{Phone: "+15550100"},
		Poll: conf.PollConfig{Timeout: time.Second, RetryDelay: 10 * time.Millisecond, DisconnectedDelay: 10 * time.Millisecond},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := icq.NewClient(icq.WithBaseURL(srv.URL), icq.WithHTTPClient(srv.Client()), icq.WithLogger(logger))

	s := NewICQServer(cfg, data.NewICQRepo(client), h, nil, logger)
	require.NoError(t, s.Start(ctx))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `<a href="https://dl/a.png">a.png</a> [png 2kb]`)
	}, 5*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	text := out.String()
	assert.Contains(t, text, "* connected")
	assert.Contains(t, text, "+ chat Ann (200)")
	assert.Contains(t, text, "<Ann> hi there")
	assert.Equal(t, 1, strings.Count(text, "*** Ann joined"))

	chats, err := blist.ListChats(ctx, "+15550100")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "200", chats[0].StableName)
}

func TestICQServer_LoginFailureReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"statusCode":401,"statusText":"Authentication Required"}}`)
	}))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	db, err := data.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	settings, err := data.NewSettingsRepo(db)
	require.NoError(t, err)
	blist, err := data.NewBlistRepo(db)
	require.NoError(t, err)
	require.NoError(t, settings.SaveCredentials(ctx, "+1", domain.Credentials{Token: "expired"}))

	h := console.New("+1", io.Discard, nil, settings, blist)
	cfg := &conf.Config{ICQ: conf.ICQConfig{Phone: "+1"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := icq.NewClient(icq.WithBaseURL(srv.URL), icq.WithHTTPClient(srv.Client()))

	s := NewICQServer(cfg, data.NewICQRepo(client), h, nil, logger)
	err = s.Start(ctx)
	require.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, "Failed to start session", h.AuthFailure())
	require.NoError(t, s.Stop(ctx))
}
