package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/infra/icq"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewRepositories(icq.NewClient(), filepath.Join(t.TempDir(), "nested", "icq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestSettingsRepo_RoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, ok, err := repos.Settings.LoadCredentials(ctx, "+1")
	require.NoError(t, err)
	assert.False(t, ok)

	creds := domain.Credentials{Token: "tok", SessionKey: "key", SessionID: "sid", HostTime: 1_600_000_000}
	require.NoError(t, repos.Settings.SaveCredentials(ctx, "+1", creds))

	got, ok, err := repos.Settings.LoadCredentials(ctx, "+1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, creds, got)

	_, ok, err = repos.Settings.LoadCredentials(ctx, "+2")
	require.NoError(t, err)
	assert.False(t, ok, "credentials are per account")
}

func TestSettingsRepo_ReplacedWholesale(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Settings.SaveCredentials(ctx, "+1", domain.Credentials{Token: "old", SessionKey: "k1", HostTime: 1}))
	require.NoError(t, repos.Settings.SaveCredentials(ctx, "+1", domain.Credentials{Token: "new", HostTime: 2}))

	got, ok, err := repos.Settings.LoadCredentials(ctx, "+1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Credentials{Token: "new", HostTime: 2}, got)

	require.NoError(t, repos.Settings.ClearCredentials(ctx, "+1"))
	_, ok, err = repos.Settings.LoadCredentials(ctx, "+1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlistRepo_SaveAndFind(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	entry, err := repos.Blist.FindChat(ctx, "+1", "681@chat.agent")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, repos.Blist.SaveChat(ctx, "+1", domain.ChatEntry{StableName: "681@chat.agent", Alias: "Go", Group: "Chats"}))
	require.NoError(t, repos.Blist.SaveChat(ctx, "+1", domain.ChatEntry{StableName: "681@chat.agent", Alias: "Golang", Group: "Chats"}))
	require.NoError(t, repos.Blist.SaveChat(ctx, "+1", domain.ChatEntry{StableName: "170@chat.agent", Alias: "Rust"}))

	entry, err = repos.Blist.FindChat(ctx, "+1", "681@chat.agent")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Golang", entry.Alias)

	entries, err := repos.Blist.ListChats(ctx, "+1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "170@chat.agent", entries[0].StableName)
	assert.Equal(t, "", entries[0].Group)
}
