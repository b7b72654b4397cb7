package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
)

// BlistChange reports what Ensure changed
type BlistChange struct {
	Created      bool
	AliasChanged bool
	GroupChanged bool
}

// Changed reports whether anything was written
func (c BlistChange) Changed() bool {
	return c.Created || c.AliasChanged || c.GroupChanged
}

// Blist keeps one chat entry per stable name in the buddy list
type Blist struct {
	mu      sync.Mutex
	repo    repo.BlistRepo
	account string
}

// NewBlist creates the buddy list of an account
func NewBlist(r repo.BlistRepo, account string) *Blist {
	return &Blist{repo: r, account: account}
}

// Ensure creates the chat entry or updates it.
// Alias and group are only written when they differ; an empty group keeps the stored one.
func (b *Blist) Ensure(ctx context.Context, chat domain.PartialChat) (BlistChange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var change BlistChange
	existing, err := b.repo.FindChat(ctx, b.account, chat.StableName)
	if err != nil {
		return change, fmt.Errorf("failed to find chat: %w", err)
	}

	entry := domain.ChatEntry{StableName: chat.StableName, Alias: chat.Title, Group: chat.Group}
	if existing == nil {
		change.Created = true
	} else {
		if chat.Group == "" {
			entry.Group = existing.Group
		}
		change.AliasChanged = existing.Alias != entry.Alias
		change.GroupChanged = existing.Group != entry.Group
	}

	if !change.Changed() {
		return change, nil
	}
	if err := b.repo.SaveChat(ctx, b.account, entry); err != nil {
		return change, fmt.Errorf("failed to save chat: %w", err)
	}
	return change, nil
}

// Chats lists the chat entries
func (b *Blist) Chats(ctx context.Context) ([]domain.ChatEntry, error) {
	return b.repo.ListChats(ctx, b.account)
}
