package repo

import (
	"context"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// BlistRepo is the buddy list repository interface
// Responsible for chat entry persistence (SQLite)
type BlistRepo interface {
	// FindChat gets a chat entry by stable name, returns nil if absent
	FindChat(ctx context.Context, account, stableName string) (*domain.ChatEntry, error)

	// SaveChat creates or updates a chat entry
	SaveChat(ctx context.Context, account string, entry domain.ChatEntry) error

	// ListChats lists the chat entries of an account
	ListChats(ctx context.Context, account string) ([]domain.ChatEntry, error)
}
