package repo

import (
	"context"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// SettingsRepo is the settings repository interface
// Responsible for registration credentials persistence (SQLite)
type SettingsRepo interface {
	// LoadCredentials gets the credentials of an account, ok is false if none are stored
	LoadCredentials(ctx context.Context, account string) (creds domain.Credentials, ok bool, err error)

	// SaveCredentials replaces the credentials of an account
	SaveCredentials(ctx context.Context, account string, creds domain.Credentials) error

	// ClearCredentials deletes the credentials of an account
	ClearCredentials(ctx context.Context, account string) error
}
