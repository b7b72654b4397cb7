package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
)

// blistRepo implements the buddy list repository
type blistRepo struct {
	db *sql.DB
}

// NewBlistRepo creates a new buddy list repository
func NewBlistRepo(db *sql.DB) (repo.BlistRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			account TEXT NOT NULL,
			stable_name TEXT NOT NULL,
			alias TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (account, stable_name)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &blistRepo{db: db}, nil
}

// FindChat gets a chat entry by stable name
func (r *blistRepo) FindChat(ctx context.Context, account, stableName string) (*domain.ChatEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT stable_name, alias, group_name FROM chats WHERE account = ? AND stable_name = ?
	`, account, stableName)

	var entry domain.ChatEntry
	err := row.Scan(&entry.StableName, &entry.Alias, &entry.Group)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}
	return &entry, nil
}

// SaveChat creates or updates a chat entry
func (r *blistRepo) SaveChat(ctx context.Context, account string, entry domain.ChatEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chats (account, stable_name, alias, group_name, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account, stable_name) DO UPDATE SET
			alias = excluded.alias,
			group_name = excluded.group_name,
			updated_at = excluded.updated_at
	`, account, entry.StableName, entry.Alias, entry.Group, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// ListChats lists the chat entries of an account
func (r *blistRepo) ListChats(ctx context.Context, account string) ([]domain.ChatEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stable_name, alias, group_name FROM chats WHERE account = ? ORDER BY stable_name
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var entries []domain.ChatEntry
	for rows.Next() {
		var entry domain.ChatEntry
		if err := rows.Scan(&entry.StableName, &entry.Alias, &entry.Group); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
