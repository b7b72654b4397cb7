package data

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
)

// settingsRepo implements the Settings repository
type settingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new Settings repository
func NewSettingsRepo(db *sql.DB) (repo.SettingsRepo, error) {
	// Create table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			account TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (account, key)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &settingsRepo{db: db}, nil
}

// LoadCredentials gets the persisted credentials of an account
func (r *settingsRepo) LoadCredentials(ctx context.Context, account string) (domain.Credentials, bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE account = ?`, account)
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var creds domain.Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Credentials{}, false, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case domain.SettingToken:
			creds.Token = value
		case domain.SettingSessionID:
			creds.SessionID = value
		case domain.SettingSessionKey:
			creds.SessionKey = value
		case domain.SettingHostTime:
			hostTime, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return domain.Credentials{}, false, fmt.Errorf("invalid %s setting: %w", key, err)
			}
			creds.HostTime = uint32(hostTime)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Credentials{}, false, fmt.Errorf("failed to iterate settings: %w", err)
	}

	if creds.IsZero() {
		return domain.Credentials{}, false, nil
	}
	return creds, true, nil
}

// SaveCredentials replaces all credentials of an account in one transaction
func (r *settingsRepo) SaveCredentials(ctx context.Context, account string, creds domain.Credentials) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE account = ?`, account); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}

	now := time.Now().Unix()
	values := map[string]string{
		domain.SettingToken:      creds.Token,
		domain.SettingSessionID:  creds.SessionID,
		domain.SettingSessionKey: creds.SessionKey,
		domain.SettingHostTime:   strconv.FormatUint(uint64(creds.HostTime), 10),
	}
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (account, key, value, updated_at) VALUES (?, ?, ?, ?)
		`, account, key, value, now)
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// ClearCredentials deletes the credentials of an account
func (r *settingsRepo) ClearCredentials(ctx context.Context, account string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE account = ?`, account)
	if err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}
