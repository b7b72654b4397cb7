package data

import (
	"database/sql"

	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/infra/icq"
)

// Repositories contains all repositories
type Repositories struct {
	ICQ      repo.ICQRepo
	Settings repo.SettingsRepo
	Blist    repo.BlistRepo

	db *sql.DB
}

// NewRepositories creates all repositories
func NewRepositories(client *icq.Client, dbPath string) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	settingsRepo, err := NewSettingsRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Buddy list shares the settings database
	blistRepo, err := NewBlistRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		ICQ:      NewICQRepo(client),
		Settings: settingsRepo,
		Blist:    blistRepo,
		db:       db,
	}, nil
}

// Close closes the database
func (r *Repositories) Close() error {
	return r.db.Close()
}
