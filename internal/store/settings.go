package store

import (
	"database/sql"
	"errors"
	"time"
)

// SettingsRepository is a small persisted key/value store for
// administrator-editable runtime settings (the /vibin settings and db
// JSON blobs).
type SettingsRepository struct {
	reader *sql.DB
	writer *sql.DB
}

func NewSettingsRepository(dbPair DBPair) *SettingsRepository {
	return &SettingsRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Get returns a setting's value, and whether it was set at all.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.reader.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set upserts a setting's value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.writer.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, nowISO(time.Now().UTC()))
	return err
}
