package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kshepherd/vibin-go/internal/model"
)

// PlaylistsRepository handles CRUD for stored_playlists.
type PlaylistsRepository struct {
	reader *sql.DB
	writer *sql.DB
}

func NewPlaylistsRepository(dbPair DBPair) *PlaylistsRepository {
	return &PlaylistsRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Create inserts a new playlist with a fresh UUID, returning it.
func (r *PlaylistsRepository) Create(name string, entryIds []model.MediaId) (*model.StoredPlaylist, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	entryIdsJSON, err := json.Marshal(entryIds)
	if err != nil {
		return nil, err
	}

	_, err = r.writer.Exec(`
		INSERT INTO stored_playlists (id, name, entry_ids_json, is_active, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, 0, 'synced', ?, ?)
	`, id, name, string(entryIdsJSON), nowISO(now), nowISO(now))
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

// GetByID retrieves a playlist by id, or nil if not found.
func (r *PlaylistsRepository) GetByID(id model.PlaylistId) (*model.StoredPlaylist, error) {
	row := r.reader.QueryRow(`
		SELECT id, name, entry_ids_json, created_at, updated_at
		FROM stored_playlists
		WHERE id = ?
	`, id)

	return r.scanRow(row)
}

// List returns every stored playlist, most recently updated first.
func (r *PlaylistsRepository) List() ([]model.StoredPlaylist, error) {
	rows, err := r.reader.Query(`
		SELECT id, name, entry_ids_json, created_at, updated_at
		FROM stored_playlists
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	playlists := make([]model.StoredPlaylist, 0)
	for rows.Next() {
		var id, name, entryIdsJSON, createdAt, updatedAt string
		if err := rows.Scan(&id, &name, &entryIdsJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		playlist, err := parsePlaylist(id, name, entryIdsJSON, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}
	return playlists, rows.Err()
}

// UpdateEntries replaces a playlist's entryIds and bumps updated_at —
// the storeActiveAsPlaylist(replace=true) path.
func (r *PlaylistsRepository) UpdateEntries(id model.PlaylistId, entryIds []model.MediaId) (*model.StoredPlaylist, error) {
	entryIdsJSON, err := json.Marshal(entryIds)
	if err != nil {
		return nil, err
	}

	result, err := r.writer.Exec(`
		UPDATE stored_playlists SET entry_ids_json = ?, updated_at = ? WHERE id = ?
	`, string(entryIdsJSON), nowISO(time.Now().UTC()), id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, nil
	}
	return r.GetByID(id)
}

// UpdateMetadata renames a playlist.
func (r *PlaylistsRepository) UpdateMetadata(id model.PlaylistId, name string) (*model.StoredPlaylist, error) {
	result, err := r.writer.Exec(`
		UPDATE stored_playlists SET name = ?, updated_at = ? WHERE id = ?
	`, name, nowISO(time.Now().UTC()), id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, nil
	}
	return r.GetByID(id)
}

// Delete removes a playlist, returning sql.ErrNoRows if it did not exist.
func (r *PlaylistsRepository) Delete(id model.PlaylistId) error {
	result, err := r.writer.Exec(`DELETE FROM stored_playlists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func parsePlaylist(id, name, entryIdsJSON, createdAt, updatedAt string) (*model.StoredPlaylist, error) {
	var entryIds []model.MediaId
	if err := json.Unmarshal([]byte(entryIdsJSON), &entryIds); err != nil {
		return nil, err
	}

	created, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &model.StoredPlaylist{
		ID:       id,
		Name:     name,
		Created:  created,
		Updated:  updated,
		EntryIds: entryIds,
	}, nil
}

func (r *PlaylistsRepository) scanRow(row *sql.Row) (*model.StoredPlaylist, error) {
	var id, name, entryIdsJSON, createdAt, updatedAt string
	if err := row.Scan(&id, &name, &entryIdsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return parsePlaylist(id, name, entryIdsJSON, createdAt, updatedAt)
}

func nowISO(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
