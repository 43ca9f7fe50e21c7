package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kshepherd/vibin-go/internal/model"
)

// FavoritesRepository handles CRUD for favorites. A (media_id, kind)
// pair is unique, so Add is idempotent: adding an already-favorited
// item returns the existing row rather than erroring.
type FavoritesRepository struct {
	reader *sql.DB
	writer *sql.DB
}

func NewFavoritesRepository(dbPair DBPair) *FavoritesRepository {
	return &FavoritesRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Add favorites a media id, or is a no-op if it's already favorited.
func (r *FavoritesRepository) Add(kind model.FavoriteType, mediaId model.MediaId) (*model.Favorite, error) {
	existing, err := r.get(kind, mediaId)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = r.writer.Exec(`
		INSERT INTO favorites (id, media_id, kind, created_at) VALUES (?, ?, ?, ?)
	`, id, mediaId, string(kind), nowISO(now))
	if err != nil {
		return nil, err
	}

	return &model.Favorite{Type: kind, MediaId: mediaId, WhenFavorited: now}, nil
}

// Remove un-favorites a media id; it is a no-op if not currently favorited.
func (r *FavoritesRepository) Remove(kind model.FavoriteType, mediaId model.MediaId) error {
	_, err := r.writer.Exec(`DELETE FROM favorites WHERE media_id = ? AND kind = ?`, mediaId, string(kind))
	return err
}

// List returns every favorite of the given kind, oldest first.
func (r *FavoritesRepository) List(kind model.FavoriteType) ([]model.Favorite, error) {
	rows, err := r.reader.Query(`
		SELECT media_id, kind, created_at FROM favorites WHERE kind = ? ORDER BY created_at ASC
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]model.Favorite, 0)
	for rows.Next() {
		var mediaId, kindStr, createdAt string
		if err := rows.Scan(&mediaId, &kindStr, &createdAt); err != nil {
			return nil, err
		}
		whenFavorited, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, model.Favorite{
			Type:          model.FavoriteType(kindStr),
			MediaId:       mediaId,
			WhenFavorited: whenFavorited,
		})
	}
	return favorites, rows.Err()
}

func (r *FavoritesRepository) get(kind model.FavoriteType, mediaId model.MediaId) (*model.Favorite, error) {
	row := r.reader.QueryRow(`
		SELECT media_id, kind, created_at FROM favorites WHERE media_id = ? AND kind = ?
	`, mediaId, string(kind))

	var mid, kindStr, createdAt string
	if err := row.Scan(&mid, &kindStr, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	whenFavorited, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	return &model.Favorite{Type: model.FavoriteType(kindStr), MediaId: mid, WhenFavorited: whenFavorited}, nil
}
