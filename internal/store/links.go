package store

import (
	"database/sql"
	"errors"
	"time"
)

// LinksCacheEntry caches the resolved Discogs/Genius page URLs for an
// artist (or artist+album); either URL may be empty when that source
// had nothing for this entry.
type LinksCacheEntry struct {
	Artist     string
	Album      string
	DiscogsURL string
	GeniusURL  string
	FetchedAt  time.Time
}

// LinksRepository caches Discogs/Genius external link lookups.
type LinksRepository struct {
	reader *sql.DB
	writer *sql.DB
}

func NewLinksRepository(dbPair DBPair) *LinksRepository {
	return &LinksRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

func linksCacheKey(artist, album string) string {
	return artist + "::" + album
}

// Get returns a cached entry, or nil if nothing has been cached yet.
func (r *LinksRepository) Get(artist, album string) (*LinksCacheEntry, error) {
	row := r.reader.QueryRow(`
		SELECT artist, album, discogs_url, genius_url, fetched_at FROM links_cache WHERE cache_key = ?
	`, linksCacheKey(artist, album))

	var gotArtist, fetchedAt string
	var gotAlbum, discogsURL, geniusURL sql.NullString
	if err := row.Scan(&gotArtist, &gotAlbum, &discogsURL, &geniusURL, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	fetchedTime, err := parseTimestamp(fetchedAt)
	if err != nil {
		return nil, err
	}

	return &LinksCacheEntry{
		Artist:     gotArtist,
		Album:      gotAlbum.String,
		DiscogsURL: discogsURL.String,
		GeniusURL:  geniusURL.String,
		FetchedAt:  fetchedTime,
	}, nil
}

// Put stores a lookup result, overwriting any prior entry for the same
// artist+album.
func (r *LinksRepository) Put(artist, album, discogsURL, geniusURL string) error {
	_, err := r.writer.Exec(`
		INSERT INTO links_cache (cache_key, artist, album, discogs_url, genius_url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET discogs_url = excluded.discogs_url, genius_url = excluded.genius_url, fetched_at = excluded.fetched_at
	`, linksCacheKey(artist, album), artist, album, discogsURL, geniusURL, nowISO(time.Now().UTC()))
	return err
}
