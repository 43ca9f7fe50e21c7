package store

import (
	"database/sql"
	"errors"
	"time"
)

// LyricsCacheEntry is a cached lyrics lookup result; Lyrics is nil when a
// prior lookup found nothing, so repeated misses don't re-query Genius.
type LyricsCacheEntry struct {
	Artist    string
	Title     string
	Lyrics    *string
	FetchedAt time.Time
}

// LyricsRepository caches Genius lyrics lookups keyed by artist+title.
type LyricsRepository struct {
	reader *sql.DB
	writer *sql.DB
}

func NewLyricsRepository(dbPair DBPair) *LyricsRepository {
	return &LyricsRepository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

func lyricsCacheKey(artist, title string) string {
	return artist + "::" + title
}

// Get returns a cached entry, or nil if nothing has been cached yet.
func (r *LyricsRepository) Get(artist, title string) (*LyricsCacheEntry, error) {
	row := r.reader.QueryRow(`
		SELECT artist, title, lyrics, fetched_at FROM lyrics_cache WHERE cache_key = ?
	`, lyricsCacheKey(artist, title))

	var gotArtist, gotTitle, fetchedAt string
	var lyrics sql.NullString
	if err := row.Scan(&gotArtist, &gotTitle, &lyrics, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	fetchedTime, err := parseTimestamp(fetchedAt)
	if err != nil {
		return nil, err
	}

	entry := &LyricsCacheEntry{Artist: gotArtist, Title: gotTitle, FetchedAt: fetchedTime}
	if lyrics.Valid {
		entry.Lyrics = &lyrics.String
	}
	return entry, nil
}

// Put stores a lookup result, overwriting any prior entry for the same
// artist+title (lyrics may be nil to cache a confirmed miss).
func (r *LyricsRepository) Put(artist, title string, lyrics *string) error {
	_, err := r.writer.Exec(`
		INSERT INTO lyrics_cache (cache_key, artist, title, lyrics, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET lyrics = excluded.lyrics, fetched_at = excluded.fetched_at
	`, lyricsCacheKey(artist, title), artist, title, lyrics, nowISO(time.Now().UTC()))
	return err
}
