package db

// schemaSQL is applied on every startup; every statement is idempotent so
// it is safe to run against an already-initialized database.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stored_playlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	entry_ids_json TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 0,
	sync_status TEXT NOT NULL DEFAULT 'synced',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
	id TEXT PRIMARY KEY,
	media_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(media_id, kind)
);

CREATE TABLE IF NOT EXISTS lyrics_cache (
	cache_key TEXT PRIMARY KEY,
	artist TEXT NOT NULL,
	title TEXT NOT NULL,
	lyrics TEXT,
	fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS links_cache (
	cache_key TEXT PRIMARY KEY,
	artist TEXT NOT NULL,
	album TEXT,
	discogs_url TEXT,
	genius_url TEXT,
	fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_favorites_kind ON favorites(kind);
CREATE INDEX IF NOT EXISTS idx_stored_playlists_is_active ON stored_playlists(is_active) WHERE is_active = 1;
`
