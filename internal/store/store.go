// Package store persists settings, favorites, stored playlists, and the
// lyrics/links lookup caches in the engine's sqlite database. Every
// write goes through the single writer connection; reads use the
// read-only pool, matching the teacher's reader/writer repository split.
package store

import "database/sql"

// DBPair is the subset of db.DBPair the store repositories need,
// declared locally so they can be constructed against a fake in tests
// without importing internal/db.
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}
