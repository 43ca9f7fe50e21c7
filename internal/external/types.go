// Package external wraps the optional third-party metadata services:
// Discogs and Genius for artist/album/track links, Genius for lyrics,
// and a local audiowaveform child process for track waveforms. The
// Discogs and Genius clients are env-var-gated — a caller with no access
// token simply does not register the corresponding service, per spec.md
// §6. The waveform generator is always built; when the audiowaveform
// binary is missing from PATH each call returns a MissingDependencyError.
package external

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
)

// LinkType is the closed {Artist, Album, Track, All} link-request
// vocabulary.
type LinkType string

const (
	LinkTypeArtist LinkType = "Artist"
	LinkTypeAlbum  LinkType = "Album"
	LinkTypeTrack  LinkType = "Track"
	LinkTypeAll    LinkType = "All"
)

// LinksProvider resolves artist/album/track metadata into external page
// links. Discogs never returns Track links (it has no track-specific
// page); Genius returns all three.
type LinksProvider interface {
	Name() string
	Links(ctx context.Context, artist, album, track string, linkType LinkType) ([]model.ExternalLink, error)
}

// LyricsProvider resolves a track's lyrics, chunked by section.
type LyricsProvider interface {
	Lyrics(ctx context.Context, artist, track string) ([]model.LyricsChunk, error)
}

func wantsType(requested, candidate LinkType) bool {
	return requested == LinkTypeAll || requested == candidate
}
