// Package mediaserver browses a hierarchical UPnP ContentDirectory
// (concretely, Asset UPnP), caching the resulting Album/Artist/Track
// catalog and answering by-id lookups for the streamer and reconciler.
package mediaserver

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
)

// RootPaths names the three navigation hints Config provides: each a
// slash-separated sequence of container titles, resolved by repeated
// BrowseDirectChildren calls and title matching at each level.
type RootPaths struct {
	AllAlbums  string
	NewAlbums  string
	AllArtists string
}

// Adapter is the normalized media-server contract.
type Adapter interface {
	Name() string
	DeviceUDN() string

	Children(ctx context.Context, parentId model.MediaId) ([]model.MediaFolder, []model.Track, error)
	Metadata(ctx context.Context, id model.MediaId) (model.Track, error)

	Albums(ctx context.Context) ([]model.Album, error)
	NewAlbums(ctx context.Context) ([]model.Album, error)
	Artists(ctx context.Context) ([]model.Artist, error)
	Tracks(ctx context.Context) ([]model.Track, error)
	ClearCaches()

	IdsFromFilename(stem string) FilenameIds

	DIDLForTrack(ctx context.Context, trackId model.MediaId) (didlXML string, resourceURI string, err error)
	DIDLForAlbum(ctx context.Context, albumId model.MediaId) (didlXML string, resourceURI string, err error)
	FindTrackMediaId(ctx context.Context, album, artist, title string, trackNumber int) (model.MediaId, bool)
	FindAlbumMediaId(ctx context.Context, album, artist string) (model.MediaId, bool)
}

// FilenameIds is the result of classifying idsFromFilename's extracted
// tokens against the known id sets.
type FilenameIds struct {
	AlbumId  model.MediaId
	ArtistId model.MediaId
	TrackId  model.MediaId
}
