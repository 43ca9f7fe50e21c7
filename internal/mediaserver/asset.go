package mediaserver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/upnp/didl"
	"github.com/kshepherd/vibin-go/internal/upnp/soap"
)

// AssetAdapter browses a DIDL-Lite-serving UPnP ContentDirectory (Asset
// UPnP). Other media-server implementations are expected to produce the
// same normalized Album/Artist/Track/MediaFolder outputs.
type AssetAdapter struct {
	name       string
	deviceUDN  string
	controlURL string
	soapClient *soap.Client
	paths      RootPaths

	gate          *browseGate
	metadataCache *metadataCache

	mu        sync.RWMutex
	albums    map[model.MediaId]model.Album
	newAlbums map[model.MediaId]model.Album
	artists   map[model.MediaId]model.Artist
	tracks    map[model.MediaId]model.Track
}

// NewAssetAdapter builds an adapter for a content directory reachable at
// controlURL, whose SOAP calls go through soapClient. deviceUDN is the
// server's UPnP device UDN, which the streamer's queue/add call must
// pass through as server_udn so it knows which media server a DIDL
// resource came from.
func NewAssetAdapter(name, deviceUDN, controlURL string, soapClient *soap.Client, paths RootPaths) *AssetAdapter {
	return &AssetAdapter{
		name:          name,
		deviceUDN:     deviceUDN,
		controlURL:    controlURL,
		soapClient:    soapClient,
		paths:         paths,
		gate:          newBrowseGate(),
		metadataCache: newMetadataCache(),
	}
}

func (a *AssetAdapter) Name() string      { return a.name }
func (a *AssetAdapter) DeviceUDN() string { return a.deviceUDN }

// Children returns the direct children of parentId, split into
// browsable folders and playable tracks.
func (a *AssetAdapter) Children(ctx context.Context, parentId model.MediaId) ([]model.MediaFolder, []model.Track, error) {
	lite, err := a.browseDirectChildren(ctx, parentId)
	if err != nil {
		return nil, nil, err
	}

	folders := make([]model.MediaFolder, 0, len(lite.Containers))
	for _, c := range lite.Containers {
		folders = append(folders, model.MediaFolder{ID: c.ID, Title: c.Title, ParentId: c.ParentID})
	}

	tracks := make([]model.Track, 0, len(lite.Items))
	for _, item := range lite.Items {
		if item.IsMusicTrack() {
			tracks = append(tracks, trackFromItem(item, parentId))
		}
	}

	return folders, tracks, nil
}

// Metadata returns a single track's full metadata, cached for
// metadataTTL and swept on expiry.
func (a *AssetAdapter) Metadata(ctx context.Context, id model.MediaId) (model.Track, error) {
	if cached, ok := a.metadataCache.get(id); ok {
		return cached, nil
	}

	lite, err := a.browseMetadataLite(ctx, string(id))
	if err != nil {
		return model.Track{}, err
	}
	if len(lite.Items) == 0 {
		return model.Track{}, apperrors.NewNotFoundResource("track", id)
	}

	track := trackFromItem(lite.Items[0], "")
	a.metadataCache.put(id, track)
	return track, nil
}

// Albums returns the full album catalog, navigating RootPaths.AllAlbums
// and caching the result until ClearCaches.
func (a *AssetAdapter) Albums(ctx context.Context) ([]model.Album, error) {
	a.mu.RLock()
	if a.albums != nil {
		cached := albumValues(a.albums)
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	albums, err := a.loadAlbums(ctx, a.paths.AllAlbums)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.albums = albums
	a.mu.Unlock()

	return albumValues(albums), nil
}

// NewAlbums returns the "new albums" listing, rebinding each entry to its
// Albums() equivalent id by matching (title, creator, date, artist,
// genre); unmatched entries are kept as-is.
func (a *AssetAdapter) NewAlbums(ctx context.Context) ([]model.Album, error) {
	a.mu.RLock()
	if a.newAlbums != nil {
		cached := albumValues(a.newAlbums)
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	allAlbums, err := a.Albums(ctx)
	if err != nil {
		return nil, err
	}

	containerId, err := a.navigatePath(ctx, a.paths.NewAlbums)
	if err != nil {
		return nil, err
	}
	lite, err := a.browseDirectChildren(ctx, containerId)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]model.MediaId, len(allAlbums))
	for _, album := range allAlbums {
		byKey[albumRebindKey(album.Title, album.Artist, album.Date, album.Artist, album.Genre)] = album.ID
	}

	rebound := make(map[model.MediaId]model.Album, len(lite.Containers))
	for _, c := range lite.Containers {
		if !c.IsAlbumContainer() {
			continue
		}
		album := albumFromContainer(c)
		key := albumRebindKey(c.Title, c.Creator, c.Date, c.Artist, c.Genre)
		if existingId, ok := byKey[key]; ok {
			album.ID = existingId
		}
		rebound[album.ID] = album
	}

	a.mu.Lock()
	a.newAlbums = rebound
	a.mu.Unlock()

	return albumValues(rebound), nil
}

// Artists returns the full artist catalog, navigating RootPaths.AllArtists.
func (a *AssetAdapter) Artists(ctx context.Context) ([]model.Artist, error) {
	a.mu.RLock()
	if a.artists != nil {
		cached := artistValues(a.artists)
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	containerId, err := a.navigatePath(ctx, a.paths.AllArtists)
	if err != nil {
		return nil, err
	}
	lite, err := a.browseDirectChildren(ctx, containerId)
	if err != nil {
		return nil, err
	}

	artists := make(map[model.MediaId]model.Artist, len(lite.Containers))
	for _, c := range lite.Containers {
		artists[c.ID] = model.Artist{ID: c.ID, Name: c.Title}
	}

	a.mu.Lock()
	a.artists = artists
	a.mu.Unlock()

	return artistValues(artists), nil
}

// Tracks derives the full track catalog by iterating every album's
// children, so each track's AlbumId is correctly set.
func (a *AssetAdapter) Tracks(ctx context.Context) ([]model.Track, error) {
	a.mu.RLock()
	if a.tracks != nil {
		cached := trackValues(a.tracks)
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	albums, err := a.Albums(ctx)
	if err != nil {
		return nil, err
	}

	tracks := make(map[model.MediaId]model.Track)
	for _, album := range albums {
		_, albumTracks, err := a.Children(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		for _, track := range albumTracks {
			track.AlbumId = album.ID
			tracks[track.ID] = track
		}
	}

	a.mu.Lock()
	a.tracks = tracks
	a.mu.Unlock()

	return trackValues(tracks), nil
}

// ClearCaches drops every per-collection cache; the next call to Albums,
// NewAlbums, Artists or Tracks reloads from the device.
func (a *AssetAdapter) ClearCaches() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.albums = nil
	a.newAlbums = nil
	a.artists = nil
	a.tracks = nil
}

func (a *AssetAdapter) loadAlbums(ctx context.Context, path string) (map[model.MediaId]model.Album, error) {
	containerId, err := a.navigatePath(ctx, path)
	if err != nil {
		return nil, err
	}
	lite, err := a.browseDirectChildren(ctx, containerId)
	if err != nil {
		return nil, err
	}

	albums := make(map[model.MediaId]model.Album, len(lite.Containers))
	for _, c := range lite.Containers {
		if !c.IsAlbumContainer() {
			continue
		}
		albums[c.ID] = albumFromContainer(c)
	}
	return albums, nil
}

func albumFromContainer(c didl.Container) model.Album {
	artist := c.Artist
	if artist == "" {
		artist = c.Creator
	}
	return model.Album{
		ID:     c.ID,
		Title:  c.Title,
		Artist: artist,
		Date:   c.Date,
		Genre:  c.Genre,
		ArtURL: c.AlbumArtURI,
	}
}

func trackFromItem(item didl.Item, albumId model.MediaId) model.Track {
	return model.Track{
		ID:                  item.ID,
		Title:               item.Title,
		Artist:              item.PrimaryArtist(),
		AlbumId:             albumId,
		OriginalTrackNumber: atoiOrZero(item.Duration),
	}
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func albumRebindKey(title, creatorOrArtist, date, artist, genre string) string {
	return strings.ToLower(title) + "|" + strings.ToLower(creatorOrArtist) + "|" + date + "|" + strings.ToLower(artist) + "|" + strings.ToLower(genre)
}

func albumValues(m map[model.MediaId]model.Album) []model.Album {
	out := make([]model.Album, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func artistValues(m map[model.MediaId]model.Artist) []model.Artist {
	out := make([]model.Artist, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func trackValues(m map[model.MediaId]model.Track) []model.Track {
	out := make([]model.Track, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// DIDLForTrack fetches a track's full DIDL-Lite metadata item (for
// handing to the streamer when queueing by media id) and its preferred
// audio resource URI.
func (a *AssetAdapter) DIDLForTrack(ctx context.Context, trackId model.MediaId) (string, string, error) {
	lite, err := a.browseMetadataLite(ctx, string(trackId))
	if err != nil {
		return "", "", err
	}
	if len(lite.Items) == 0 {
		return "", "", apperrors.NewNotFoundResource("track", trackId)
	}

	item := lite.Items[0]
	resource, ok := item.AudioResource()
	if !ok {
		return "", "", apperrors.NewMediaServerError("track has no playable resource", map[string]any{"id": trackId})
	}

	return didl.EncodeTrackItem(item.ID, item.ParentID, item.Title, item.PrimaryArtist(), item.Album, item.AlbumArtURI, resource.URI, resource.ProtocolInfo), resource.URI, nil
}

// DIDLForAlbum fetches an album's metadata item and its container URI,
// used for PLAY_FROM_HERE queueing.
func (a *AssetAdapter) DIDLForAlbum(ctx context.Context, albumId model.MediaId) (string, string, error) {
	lite, err := a.browseMetadataLite(ctx, string(albumId))
	if err != nil {
		return "", "", err
	}
	if len(lite.Containers) == 0 {
		return "", "", apperrors.NewNotFoundResource("album", albumId)
	}

	c := lite.Containers[0]
	resourceURI := fmt.Sprintf("%s?ObjectID=%s", a.controlURL, url.QueryEscape(c.ID))
	return didl.EncodeTrackItem(c.ID, c.ParentID, c.Title, c.Artist, c.Title, c.AlbumArtURI, resourceURI, ""), resourceURI, nil
}

// FindTrackMediaId looks up a track by title and artist (case-insensitive)
// against the cached track catalog, loading it if necessary; album and
// trackNumber are not compared.
func (a *AssetAdapter) FindTrackMediaId(ctx context.Context, album, artist, title string, trackNumber int) (model.MediaId, bool) {
	tracks, err := a.Tracks(ctx)
	if err != nil {
		return "", false
	}
	for _, t := range tracks {
		if strings.EqualFold(t.Title, title) && strings.EqualFold(t.Artist, artist) {
			return t.ID, true
		}
	}
	return "", false
}

// FindAlbumMediaId looks up an album by (album, artist) against the
// cached album catalog, loading it if necessary.
func (a *AssetAdapter) FindAlbumMediaId(ctx context.Context, album, artist string) (model.MediaId, bool) {
	albums, err := a.Albums(ctx)
	if err != nil {
		return "", false
	}
	for _, al := range albums {
		if strings.EqualFold(al.Title, album) && strings.EqualFold(al.Artist, artist) {
			return al.ID, true
		}
	}
	return "", false
}

var _ Adapter = (*AssetAdapter)(nil)
