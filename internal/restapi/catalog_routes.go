package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
)

// RegisterCatalogRoutes wires /albums/*, /artists/*, /tracks/* and
// /browse/*, grounded on original_source/vibin/server/routers/
// {albums,artists,tracks,browse}.py.
func RegisterCatalogRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodGet, "/albums", api.Handler(deps.albumsList))
	router.Method(http.MethodGet, "/albums/new", api.Handler(deps.albumsNew))
	router.Method(http.MethodGet, "/albums/{id}", api.Handler(deps.albumByID))
	router.Method(http.MethodGet, "/albums/{id}/tracks", api.Handler(deps.albumTracks))
	router.Method(http.MethodGet, "/albums/{id}/links", api.Handler(deps.albumLinks))

	router.Method(http.MethodGet, "/artists", api.Handler(deps.artistsList))
	router.Method(http.MethodGet, "/artists/{id}", api.Handler(deps.artistByID))

	router.Method(http.MethodGet, "/tracks", api.Handler(deps.tracksList))
	router.Method(http.MethodGet, "/tracks/{id}", api.Handler(deps.trackByID))
	router.Method(http.MethodGet, "/tracks/{id}/lyrics", api.Handler(deps.trackLyrics))
	router.Method(http.MethodGet, "/tracks/{id}/links", api.Handler(deps.trackLinks))
	router.Method(http.MethodGet, "/tracks/{id}/waveform.png", api.Handler(deps.trackWaveformPNG))
	router.Method(http.MethodGet, "/tracks/{id}/waveform", api.Handler(deps.trackWaveform))
	router.Method(http.MethodGet, "/tracks/{id}/rms", api.Handler(deps.trackRMS))
	// Not in spec.md's table but present in tracks.py: lyrics/links keyed
	// by artist+title/album directly, for clients that haven't resolved a
	// media id yet.
	router.Method(http.MethodGet, "/tracks/lyrics", api.Handler(deps.tracksLyricsByName))
	router.Method(http.MethodGet, "/tracks/links", api.Handler(deps.tracksLinksByName))

	router.Method(http.MethodGet, "/browse/children/{parentId}", api.Handler(deps.browseChildren))
	router.Method(http.MethodGet, "/browse/metadata/{id}", api.Handler(deps.browseMetadata))
}

func (d *Dependencies) albumsList(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	albums, err := d.MediaServer.Albums(r.Context())
	if err != nil {
		return err
	}
	api.WriteList(w, albums, len(albums))
	return nil
}

func (d *Dependencies) albumsNew(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	albums, err := d.MediaServer.NewAlbums(r.Context())
	if err != nil {
		return err
	}
	api.WriteList(w, albums, len(albums))
	return nil
}

// findAlbum linear-searches the full album list, since mediaserver.Adapter
// has no single-album lookup (Asset UPnP's ContentDirectory browses by
// folder, not by flat album id) — the same technique hub.hydrateFavorite
// uses.
func (d *Dependencies) findAlbum(r *http.Request, id model.MediaId) (*model.Album, error) {
	albums, err := d.MediaServer.Albums(r.Context())
	if err != nil {
		return nil, err
	}
	for _, album := range albums {
		if album.ID == id {
			return &album, nil
		}
	}
	return nil, nil
}

func (d *Dependencies) albumByID(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	album, err := d.findAlbum(r, id)
	if err != nil {
		return err
	}
	if album == nil {
		return apperrors.NewNotFoundResource("album", id)
	}
	api.WriteResource(w, album)
	return nil
}

func (d *Dependencies) albumTracks(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	tracks, err := d.MediaServer.Tracks(r.Context())
	if err != nil {
		return err
	}
	matched := make([]model.Track, 0)
	for _, track := range tracks {
		if track.AlbumId == id {
			matched = append(matched, track)
		}
	}
	api.WriteList(w, matched, len(matched))
	return nil
}

func (d *Dependencies) artistsList(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	artists, err := d.MediaServer.Artists(r.Context())
	if err != nil {
		return err
	}
	api.WriteList(w, artists, len(artists))
	return nil
}

func (d *Dependencies) artistByID(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	artists, err := d.MediaServer.Artists(r.Context())
	if err != nil {
		return err
	}
	for _, artist := range artists {
		if artist.ID == id {
			api.WriteResource(w, artist)
			return nil
		}
	}
	return apperrors.NewNotFoundResource("artist", id)
}

func (d *Dependencies) tracksList(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	tracks, err := d.MediaServer.Tracks(r.Context())
	if err != nil {
		return err
	}
	api.WriteList(w, tracks, len(tracks))
	return nil
}

func (d *Dependencies) trackByID(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	track, err := d.MediaServer.Metadata(r.Context(), id)
	if err != nil {
		return err
	}
	api.WriteResource(w, track)
	return nil
}

func (d *Dependencies) browseChildren(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	parentId := chi.URLParam(r, "parentId")
	folders, tracks, err := d.MediaServer.Children(r.Context(), parentId)
	if err != nil {
		return err
	}
	api.WriteResource(w, map[string]any{"folders": folders, "tracks": tracks})
	return nil
}

// browseMetadata returns DIDL-Lite metadata for id. browse.py parses
// this into a nested dict with xmltodict for its JSON response; Go has
// no equivalent arbitrary-XML-to-map decoder in the example pack, so
// this returns the single-track DIDL-Lite document DIDLForTrack
// re-encodes. An id that is not a track yields NotFound.
func (d *Dependencies) browseMetadata(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	id := chi.URLParam(r, "id")
	didlXML, _, err := d.MediaServer.DIDLForTrack(r.Context(), id)
	if err != nil {
		return err
	}
	api.WriteResource(w, map[string]any{"metadata": didlXML})
	return nil
}
