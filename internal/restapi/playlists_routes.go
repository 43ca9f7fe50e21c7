package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
)

// RegisterPlaylistsRoutes wires /playlists/*, grounded on
// original_source/vibin/server/routers/stored_playlists.py. Reads go
// straight to the PlaylistsRepository; anything that touches the live
// queue or reconciliation status goes through the Reconciler instead.
func RegisterPlaylistsRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodGet, "/playlists", api.Handler(deps.playlistsList))
	router.Method(http.MethodGet, "/playlists/{playlistId}", api.Handler(deps.playlistByID))
	router.Method(http.MethodPut, "/playlists/{playlistId}", api.Handler(deps.playlistUpdate))
	router.Method(http.MethodDelete, "/playlists/{playlistId}", api.Handler(deps.playlistDelete))
	router.Method(http.MethodPost, "/playlists/{playlistId}/make_current", api.Handler(deps.playlistMakeCurrent))
	router.Method(http.MethodPost, "/playlists/current/store", api.Handler(deps.playlistStoreCurrent))
}

func (d *Dependencies) playlistsList(w http.ResponseWriter, r *http.Request) error {
	playlists, err := d.Playlists.List()
	if err != nil {
		return err
	}
	api.WriteList(w, playlists, len(playlists))
	return nil
}

func (d *Dependencies) playlistByID(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "playlistId")
	playlist, err := d.Playlists.GetByID(id)
	if err != nil {
		return err
	}
	if playlist == nil {
		return apperrors.NewNotFoundResource("playlist", id)
	}
	api.WriteResource(w, playlist)
	return nil
}

func (d *Dependencies) playlistUpdate(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "playlistId")
	name := r.URL.Query().Get("name")
	if name == "" {
		return apperrors.NewInputError("missing name", nil)
	}
	playlist, err := d.Reconciler.UpdateMetadata(id, name)
	if err != nil {
		return err
	}
	if playlist == nil {
		return apperrors.NewNotFoundResource("playlist", id)
	}
	api.WriteResource(w, playlist)
	return nil
}

func (d *Dependencies) playlistDelete(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "playlistId")
	if err := d.Reconciler.Delete(id); err != nil {
		return err
	}
	api.WriteNoContent(w)
	return nil
}

// playlistMakeCurrent activates a stored playlist against the live
// queue, matching set_current_playlist's device-error-aware behavior —
// the streamer adapter reports a device failure as an apperrors
// DeviceError, which Reconciler.Activate passes through and
// api.WriteError renders as the analogous 503.
func (d *Dependencies) playlistMakeCurrent(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "playlistId")
	playlist, err := d.Reconciler.Activate(r.Context(), id)
	if err != nil {
		return err
	}
	api.WriteResource(w, playlist)
	return nil
}

func (d *Dependencies) playlistStoreCurrent(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("name")
	replace := queryBool(r, "replace", true)
	playlist, err := d.Reconciler.StoreActiveAsPlaylist(name, replace)
	if err != nil {
		return err
	}
	api.WriteResource(w, playlist)
	return nil
}
