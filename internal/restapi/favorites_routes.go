package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
)

// RegisterFavoritesRoutes wires /favorites/*, grounded on
// original_source/vibin/server/routers/favorites.py.
func RegisterFavoritesRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodGet, "/favorites", api.Handler(deps.favoritesList))
	router.Method(http.MethodGet, "/favorites/albums", api.Handler(deps.favoritesAlbums))
	router.Method(http.MethodGet, "/favorites/tracks", api.Handler(deps.favoritesTracks))
	router.Method(http.MethodPost, "/favorites", api.Handler(deps.favoritesCreate))
	router.Method(http.MethodDelete, "/favorites/{mediaId}", api.Handler(deps.favoritesDelete))
}

func (d *Dependencies) favoritesList(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, map[string]any{"favorites": d.Hub.Favorites()})
	return nil
}

func (d *Dependencies) favoritesByKind(kind model.FavoriteType) []model.Favorite {
	matched := make([]model.Favorite, 0)
	for _, favorite := range d.Hub.Favorites() {
		if favorite.Type == kind {
			matched = append(matched, favorite)
		}
	}
	return matched
}

func (d *Dependencies) favoritesAlbums(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, map[string]any{"favorites": d.favoritesByKind(model.FavoriteAlbum)})
	return nil
}

func (d *Dependencies) favoritesTracks(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, map[string]any{"favorites": d.favoritesByKind(model.FavoriteTrack)})
	return nil
}

type favoriteCreatePayload struct {
	Type    model.FavoriteType `json:"type"`
	MediaId model.MediaId      `json:"mediaId"`
}

func (d *Dependencies) favoritesCreate(w http.ResponseWriter, r *http.Request) error {
	var payload favoriteCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return apperrors.NewInputError("invalid request body", nil)
	}
	if payload.Type != model.FavoriteAlbum && payload.Type != model.FavoriteTrack {
		return apperrors.NewInputError("invalid type: "+string(payload.Type), map[string]any{"supported": []string{string(model.FavoriteAlbum), string(model.FavoriteTrack)}})
	}
	if payload.MediaId == "" {
		return apperrors.NewInputError("missing mediaId", nil)
	}

	favorite, err := d.Favorites.Add(payload.Type, payload.MediaId)
	if err != nil {
		return err
	}
	api.WriteResource(w, favorite)
	return nil
}

// favoritesDelete un-favorites a media id regardless of kind, matching
// favorites.py's favorites_delete(media_id) — the original takes no
// type, since a media id is only ever favorited under one kind.
func (d *Dependencies) favoritesDelete(w http.ResponseWriter, r *http.Request) error {
	mediaId := chi.URLParam(r, "mediaId")
	for _, kind := range []model.FavoriteType{model.FavoriteAlbum, model.FavoriteTrack} {
		if err := d.Favorites.Remove(kind, mediaId); err != nil {
			return err
		}
	}
	api.WriteNoContent(w)
	return nil
}
