package hub

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
)

// systemState composes the streamer's identity/power state with the
// optional media-server and amplifier identities, the way base.py's
// system_state property composes across self.streamer/media_server/amplifier.
func (h *Hub) systemState() model.SystemState {
	streamerState := h.streamerAdapter.State()

	system := model.SystemState{
		Power:    streamerState.Power,
		Streamer: streamerState,
	}

	if h.mediaServer != nil {
		system.MediaServer = &model.MediaServerState{Name: h.mediaServer.Name()}
	}
	if h.ampAdapter != nil {
		ampState := h.ampAdapter.State()
		system.Amplifier = &ampState
	}

	return system
}

// upnpProperties copies the streamer's raw UPnP service state, keyed by
// service name; the amplifier contributes no UPnP properties.
func (h *Hub) upnpProperties() model.UPnPProperties {
	merged := model.UPnPProperties{}
	for service, vars := range h.streamerAdapter.UPnPProperties() {
		merged[service] = vars
	}
	return merged
}

func (h *Hub) favorites() []model.Favorite {
	if h.favoritesStore == nil {
		return nil
	}

	var all []model.Favorite
	for _, kind := range []model.FavoriteType{model.FavoriteAlbum, model.FavoriteTrack} {
		favs, err := h.favoritesStore.List(kind)
		if err != nil {
			h.logger.Printf("HUB: failed to list %s favorites: %v", kind, err)
			continue
		}
		for _, favorite := range favs {
			if hydrated, ok := h.hydrateFavorite(kind, favorite.MediaId); ok {
				favorite.HydratedMedia = hydrated
				all = append(all, favorite)
			}
			// A favorite whose media id no longer resolves is silently
			// omitted rather than returned with an empty HydratedMedia,
			// matching favorites_manager.py's _favorites_getter.
		}
	}
	return all
}

func (h *Hub) hydrateFavorite(kind model.FavoriteType, mediaId model.MediaId) (any, bool) {
	if h.mediaServer == nil {
		return nil, false
	}

	switch kind {
	case model.FavoriteTrack:
		track, err := h.mediaServer.Metadata(context.Background(), mediaId)
		if err != nil {
			return nil, false
		}
		return track, true
	case model.FavoriteAlbum:
		albums, err := h.mediaServer.Albums(context.Background())
		if err != nil {
			return nil, false
		}
		for _, album := range albums {
			if album.ID == mediaId {
				return album, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func (h *Hub) storedPlaylistsPayload() model.StoredPlaylistsPayload {
	entries, err := h.reconciler.StoredPlaylists()
	if err != nil {
		h.logger.Printf("HUB: failed to list stored playlists: %v", err)
		entries = nil
	}
	return model.StoredPlaylistsPayload{Status: h.reconciler.Status(), Entries: entries}
}

// currentStateMessages returns the full snapshot as a fixed ordered list
// of typed UpdateMessages, used to prime a new subscriber atomically
// before any live update reaches it. The order matches base.py's
// update_messages property exactly.
func (h *Hub) currentStateMessages() []model.UpdateMessage {
	return []model.UpdateMessage{
		{Type: model.UpdateSystem, Payload: h.systemState()},
		{Type: model.UpdateUPnPProperties, Payload: h.upnpProperties()},
		{Type: model.UpdateTransportState, Payload: h.streamerAdapter.TransportState()},
		{Type: model.UpdateCurrentlyPlaying, Payload: h.streamerAdapter.CurrentlyPlaying()},
		{Type: model.UpdateFavorites, Payload: model.FavoritesPayload{Favorites: h.favorites()}},
		{Type: model.UpdatePresets, Payload: h.streamerAdapter.Presets()},
		{Type: model.UpdateStoredPlaylists, Payload: h.storedPlaylistsPayload()},
	}
}
