package hub

import (
	"context"
	"log"
	"sync"

	"github.com/kshepherd/vibin-go/internal/amplifier"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/mediaserver"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// Hub holds the adapter handles, aggregates their events, publishes
// typed update messages to all subscribers, and answers snapshot
// queries. It is the generalized adaptation of the teacher's
// ConnectionManager (a single-connection WebSocket fan-out point) to
// an arbitrary number of concurrent subscribers.
type Hub struct {
	streamerAdapter streamer.Adapter
	mediaServer     mediaserver.Adapter
	ampAdapter      amplifier.Adapter
	reconciler      QueueReconciler
	favoritesStore  FavoritesStore
	logger          *log.Logger

	subsMu    sync.RWMutex
	nextSubID int
	subs      map[int]Handler

	websocketClientsMu sync.RWMutex
	websocketClients   int
}

// New builds a Hub and subscribes it to every adapter it was given.
// mediaServer and ampAdapter may be nil; the Hub then answers their
// snapshot fields with zero values and skips their command paths,
// matching config.Config's optional specifiers.
func New(
	streamerAdapter streamer.Adapter,
	mediaServer mediaserver.Adapter,
	ampAdapter amplifier.Adapter,
	reconciler QueueReconciler,
	favoritesStore FavoritesStore,
	logger *log.Logger,
) *Hub {
	if logger == nil {
		logger = log.Default()
	}

	h := &Hub{
		streamerAdapter: streamerAdapter,
		mediaServer:     mediaServer,
		ampAdapter:      ampAdapter,
		reconciler:      reconciler,
		favoritesStore:  favoritesStore,
		logger:          logger,
		subs:            make(map[int]Handler),
	}

	streamerAdapter.Subscribe(h)
	if ampAdapter != nil {
		ampAdapter.Subscribe(h)
	}

	return h
}

// Subscribe registers handler and immediately primes it with the
// current-state burst. The burst and the registration happen under the
// same lock so no live update can be interleaved into the subscriber
// before its priming snapshot (P4).
func (h *Hub) Subscribe(handler Handler) (unsubscribe func()) {
	h.subsMu.Lock()
	id := h.nextSubID
	h.nextSubID++
	h.subs[id] = handler
	for _, msg := range h.currentStateMessages() {
		handler(msg)
	}
	h.subsMu.Unlock()

	return func() {
		h.subsMu.Lock()
		delete(h.subs, id)
		h.subsMu.Unlock()
	}
}

// SetWebsocketClients lets the WebSocket fan-out layer report its
// current connection count, surfaced via VibinStatus.
func (h *Hub) SetWebsocketClients(n int) {
	h.websocketClientsMu.Lock()
	h.websocketClients = n
	h.websocketClientsMu.Unlock()

	h.broadcast(model.UpdateVibinStatus, h.VibinStatus())
}

// VibinStatus reports the Hub's own health, independent of any device.
func (h *Hub) VibinStatus() model.VibinStatus {
	h.websocketClientsMu.RLock()
	defer h.websocketClientsMu.RUnlock()
	return model.VibinStatus{WebsocketClients: h.websocketClients}
}

// SystemState, CurrentlyPlaying, TransportState, Queue, Presets,
// Favorites, StoredPlaylists and UPnPProperties are the snapshot getters
// named in §4.7; REST GET handlers call these directly.
func (h *Hub) SystemState() model.SystemState           { return h.systemState() }
func (h *Hub) CurrentlyPlaying() model.CurrentlyPlaying { return h.streamerAdapter.CurrentlyPlaying() }
func (h *Hub) TransportState() model.TransportState     { return h.streamerAdapter.TransportState() }
func (h *Hub) Queue() model.Queue                       { return h.streamerAdapter.Queue() }
func (h *Hub) Presets() []streamer.Preset               { return h.streamerAdapter.Presets() }
func (h *Hub) Favorites() []model.Favorite              { return h.favorites() }
func (h *Hub) StoredPlaylists() model.StoredPlaylistsPayload {
	return h.storedPlaylistsPayload()
}
func (h *Hub) UPnPProperties() model.UPnPProperties { return h.upnpProperties() }

func (h *Hub) broadcast(msgType model.UpdateMessageType, payload any) {
	msg := model.UpdateMessage{Type: msgType, Payload: payload}

	h.subsMu.RLock()
	handlers := make([]Handler, 0, len(h.subs))
	for _, handler := range h.subs {
		handlers = append(handlers, handler)
	}
	h.subsMu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

// --- streamer.EventHandler ---

func (h *Hub) OnSystem(model.StreamerState) {
	h.broadcast(model.UpdateSystem, h.systemState())
}

func (h *Hub) OnTransportState(t model.TransportState) {
	h.broadcast(model.UpdateTransportState, t)
	// PlayState has its own channel in the closed UpdateMessageType set
	// even though the streamer only ever reports it as part of
	// TransportState; derive it here so every channel in the set is
	// actually exercised.
	h.broadcast(model.UpdatePlayState, t.PlayState)
}

func (h *Hub) OnCurrentlyPlaying(c model.CurrentlyPlaying) {
	h.broadcast(model.UpdateCurrentlyPlaying, c)
}

func (h *Hub) OnQueue(q model.Queue) {
	h.broadcast(model.UpdateQueue, q)
	h.reconciler.OnStreamerQueueModified(trackMediaIds(q))
}

func (h *Hub) OnPresets(p []streamer.Preset) {
	h.broadcast(model.UpdatePresets, p)
}

func (h *Hub) OnPosition(raw map[string]any) {
	h.broadcast(model.UpdatePosition, raw)
}

// --- amplifier.EventHandler ---

func (h *Hub) OnState(model.AmplifierState) {
	h.broadcast(model.UpdateSystem, h.systemState())
}

// --- reconciler.EventHandler ---

func (h *Hub) OnStoredPlaylists(status model.StoredPlaylistStatus, playlists []model.StoredPlaylist) {
	h.broadcast(model.UpdateStoredPlaylists, model.StoredPlaylistsPayload{Status: status, Entries: playlists})
}

func trackMediaIds(q model.Queue) []model.MediaId {
	ids := make([]model.MediaId, 0, len(q.Items))
	for _, item := range q.Items {
		if item.TrackMediaId != nil {
			ids = append(ids, *item.TrackMediaId)
		}
	}
	return ids
}

// PlayAlbum replaces the active queue with every track of album and
// starts playback, matching base.py's play_album (delegates to play_id
// on the album's media id, which the streamer resolves to its tracks).
func (h *Hub) PlayAlbum(ctx context.Context, albumId model.MediaId) error {
	if err := h.requireMediaServer(); err != nil {
		return err
	}
	return h.reconciler.ModifyQueue(ctx, streamer.QueueReplace, []model.MediaId{albumId}, albumId)
}

// PlayTrack replaces the active queue with a single track and plays it.
func (h *Hub) PlayTrack(ctx context.Context, trackId model.MediaId) error {
	if err := h.requireMediaServer(); err != nil {
		return err
	}
	return h.reconciler.ModifyQueue(ctx, streamer.QueueReplace, []model.MediaId{trackId}, trackId)
}

// PlayIds replaces the active queue with up to maxCount of the given
// media ids, in order, and plays the first one. maxCount <= 0 means no
// limit, matching base.py's play_ids default of 10 being a caller
// choice rather than a hard ceiling.
func (h *Hub) PlayIds(ctx context.Context, mediaIds []model.MediaId, maxCount int) error {
	if err := h.requireMediaServer(); err != nil {
		return err
	}
	if maxCount > 0 && len(mediaIds) > maxCount {
		mediaIds = mediaIds[:maxCount]
	}
	if len(mediaIds) == 0 {
		return h.reconciler.ClearQueue(ctx)
	}
	return h.reconciler.ModifyQueue(ctx, streamer.QueueReplace, mediaIds, mediaIds[0])
}

// PlayFavoriteAlbums queues and plays every favorited album, up to
// maxCount, matching base.py's play_favorite_albums (default max_count
// 10).
func (h *Hub) PlayFavoriteAlbums(ctx context.Context, maxCount int) error {
	if err := h.requireMediaServer(); err != nil {
		return err
	}
	return h.PlayIds(ctx, h.favoriteMediaIds(model.FavoriteAlbum), maxCount)
}

// PlayFavoriteTracks queues and plays every favorited track, up to
// maxCount, matching base.py's play_favorite_tracks (default max_count
// 100).
func (h *Hub) PlayFavoriteTracks(ctx context.Context, maxCount int) error {
	if err := h.requireMediaServer(); err != nil {
		return err
	}
	return h.PlayIds(ctx, h.favoriteMediaIds(model.FavoriteTrack), maxCount)
}

func (h *Hub) favoriteMediaIds(kind model.FavoriteType) []model.MediaId {
	if h.favoritesStore == nil {
		return nil
	}
	favs, err := h.favoritesStore.List(kind)
	if err != nil {
		h.logger.Printf("HUB: failed to list %s favorites: %v", kind, err)
		return nil
	}
	ids := make([]model.MediaId, len(favs))
	for i, f := range favs {
		ids[i] = f.MediaId
	}
	return ids
}

// requireMediaServer returns a MissingDependencyError when no media
// server adapter is configured, for command paths that need catalog
// lookups (mirrors base.py's @requires_media_server decorator).
func (h *Hub) requireMediaServer() error {
	if h.mediaServer == nil {
		return apperrors.NewMissingDependencyError("media server")
	}
	return nil
}
