package reconciler

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// Reconciler tracks whether the streamer's live queue matches a stored
// playlist, and mediates every operation that might change that: the
// generalized adaptation of the teacher's scene.Service state-plus-lock
// coordination, but for playlist/queue drift instead of scene execution.
type Reconciler struct {
	streamerQueue StreamerQueue
	store         PlaylistsStore
	logger        *log.Logger

	mu                   sync.Mutex
	status               model.StoredPlaylistStatus
	cachedEntryIds       []model.MediaId
	suppressQueueUpdates bool

	handlersMu sync.Mutex
	handlers   []EventHandler
}

// New builds a Reconciler. logger defaults to log.Default() if nil,
// matching the teacher's NewService constructors.
func New(streamerQueue StreamerQueue, store PlaylistsStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{streamerQueue: streamerQueue, store: store, logger: logger}
}

// Subscribe registers a handler for StoredPlaylists updates.
func (r *Reconciler) Subscribe(h EventHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Status returns the current StoredPlaylistStatus snapshot.
func (r *Reconciler) Status() model.StoredPlaylistStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// StoredPlaylists returns every persisted playlist.
func (r *Reconciler) StoredPlaylists() ([]model.StoredPlaylist, error) {
	return r.store.List()
}

// ClearQueue empties the streamer's queue and resets status to "no
// active playlist".
func (r *Reconciler) ClearQueue(ctx context.Context) error {
	r.resetStatus(true)
	return r.streamerQueue.ClearQueue(ctx)
}

// ModifyQueue applies a queue mutation. A REPLACE cuts any connection to
// the previously-active stored playlist — we don't yet know whether the
// resulting queue happens to match a stored playlist again; that's
// discovered later via onStreamerQueueModified or an explicit
// checkOnStartup-style recheck.
func (r *Reconciler) ModifyQueue(ctx context.Context, action streamer.QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error {
	if err := r.streamerQueue.ModifyQueue(ctx, action, mediaIds, playFromId); err != nil {
		return err
	}
	if action == streamer.QueueReplace {
		r.resetStatus(true)
	}
	return nil
}

// Activate replaces the queue with a stored playlist's entries one at a
// time, suppressing the per-entry StoredPlaylists updates that would
// otherwise fire for every append.
func (r *Reconciler) Activate(ctx context.Context, playlistId model.PlaylistId) (*model.StoredPlaylist, error) {
	playlist, err := r.store.GetByID(playlistId)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, apperrors.NewNotFoundResource("playlist", playlistId)
	}

	if err := r.streamerQueue.ClearQueue(ctx); err != nil {
		return nil, err
	}
	r.setStatus(model.StoredPlaylistStatus{IsActivatingPlaylist: true}, nil, true)

	r.mu.Lock()
	r.suppressQueueUpdates = true
	r.mu.Unlock()

	for _, entryId := range playlist.EntryIds {
		if err := r.streamerQueue.ModifyQueue(ctx, streamer.QueueAppend, []model.MediaId{entryId}, ""); err != nil {
			r.mu.Lock()
			r.suppressQueueUpdates = false
			r.mu.Unlock()
			r.resetStatus(true)
			return nil, err
		}
	}

	r.mu.Lock()
	r.suppressQueueUpdates = false
	r.mu.Unlock()

	r.setStatus(model.StoredPlaylistStatus{
		ActiveId:                playlist.ID,
		IsActiveSyncedWithStore: true,
	}, playlist.EntryIds, true)

	return playlist, nil
}

// StoreActiveAsPlaylist persists the streamer's current queue as a
// stored playlist. If replace is true and a playlist is already active,
// that playlist's entries are overwritten in place; otherwise a new
// playlist is created and made active.
func (r *Reconciler) StoreActiveAsPlaylist(name string, replace bool) (*model.StoredPlaylist, error) {
	queue := r.streamerQueue.Queue()
	entryIds := trackMediaIdsFromQueue(queue)

	activeId := r.Status().ActiveId

	if activeId == "" || !replace {
		playlist, err := r.store.Create(name, entryIds)
		if err != nil {
			return nil, err
		}
		r.setStatus(model.StoredPlaylistStatus{
			ActiveId:                playlist.ID,
			IsActiveSyncedWithStore: true,
		}, entryIds, true)
		return playlist, nil
	}

	playlist, err := r.store.UpdateEntries(activeId, entryIds)
	if err != nil {
		r.resetStatus(true)
		return nil, err
	}
	if playlist == nil {
		r.resetStatus(true)
		return nil, apperrors.NewNotFoundResource("playlist", activeId)
	}
	if name != "" {
		renamed, err := r.store.UpdateMetadata(activeId, name)
		if err != nil {
			return nil, err
		}
		if renamed != nil {
			playlist = renamed
		}
	}

	r.setStatus(model.StoredPlaylistStatus{
		ActiveId:                activeId,
		IsActiveSyncedWithStore: true,
	}, entryIds, true)

	return playlist, nil
}

// Delete removes a stored playlist.
func (r *Reconciler) Delete(playlistId model.PlaylistId) error {
	if err := r.store.Delete(playlistId); err != nil {
		return err
	}
	r.emitStoredPlaylists()
	return nil
}

// UpdateMetadata renames a stored playlist.
func (r *Reconciler) UpdateMetadata(playlistId model.PlaylistId, name string) (*model.StoredPlaylist, error) {
	playlist, err := r.store.UpdateMetadata(playlistId, name)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, apperrors.NewNotFoundResource("playlist", playlistId)
	}
	r.emitStoredPlaylists()
	return playlist, nil
}

// CheckOnStartup looks for a stored playlist whose entryIds match the
// streamer's current queue and, if found, adopts it as the active
// playlist. Picks the most recently updated match when more than one
// qualifies.
func (r *Reconciler) CheckOnStartup() error {
	queueIds := trackMediaIdsFromQueue(r.streamerQueue.Queue())
	if len(queueIds) == 0 {
		r.resetStatus(true)
		return nil
	}

	playlists, err := r.store.List()
	if err != nil {
		return err
	}

	var matches []model.StoredPlaylist
	for _, p := range playlists {
		if mediaIdsEqual(p.EntryIds, queueIds) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		r.resetStatus(false)
		return nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Updated.After(matches[j].Updated) })
	best := matches[0]

	r.setStatus(model.StoredPlaylistStatus{
		ActiveId:                best.ID,
		IsActiveSyncedWithStore: true,
	}, best.EntryIds, true)

	return nil
}

// OnStreamerQueueModified is the hot path invoked by the streamer adapter
// every time its queue changes. Per Open Question 3: when another
// control point replaces the queue while a playlist is active, this
// updates isActiveSyncedWithStore against the *existing* activeId — it
// does not clear activeId and does not persist the new queue as that
// playlist's entries. This is the documented "surprising" behavior,
// preserved deliberately rather than silently changed; see
// TestOnStreamerQueueModifiedTracksDriftWithoutClearingActiveId.
func (r *Reconciler) OnStreamerQueueModified(entries []model.MediaId) {
	r.mu.Lock()
	if r.suppressQueueUpdates {
		r.mu.Unlock()
		return
	}
	activeId := r.status.ActiveId
	if activeId == "" {
		r.mu.Unlock()
		return
	}
	priorSynced := r.status.IsActiveSyncedWithStore
	nowSynced := mediaIdsEqual(r.cachedEntryIds, entries)
	r.status.IsActiveSyncedWithStore = nowSynced
	changed := nowSynced != priorSynced
	r.mu.Unlock()

	if changed {
		r.emitStoredPlaylists()
	}
}

func (r *Reconciler) resetStatus(sendUpdate bool) {
	r.setStatus(model.StoredPlaylistStatus{}, nil, sendUpdate)
}

func (r *Reconciler) setStatus(status model.StoredPlaylistStatus, cachedEntryIds []model.MediaId, sendUpdate bool) {
	r.mu.Lock()
	r.status = status
	r.cachedEntryIds = cachedEntryIds
	r.mu.Unlock()

	if sendUpdate {
		r.emitStoredPlaylists()
	}
}

func (r *Reconciler) emitStoredPlaylists() {
	playlists, err := r.store.List()
	if err != nil {
		r.logger.Printf("RECONCILER: failed to list stored playlists for update: %v", err)
		playlists = nil
	}
	status := r.Status()

	r.handlersMu.Lock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.handlersMu.Unlock()

	for _, h := range handlers {
		h.OnStoredPlaylists(status, playlists)
	}
}

func trackMediaIdsFromQueue(q model.Queue) []model.MediaId {
	ids := make([]model.MediaId, 0, len(q.Items))
	for _, item := range q.Items {
		if item.TrackMediaId != nil {
			ids = append(ids, *item.TrackMediaId)
		}
	}
	return ids
}

func mediaIdsEqual(a, b []model.MediaId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
