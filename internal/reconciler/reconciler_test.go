package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// fakeStreamerQueue is a direct stand-in for the streamer adapter's
// queue surface, letting tests drive ModifyQueue/ClearQueue calls
// without a live device connection.
type fakeStreamerQueue struct {
	queue       model.Queue
	modifyCalls []streamer.QueueAction
	clearCalls  int
}

func (f *fakeStreamerQueue) Queue() model.Queue { return f.queue }

func (f *fakeStreamerQueue) ModifyQueue(ctx context.Context, action streamer.QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error {
	f.modifyCalls = append(f.modifyCalls, action)
	if action == streamer.QueueAppend {
		for _, id := range mediaIds {
			id := id
			f.queue.Items = append(f.queue.Items, model.QueueItem{
				ID:           len(f.queue.Items) + 1,
				Position:     len(f.queue.Items),
				TrackMediaId: &id,
			})
		}
	}
	return nil
}

func (f *fakeStreamerQueue) ClearQueue(ctx context.Context) error {
	f.clearCalls++
	f.queue = model.Queue{}
	return nil
}

// fakePlaylistsStore is an in-memory stand-in for store.PlaylistsRepository.
type fakePlaylistsStore struct {
	playlists map[model.PlaylistId]*model.StoredPlaylist
	nextId    int
}

func newFakePlaylistsStore() *fakePlaylistsStore {
	return &fakePlaylistsStore{playlists: map[model.PlaylistId]*model.StoredPlaylist{}}
}

func (f *fakePlaylistsStore) Create(name string, entryIds []model.MediaId) (*model.StoredPlaylist, error) {
	f.nextId++
	id := model.PlaylistId(intToId(f.nextId))
	p := &model.StoredPlaylist{ID: id, Name: name, EntryIds: entryIds}
	f.playlists[id] = p
	return p, nil
}

func (f *fakePlaylistsStore) GetByID(id model.PlaylistId) (*model.StoredPlaylist, error) {
	return f.playlists[id], nil
}

func (f *fakePlaylistsStore) List() ([]model.StoredPlaylist, error) {
	out := make([]model.StoredPlaylist, 0, len(f.playlists))
	for _, p := range f.playlists {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePlaylistsStore) UpdateEntries(id model.PlaylistId, entryIds []model.MediaId) (*model.StoredPlaylist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, nil
	}
	p.EntryIds = entryIds
	return p, nil
}

func (f *fakePlaylistsStore) UpdateMetadata(id model.PlaylistId, name string) (*model.StoredPlaylist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, nil
	}
	p.Name = name
	return p, nil
}

func (f *fakePlaylistsStore) Delete(id model.PlaylistId) error {
	delete(f.playlists, id)
	return nil
}

func intToId(n int) string {
	return "playlist-" + string(rune('a'-1+n))
}

// capturingHandler records every StoredPlaylists update it receives.
type capturingHandler struct {
	statuses []model.StoredPlaylistStatus
}

func (h *capturingHandler) OnStoredPlaylists(status model.StoredPlaylistStatus, playlists []model.StoredPlaylist) {
	h.statuses = append(h.statuses, status)
}

func TestActivateAppendsEntriesAndSuppressesIntermediateUpdates(t *testing.T) {
	store := newFakePlaylistsStore()
	playlist, err := store.Create("Evening", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{}
	r := New(sq, store, nil)
	handler := &capturingHandler{}
	r.Subscribe(handler)

	activated, err := r.Activate(context.Background(), playlist.ID)
	require.NoError(t, err)
	require.Equal(t, playlist.ID, activated.ID)

	status := r.Status()
	require.Equal(t, playlist.ID, status.ActiveId)
	require.True(t, status.IsActiveSyncedWithStore)
	require.False(t, status.IsActivatingPlaylist)

	require.Equal(t, 1, sq.clearCalls)
	require.Len(t, sq.modifyCalls, 2)
	require.NotEmpty(t, handler.statuses)
	require.True(t, handler.statuses[len(handler.statuses)-1].IsActiveSyncedWithStore)
}

func TestActivateMissingPlaylistReturnsNotFound(t *testing.T) {
	store := newFakePlaylistsStore()
	r := New(&fakeStreamerQueue{}, store, nil)

	_, err := r.Activate(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestModifyQueueReplaceResetsActivePlaylist(t *testing.T) {
	store := newFakePlaylistsStore()
	playlist, err := store.Create("Morning", []model.MediaId{"track-1"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{}
	r := New(sq, store, nil)

	_, activateErr := r.Activate(context.Background(), playlist.ID)
	require.NoError(t, activateErr)
	require.Equal(t, playlist.ID, r.Status().ActiveId)

	err = r.ModifyQueue(context.Background(), streamer.QueueReplace, []model.MediaId{"track-9"}, "")
	require.NoError(t, err)

	status := r.Status()
	require.Empty(t, status.ActiveId)
	require.False(t, status.IsActiveSyncedWithStore)
}

func TestOnStreamerQueueModifiedTracksDriftWithoutClearingActiveId(t *testing.T) {
	// Regression test for the documented "surprising" behavior: when
	// another control point replaces the queue while a playlist is
	// active, the reconciler marks the playlist out of sync but keeps
	// it as the active playlist rather than clearing activeId or
	// persisting the new queue as that playlist's entries.
	store := newFakePlaylistsStore()
	playlist, err := store.Create("Focus", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{}
	r := New(sq, store, nil)
	_, activateErr := r.Activate(context.Background(), playlist.ID)
	require.NoError(t, activateErr)
	require.True(t, r.Status().IsActiveSyncedWithStore)

	r.OnStreamerQueueModified([]model.MediaId{"track-9", "track-8"})

	status := r.Status()
	require.Equal(t, playlist.ID, status.ActiveId)
	require.False(t, status.IsActiveSyncedWithStore)

	stored, err := store.GetByID(playlist.ID)
	require.NoError(t, err)
	require.Equal(t, []model.MediaId{"track-1", "track-2"}, stored.EntryIds)
}

func TestOnStreamerQueueModifiedResyncsWhenQueueMatchesAgain(t *testing.T) {
	store := newFakePlaylistsStore()
	playlist, err := store.Create("Focus", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{}
	r := New(sq, store, nil)
	_, activateErr := r.Activate(context.Background(), playlist.ID)
	require.NoError(t, activateErr)

	r.OnStreamerQueueModified([]model.MediaId{"track-9"})
	require.False(t, r.Status().IsActiveSyncedWithStore)

	r.OnStreamerQueueModified([]model.MediaId{"track-1", "track-2"})
	require.True(t, r.Status().IsActiveSyncedWithStore)
}

func TestOnStreamerQueueModifiedIgnoredWhenNoPlaylistActive(t *testing.T) {
	store := newFakePlaylistsStore()
	sq := &fakeStreamerQueue{}
	r := New(sq, store, nil)

	r.OnStreamerQueueModified([]model.MediaId{"track-1"})
	require.Empty(t, r.Status().ActiveId)
}

func TestStoreActiveAsPlaylistCreatesNewWhenNoneActive(t *testing.T) {
	store := newFakePlaylistsStore()
	sq := &fakeStreamerQueue{queue: model.Queue{Items: []model.QueueItem{
		{ID: 1, TrackMediaId: mediaIdPtr("track-1")},
		{ID: 2, TrackMediaId: mediaIdPtr("track-2")},
	}}}
	r := New(sq, store, nil)

	playlist, err := r.StoreActiveAsPlaylist("My Mix", false)
	require.NoError(t, err)
	require.Equal(t, []model.MediaId{"track-1", "track-2"}, playlist.EntryIds)
	require.Equal(t, playlist.ID, r.Status().ActiveId)
}

func TestStoreActiveAsPlaylistReplacesExistingWhenActiveAndReplaceTrue(t *testing.T) {
	store := newFakePlaylistsStore()
	existing, err := store.Create("Old", []model.MediaId{"track-1"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{queue: model.Queue{Items: []model.QueueItem{
		{ID: 1, TrackMediaId: mediaIdPtr("track-5")},
	}}}
	r := New(sq, store, nil)
	_, activateErr := r.Activate(context.Background(), existing.ID)
	require.NoError(t, activateErr)

	// Replace the queue out from under the activated playlist, then
	// persist it back as the same playlist.
	sq.queue = model.Queue{Items: []model.QueueItem{{ID: 1, TrackMediaId: mediaIdPtr("track-7")}}}

	updated, err := r.StoreActiveAsPlaylist("", true)
	require.NoError(t, err)
	require.Equal(t, existing.ID, updated.ID)
	require.Equal(t, []model.MediaId{"track-7"}, updated.EntryIds)
}

func TestCheckOnStartupAdoptsMostRecentlyUpdatedMatch(t *testing.T) {
	store := newFakePlaylistsStore()
	_, err := store.Create("A", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)
	second, err := store.Create("B", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)
	second.Updated = second.Updated.Add(1)

	sq := &fakeStreamerQueue{queue: model.Queue{Items: []model.QueueItem{
		{ID: 1, TrackMediaId: mediaIdPtr("track-1")},
		{ID: 2, TrackMediaId: mediaIdPtr("track-2")},
	}}}
	r := New(sq, store, nil)

	require.NoError(t, r.CheckOnStartup())
	require.NotEmpty(t, r.Status().ActiveId)
	require.True(t, r.Status().IsActiveSyncedWithStore)
}

func TestCheckOnStartupNoMatchLeavesStatusEmpty(t *testing.T) {
	store := newFakePlaylistsStore()
	_, err := store.Create("A", []model.MediaId{"track-1"})
	require.NoError(t, err)

	sq := &fakeStreamerQueue{queue: model.Queue{Items: []model.QueueItem{
		{ID: 1, TrackMediaId: mediaIdPtr("track-9")},
	}}}
	r := New(sq, store, nil)

	require.NoError(t, r.CheckOnStartup())
	require.Empty(t, r.Status().ActiveId)
}

func mediaIdPtr(id model.MediaId) *model.MediaId { return &id }
