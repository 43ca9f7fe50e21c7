// Package reconciler owns StoredPlaylistStatus and mediates every queue
// mutation that might affect it: activating a stored playlist, replacing
// the live queue, and noticing when another control point has changed
// the queue out from under an active playlist.
package reconciler

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// StreamerQueue is the subset of streamer.Adapter the reconciler drives;
// kept narrow so tests can supply a fake that only implements queue
// mutation, not the full transport/playback surface.
type StreamerQueue interface {
	Queue() model.Queue
	ModifyQueue(ctx context.Context, action streamer.QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error
	ClearQueue(ctx context.Context) error
}

// EventHandler receives StoredPlaylists update notifications whenever
// status or the playlist list changes.
type EventHandler interface {
	OnStoredPlaylists(status model.StoredPlaylistStatus, playlists []model.StoredPlaylist)
}

// PlaylistsStore is the subset of internal/store's PlaylistsRepository
// the reconciler needs, kept as a local interface so tests can supply an
// in-memory fake instead of a real database.
type PlaylistsStore interface {
	Create(name string, entryIds []model.MediaId) (*model.StoredPlaylist, error)
	GetByID(id model.PlaylistId) (*model.StoredPlaylist, error)
	List() ([]model.StoredPlaylist, error)
	UpdateEntries(id model.PlaylistId, entryIds []model.MediaId) (*model.StoredPlaylist, error)
	UpdateMetadata(id model.PlaylistId, name string) (*model.StoredPlaylist, error)
	Delete(id model.PlaylistId) error
}
