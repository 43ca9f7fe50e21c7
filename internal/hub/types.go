// Package hub composes the per-device adapters' normalized state into a
// single system view and fans out typed update messages to subscribers.
// It is the only component that sees all three adapters plus the
// reconciler at once; everything else (REST handlers, the WebSocket
// fan-out) talks to the Hub, never directly to a device adapter.
package hub

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// FavoritesStore is the subset of store.FavoritesRepository the Hub needs
// to list and mutate favorites, and to build the favorited-media play
// shortcuts.
type FavoritesStore interface {
	Add(kind model.FavoriteType, mediaId model.MediaId) (*model.Favorite, error)
	Remove(kind model.FavoriteType, mediaId model.MediaId) error
	List(kind model.FavoriteType) ([]model.Favorite, error)
}

// QueueReconciler is the subset of reconciler.Reconciler the Hub drives
// every queue mutation through, so stored-playlist drift tracking never
// gets bypassed by a command shortcut.
type QueueReconciler interface {
	ClearQueue(ctx context.Context) error
	ModifyQueue(ctx context.Context, action streamer.QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error
	Status() model.StoredPlaylistStatus
	StoredPlaylists() ([]model.StoredPlaylist, error)
	OnStreamerQueueModified(entries []model.MediaId)
}

// Handler receives one UpdateMessage per call. Per the Hub's fan-out
// contract it is invoked synchronously on the originating adapter's
// single event goroutine, so it must not block.
type Handler func(model.UpdateMessage)
