// Package streamer owns the streamer device connection: it maintains
// TransportState, CurrentlyPlaying, the active Queue, Presets and
// StreamerState, translating one device dialect's inbound events into
// those normalized types and normalized commands into outbound calls.
// Other streamer dialects (StreamMagic, CXNv2) implement the same
// Adapter contract so the Hub never needs to know which one it's
// talking to.
package streamer

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
)

// QueueAction is the closed set of queue-mutation actions.
type QueueAction string

const (
	QueueReplace      QueueAction = "REPLACE"
	QueueAppend       QueueAction = "APPEND"
	QueuePlayNow      QueueAction = "PLAY_NOW"
	QueuePlayNext     QueueAction = "PLAY_NEXT"
	QueuePlayFromHere QueueAction = "PLAY_FROM_HERE"
)

// Preset is one entry in the streamer's saved preset list.
type Preset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MediaLookup is the subset of the media-server adapter the streamer
// needs: DIDL-Lite metadata for queueing by media id, and the
// album/track matching used to enrich queue-info events with media ids.
type MediaLookup interface {
	DeviceUDN() string
	DIDLForTrack(ctx context.Context, trackId model.MediaId) (string, string, error)
	DIDLForAlbum(ctx context.Context, albumId model.MediaId) (string, string, error)
	FindTrackMediaId(ctx context.Context, album, artist, title string, trackNumber int) (model.MediaId, bool)
	FindAlbumMediaId(ctx context.Context, album, artist string) (model.MediaId, bool)
}

// EventHandler receives normalized state-change callbacks. Implementations
// must not block — they're invoked synchronously from the adapter's
// single inbound-event goroutine, matching the Hub's own fan-out contract.
type EventHandler interface {
	OnSystem(s model.StreamerState)
	OnTransportState(t model.TransportState)
	OnCurrentlyPlaying(c model.CurrentlyPlaying)
	OnQueue(q model.Queue)
	OnPresets(p []Preset)
	OnPosition(raw map[string]any)
}

// Adapter is the normalized streamer contract. StreamMagic and CXNv2 each
// implement it.
type Adapter interface {
	Start(ctx context.Context) error
	Close() error

	Subscribe(handler EventHandler)

	State() model.StreamerState
	TransportState() model.TransportState
	CurrentlyPlaying() model.CurrentlyPlaying
	Queue() model.Queue
	Presets() []Preset
	UPnPProperties() model.UPnPProperties

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	TogglePlayback(ctx context.Context) error
	StopPlayback(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, target string) error
	SetShuffle(ctx context.Context, on bool) error
	SetRepeat(ctx context.Context, on bool) error

	ModifyQueue(ctx context.Context, action QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error
	ClearQueue(ctx context.Context) error
	DeleteQueueItem(ctx context.Context, itemId model.QueueItemId) error
	MoveQueueItem(ctx context.Context, itemId model.QueueItemId, fromPosition, toPosition int) error
	PlayQueueItemId(ctx context.Context, itemId model.QueueItemId) error
	PlayQueueItemPosition(ctx context.Context, position int) error

	PlayPresetId(ctx context.Context, presetId int) error
}
