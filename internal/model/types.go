// Package model holds the normalized domain value objects every adapter
// translates its device-specific state into. Queue/TransportState/
// CurrentlyPlaying are mutated exclusively by the streamer adapter's
// inbound-event path; StoredPlaylistStatus is mutated exclusively by the
// reconciler.
package model

import "time"

// MediaId is an opaque string minted by the media server.
type MediaId = string

// QueueItemId is an integer minted by the streamer, unique within a session.
type QueueItemId = int

// PlaylistId is a UUID minted by the core.
type PlaylistId = string

// PowerState is the closed on/off/unknown power vocabulary shared by the
// streamer and amplifier.
type PowerState string

const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)

// AudioSource is one selectable input on a streamer or amplifier.
type AudioSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AudioSources is the ordered list of available sources plus which one, if
// any, is currently active.
type AudioSources struct {
	Available []AudioSource `json:"available"`
	Active    *AudioSource  `json:"active,omitempty"`
}

// StreamerDeviceDisplay is the last-seen raw device-display payload, kept
// verbatim because its shape is streamer-dialect-specific.
type StreamerDeviceDisplay map[string]any

// StreamerState is the streamer adapter's identity and presentation state.
type StreamerState struct {
	Name    string                `json:"name"`
	Power   PowerState            `json:"power"`
	Sources AudioSources          `json:"sources"`
	Display StreamerDeviceDisplay `json:"display,omitempty"`
}

// MediaServerState is the media-server adapter's identity.
type MediaServerState struct {
	Name string `json:"name"`
}

// AmplifierAction is one of the amplifier's supported actions.
type AmplifierAction string

const (
	AmplifierActionVolume        AmplifierAction = "volume"
	AmplifierActionMute          AmplifierAction = "mute"
	AmplifierActionVolumeUpDown  AmplifierAction = "volume_up_down"
	AmplifierActionPower         AmplifierAction = "power"
	AmplifierActionSource        AmplifierAction = "source"
)

// AmplifierState is the amplifier adapter's normalized state.
type AmplifierState struct {
	Name             string            `json:"name"`
	SupportedActions []AmplifierAction `json:"supportedActions"`
	Power            PowerState        `json:"power"`
	Mute             PowerState        `json:"mute"`
	// Volume is 0.0-1.0, or nil when unknown.
	Volume  *float64     `json:"volume,omitempty"`
	Sources AudioSources `json:"sources"`
}

// SystemState is the top-level composed snapshot the Hub publishes.
type SystemState struct {
	Power       PowerState        `json:"power"`
	Streamer    StreamerState     `json:"streamer"`
	MediaServer *MediaServerState `json:"mediaServer,omitempty"`
	Amplifier   *AmplifierState   `json:"amplifier,omitempty"`
}

// PlayState is the closed transport play-state vocabulary.
type PlayState string

const (
	PlayStateBuffering  PlayState = "buffering"
	PlayStateConnecting PlayState = "connecting"
	PlayStateNoSignal   PlayState = "no_signal"
	PlayStateNotReady   PlayState = "not_ready"
	PlayStatePause      PlayState = "pause"
	PlayStatePlay       PlayState = "play"
	PlayStateReady      PlayState = "ready"
	PlayStateStop       PlayState = "stop"
)

// TransportAction is the closed normalized control vocabulary every
// streamer dialect's raw control names map onto.
type TransportAction string

const (
	ActionNext           TransportAction = "next"
	ActionPause          TransportAction = "pause"
	ActionPlay           TransportAction = "play"
	ActionPrevious       TransportAction = "previous"
	ActionRepeat         TransportAction = "repeat"
	ActionSeek           TransportAction = "seek"
	ActionShuffle        TransportAction = "shuffle"
	ActionStop           TransportAction = "stop"
	ActionTogglePlayback TransportAction = "toggle_playback"
)

// RepeatMode and ShuffleMode are the closed {off, all} vocabularies.
type RepeatMode string
type ShuffleMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"

	ShuffleOff ShuffleMode = "off"
	ShuffleAll ShuffleMode = "all"
)

// TransportState is the streamer's current transport status.
type TransportState struct {
	PlayState      PlayState         `json:"playState"`
	ActiveControls []TransportAction `json:"activeControls"`
	Repeat         RepeatMode        `json:"repeat"`
	Shuffle        ShuffleMode       `json:"shuffle"`
}

// HasControl reports whether action is currently available.
func (t TransportState) HasControl(action TransportAction) bool {
	for _, a := range t.ActiveControls {
		if a == action {
			return true
		}
	}
	return false
}

// ActiveTrack is the currently-playing track's display metadata, as
// reported directly by the streamer (it may not match the media server's
// own Track record, which is why CurrentlyPlaying also carries MediaIds).
type ActiveTrack struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
}

// MediaFormat describes the encoding of the currently playing stream.
type MediaFormat struct {
	Codec      string `json:"codec,omitempty"`
	Lossless   bool   `json:"lossless,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty"`
}

// MediaStream describes the transport-level stream (e.g. internet radio
// station metadata) separate from the codec format.
type MediaStream struct {
	Station string `json:"station,omitempty"`
	URL     string `json:"url,omitempty"`
}

// QueueItem is one entry in the streamer's active queue.
type QueueItem struct {
	ID           QueueItemId    `json:"id"`
	Position     int            `json:"position"`
	Metadata     QueueItemMeta  `json:"metadata"`
	AlbumMediaId *MediaId       `json:"albumMediaId,omitempty"`
	TrackMediaId *MediaId       `json:"trackMediaId,omitempty"`
}

// QueueItemMeta is the display metadata carried on a queue item.
type QueueItemMeta struct {
	Title       string `json:"title,omitempty"`
	Album       string `json:"album,omitempty"`
	Artist      string `json:"artist,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
}

// Queue is the streamer's active queue. PlayPosition is nil when nothing
// is queued; Items is dense and 0-based by Position.
type Queue struct {
	PlayPosition *int        `json:"playPosition,omitempty"`
	Items        []QueueItem `json:"items"`
}

// CurrentlyPlaying composes the active track's full normalized state.
type CurrentlyPlaying struct {
	AlbumMediaId *MediaId    `json:"albumMediaId,omitempty"`
	TrackMediaId *MediaId    `json:"trackMediaId,omitempty"`
	ActiveTrack  ActiveTrack `json:"activeTrack"`
	Format       MediaFormat `json:"format"`
	Stream       MediaStream `json:"stream"`
	Queue        Queue       `json:"queue"`
}

// Album, Artist, Track, MediaFolder are the media-server's catalog
// entities, cached by the media-server adapter until an explicit clear.
type Album struct {
	ID     MediaId `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Date   string  `json:"date,omitempty"`
	Genre  string  `json:"genre,omitempty"`
	ArtURL string  `json:"artUrl,omitempty"`
}

type Artist struct {
	ID   MediaId `json:"id"`
	Name string  `json:"name"`
}

type Track struct {
	ID                  MediaId `json:"id"`
	Title               string  `json:"title"`
	Artist              string  `json:"artist"`
	AlbumId             MediaId `json:"albumId,omitempty"`
	OriginalTrackNumber int     `json:"originalTrackNumber,omitempty"`
	DurationSec         int     `json:"durationSec,omitempty"`
}

type MediaFolder struct {
	ID       MediaId `json:"id"`
	Title    string  `json:"title"`
	ParentId MediaId `json:"parentId,omitempty"`
}

// StoredPlaylist is a persisted, user-named ordered list of media ids.
type StoredPlaylist struct {
	ID        PlaylistId `json:"id"`
	Name      string     `json:"name"`
	Created   time.Time  `json:"created"`
	Updated   time.Time  `json:"updated"`
	EntryIds  []MediaId  `json:"entryIds"`
}

// StoredPlaylistStatus tracks whether the streamer's live queue matches
// the active stored playlist. Invariants:
// I1: ActiveId names a playlist currently in the store, or is empty.
// I2: while IsActivatingPlaylist is true, IsActiveSyncedWithStore may be
// momentarily false; callers must not compare queue to store in that window.
// I3: when no activation is in progress, IsActiveSyncedWithStore is true
// iff the queue's ordered TrackMediaIds equal ActiveId's EntryIds.
type StoredPlaylistStatus struct {
	ActiveId              PlaylistId `json:"activeId,omitempty"`
	IsActiveSyncedWithStore bool     `json:"isActiveSyncedWithStore"`
	IsActivatingPlaylist    bool     `json:"isActivatingPlaylist"`
}

// FavoriteType is the closed {album, track} favorite vocabulary.
type FavoriteType string

const (
	FavoriteAlbum FavoriteType = "album"
	FavoriteTrack FavoriteType = "track"
)

// Favorite pairs a media id with when it was favorited, plus its
// hydrated display payload (populated on read; if the media id no
// longer resolves, the caller omits the entry rather than returning it
// with an empty HydratedMedia).
type Favorite struct {
	Type          FavoriteType   `json:"type"`
	MediaId       MediaId        `json:"mediaId"`
	WhenFavorited time.Time      `json:"whenFavorited"`
	HydratedMedia any            `json:"hydratedMedia,omitempty"`
}

// UPnPProperties is the last-seen raw UPnP service state variables, kept
// verbatim per service name rather than normalized, since clients (the
// web UI's debug views) want to see the device's own vocabulary.
type UPnPProperties map[string]map[string]any

// VibinStatus reports the hub's own health, independent of any device.
type VibinStatus struct {
	WebsocketClients int `json:"websocketClients"`
}

// UpdateMessageType is the closed set of channels the Hub fans out on.
type UpdateMessageType string

const (
	UpdateSystem           UpdateMessageType = "System"
	UpdateUPnPProperties   UpdateMessageType = "UPnPProperties"
	UpdateTransportState   UpdateMessageType = "TransportState"
	UpdatePosition         UpdateMessageType = "Position"
	UpdateCurrentlyPlaying UpdateMessageType = "CurrentlyPlaying"
	UpdateQueue            UpdateMessageType = "Queue"
	UpdateFavorites        UpdateMessageType = "Favorites"
	UpdatePresets          UpdateMessageType = "Presets"
	UpdateStoredPlaylists  UpdateMessageType = "StoredPlaylists"
	UpdateDeviceDisplay    UpdateMessageType = "DeviceDisplay"
	UpdatePlayState        UpdateMessageType = "PlayState"
	UpdateVibinStatus      UpdateMessageType = "VibinStatus"
)

// UpdateMessage is the self-contained, typed announcement the Hub
// broadcasts to every subscriber for one channel.
type UpdateMessage struct {
	Type    UpdateMessageType `json:"messageType"`
	Payload any               `json:"payload"`
}

// FavoritesPayload is the Favorites channel's payload shape.
type FavoritesPayload struct {
	Favorites []Favorite `json:"favorites"`
}

// StoredPlaylistsPayload composes the reconciler's status with the full
// persisted list, so a client can tell which playlist (if any) is active
// without a second round trip.
type StoredPlaylistsPayload struct {
	Status  StoredPlaylistStatus `json:"status"`
	Entries []StoredPlaylist     `json:"entries"`
}

// ExternalLink is one resolved artist/album/track page on an external
// metadata service (Discogs, Genius).
type ExternalLink struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LyricsChunk is one section of a lyrics lookup result (a verse, chorus,
// etc.); Header is nil for an unlabeled chunk.
type LyricsChunk struct {
	Header *string  `json:"header,omitempty"`
	Body   []string `json:"body"`
}
