package streamer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

type capturingHandler struct {
	mu                sync.Mutex
	systemUpdates     []model.StreamerState
	transportUpdates  []model.TransportState
	playingUpdates    []model.CurrentlyPlaying
	queueUpdates      []model.Queue
	presetUpdates     [][]Preset
}

func (h *capturingHandler) OnSystem(s model.StreamerState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systemUpdates = append(h.systemUpdates, s)
}
func (h *capturingHandler) OnTransportState(t model.TransportState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transportUpdates = append(h.transportUpdates, t)
}
func (h *capturingHandler) OnCurrentlyPlaying(c model.CurrentlyPlaying) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playingUpdates = append(h.playingUpdates, c)
}
func (h *capturingHandler) OnQueue(q model.Queue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queueUpdates = append(h.queueUpdates, q)
}
func (h *capturingHandler) OnPresets(p []Preset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presetUpdates = append(h.presetUpdates, p)
}
func (h *capturingHandler) OnPosition(raw map[string]any) {}

func TestHandlePlayStateFillsTitleFromStation(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	handler := &capturingHandler{}
	a.Subscribe(handler)

	a.handlePlayState([]byte(`{"state": "play", "station": "BBC Radio 4"}`))

	require.Len(t, handler.playingUpdates, 1)
	require.Equal(t, "BBC Radio 4", handler.playingUpdates[0].ActiveTrack.Title)
	require.Equal(t, model.PlayStatePlay, handler.transportUpdates[0].PlayState)
}

func TestHandleNowPlayingNormalizesControlsAndEmitsSystemOnDisplayChange(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	handler := &capturingHandler{}
	a.Subscribe(handler)

	a.handleNowPlaying([]byte(`{"controls": ["play_pause", "track_next", "unknown_control"], "source": {"id": "MEDIA_PLAYER"}, "display": {"line1": "Track Title"}}`))

	require.Len(t, handler.systemUpdates, 1)
	require.Len(t, handler.transportUpdates, 1)
	require.Equal(t, []model.TransportAction{model.ActionTogglePlayback, model.ActionNext}, handler.transportUpdates[0].ActiveControls)

	// Same display again: no further System emission.
	a.handleNowPlaying([]byte(`{"controls": ["play_pause"], "source": {"id": "MEDIA_PLAYER"}, "display": {"line1": "Track Title"}}`))
	require.Len(t, handler.systemUpdates, 1)
	require.Len(t, handler.transportUpdates, 2)
}

func TestHandleNowPlayingClearsMediaIdsOnNonMediaPlayerSource(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	albumId := "album-1"
	trackId := "track-1"
	a.currentlyPlaying.AlbumMediaId = &albumId
	a.currentlyPlaying.TrackMediaId = &trackId

	a.handleNowPlaying([]byte(`{"controls": [], "source": {"id": "AIRPLAY"}, "display": {}}`))

	require.Nil(t, a.CurrentlyPlaying().AlbumMediaId)
	require.Nil(t, a.CurrentlyPlaying().TrackMediaId)
}

func TestHandlePresets(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	handler := &capturingHandler{}
	a.Subscribe(handler)

	a.handlePresets([]byte(`{"presets": [{"id": 1, "name": "Jazz FM"}, {"id": 2, "name": "Classic FM"}]}`))

	require.Len(t, handler.presetUpdates, 1)
	require.Equal(t, []Preset{{ID: 1, Name: "Jazz FM"}, {ID: 2, Name: "Classic FM"}}, handler.presetUpdates[0])
	require.Equal(t, handler.presetUpdates[0], a.Presets())
}

func TestHandleSystemPowerNormalizesState(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	handler := &capturingHandler{}
	a.Subscribe(handler)

	a.handleSystemPower([]byte(`{"power": "ON"}`))
	require.Equal(t, model.PowerOn, a.State().Power)

	a.handleSystemPower([]byte(`{"power": "NETWORK"}`))
	require.Equal(t, model.PowerOff, a.State().Power)

	require.Len(t, handler.systemUpdates, 2)
}

func TestPlayPauseIdempotentNoOp(t *testing.T) {
	var gotRequest bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequest = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewStreamMagicAdapter(strings.TrimPrefix(server.URL, "http://"), nil)
	a.transport.PlayState = model.PlayStatePlay

	err := a.Play(context.Background())
	require.NoError(t, err)
	require.False(t, gotRequest, "Play() should be a no-op when already playing")

	err = a.Pause(context.Background())
	require.NoError(t, err)
	require.True(t, gotRequest, "Pause() should issue a request when currently playing")
}

func TestStopPlaybackRequiresActiveControl(t *testing.T) {
	a := NewStreamMagicAdapter("streamer.local", nil)
	a.transport.ActiveControls = []model.TransportAction{model.ActionPlay}

	err := a.StopPlayback(context.Background())
	require.Error(t, err)
}

func TestFetchQueueListParsesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"play_position": 2, "items": [
			{"queue_id": 7, "metadata": {"title": "Song A", "album": "Album A", "artist": "Artist A", "duration": 180, "track_number": 1}}
		]}}`))
	}))
	defer server.Close()

	a := NewStreamMagicAdapter(strings.TrimPrefix(server.URL, "http://"), nil)
	items, playPosition, err := a.fetchQueueList(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 7, items[0].ID)
	require.Equal(t, "Song A", items[0].Metadata.Title)
	require.Equal(t, 0, items[0].Position)
	require.NotNil(t, playPosition)
	require.Equal(t, 2, *playPosition)
}

// fakeLookup is a minimal MediaLookup for exercising queue mutations
// without a real media server.
type fakeLookup struct {
	didl string
	uri  string
}

func (f fakeLookup) DeviceUDN() string { return "uuid:media-server-1" }
func (f fakeLookup) DIDLForTrack(ctx context.Context, trackId model.MediaId) (string, string, error) {
	return f.didl, f.uri, nil
}
func (f fakeLookup) DIDLForAlbum(ctx context.Context, albumId model.MediaId) (string, string, error) {
	return f.didl, f.uri, nil
}
func (f fakeLookup) FindTrackMediaId(ctx context.Context, album, artist, title string, trackNumber int) (model.MediaId, bool) {
	return "", false
}
func (f fakeLookup) FindAlbumMediaId(ctx context.Context, album, artist string) (model.MediaId, bool) {
	return "", false
}

func TestModifyQueueReplaceHitsQueueAdd(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewStreamMagicAdapter(strings.TrimPrefix(server.URL, "http://"), fakeLookup{didl: "<DIDL-Lite/>"})
	err := a.ModifyQueue(context.Background(), QueueReplace, []model.MediaId{"track-1"}, "")
	require.NoError(t, err)

	require.Equal(t, "/smoip/queue/add", gotPath)
	query, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	require.Equal(t, "REPLACE", query.Get("action"))
	require.Equal(t, "<DIDL-Lite/>", query.Get("didl"))
	require.Equal(t, "uuid:media-server-1", query.Get("server_udn"))
	require.Empty(t, query.Get("uri"))
}

func TestModifyQueuePlayFromHereIncludesPlayFromId(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewStreamMagicAdapter(strings.TrimPrefix(server.URL, "http://"), fakeLookup{didl: "<DIDL-Lite/>"})
	err := a.ModifyQueue(context.Background(), QueuePlayFromHere, []model.MediaId{"album-1"}, "track-9")
	require.NoError(t, err)

	query, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	require.Equal(t, "PLAY_FROM_HERE", query.Get("action"))
	require.Equal(t, "track-9", query.Get("play_from_id"))
}
