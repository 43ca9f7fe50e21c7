package streamer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/upnp/didl"
	"github.com/kshepherd/vibin-go/internal/upnp/events"
	"github.com/kshepherd/vibin-go/internal/upnp/soap"
)

const pollInterval = 500 * time.Millisecond

// CXNv2Adapter talks to an older Cambridge Audio streamer that speaks
// classic UPnP AVTransport/RenderingControl eventing instead of the
// smoip WebSocket dialect. It exercises the upnp/events subscription
// loop against a streamer and demonstrates
// that a second dialect can produce the same normalized outputs as
// StreamMagicAdapter.
type CXNv2Adapter struct {
	deviceUDN       string
	avTransportURL  string
	renderingURL    string
	soapClient      *soap.Client
	eventsManager   *events.Manager
	lookup          MediaLookup

	mu               sync.RWMutex
	state            model.StreamerState
	transport        model.TransportState
	currentlyPlaying model.CurrentlyPlaying
	queue            model.Queue
	lastTransportRaw string

	handlersMu sync.Mutex
	handlers   []EventHandler

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCXNv2Adapter builds an adapter for a device already discovered and
// described: deviceUDN plus its AVTransport/RenderingControl control
// URLs (for SOAP commands) are resolved from device description XML by
// the caller (internal/discovery), and eventsManager is the shared
// UPnP event subscription manager the engine starts once at startup.
func NewCXNv2Adapter(deviceUDN, avTransportURL, renderingURL string, soapClient *soap.Client, eventsManager *events.Manager, lookup MediaLookup) *CXNv2Adapter {
	return &CXNv2Adapter{
		deviceUDN:      deviceUDN,
		avTransportURL: avTransportURL,
		renderingURL:   renderingURL,
		soapClient:     soapClient,
		eventsManager:  eventsManager,
		lookup:         lookup,
		state:          model.StreamerState{Name: deviceUDN, Power: model.PowerOn},
	}
}

func (a *CXNv2Adapter) Subscribe(handler EventHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers = append(a.handlers, handler)
}

func (a *CXNv2Adapter) Start(ctx context.Context) error {
	eventURLs := events.DeviceEventURLs{
		events.ServiceAVTransport:      a.avTransportURL,
		events.ServiceRenderingControl: a.renderingURL,
	}
	if err := a.eventsManager.SubscribeDevice(ctx, a.deviceUDN, eventURLs); err != nil {
		return apperrors.NewDeviceError("could not subscribe to streamer events: "+err.Error(), "")
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.pollLoop()
	return nil
}

func (a *CXNv2Adapter) Close() error {
	if a.stopCh != nil {
		close(a.stopCh)
		<-a.doneCh
	}
	a.eventsManager.UnsubscribeDevice(context.Background(), a.deviceUDN)
	return nil
}

func (a *CXNv2Adapter) pollLoop() {
	defer close(a.doneCh)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.pollOnce()
		}
	}
}

func (a *CXNv2Adapter) pollOnce() {
	state := a.eventsManager.StateCache().Get(a.deviceUDN)
	if state == nil {
		return
	}

	raw := state.TransportState + "|" + state.CurrentTrackMetaData + "|" + state.RelativeTime
	if raw == a.lastTransportRaw {
		return
	}
	a.lastTransportRaw = raw

	a.mu.Lock()
	a.transport.PlayState = mapAVTransportState(state.TransportState)
	a.transport.ActiveControls = []model.TransportAction{
		model.ActionPlay, model.ActionPause, model.ActionStop,
		model.ActionNext, model.ActionPrevious, model.ActionSeek,
	}
	if item, err := didl.Parse([]byte(state.CurrentTrackMetaData)); err == nil && len(item.Items) > 0 {
		track := item.Items[0]
		a.currentlyPlaying.ActiveTrack.Title = track.Title
		a.currentlyPlaying.ActiveTrack.Artist = track.PrimaryArtist()
		a.currentlyPlaying.ActiveTrack.Album = track.Album
	}
	transport := a.transport
	playing := a.currentlyPlaying
	a.mu.Unlock()

	a.emitTransportState(transport)
	a.emitCurrentlyPlaying(playing)
}

func mapAVTransportState(raw string) model.PlayState {
	switch strings.ToUpper(raw) {
	case "PLAYING":
		return model.PlayStatePlay
	case "PAUSED_PLAYBACK":
		return model.PlayStatePause
	case "STOPPED":
		return model.PlayStateStop
	case "TRANSITIONING":
		return model.PlayStateBuffering
	case "NO_MEDIA_PRESENT":
		return model.PlayStateNoSignal
	default:
		return model.PlayStateNotReady
	}
}

func (a *CXNv2Adapter) State() model.StreamerState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *CXNv2Adapter) TransportState() model.TransportState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.transport
}

func (a *CXNv2Adapter) CurrentlyPlaying() model.CurrentlyPlaying {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentlyPlaying
}

func (a *CXNv2Adapter) Queue() model.Queue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.queue
}

func (a *CXNv2Adapter) Presets() []Preset { return nil }

// UPnPProperties exposes the last-seen AVTransport state variables
// verbatim, straight from the events manager's state cache.
func (a *CXNv2Adapter) UPnPProperties() model.UPnPProperties {
	state := a.eventsManager.StateCache().Get(a.deviceUDN)
	if state == nil {
		return model.UPnPProperties{}
	}
	return model.UPnPProperties{
		"AVTransport": map[string]any{
			"TransportState":       state.TransportState,
			"CurrentTrackMetaData": state.CurrentTrackMetaData,
			"RelativeTime":         state.RelativeTime,
		},
	}
}

func (a *CXNv2Adapter) avAction(ctx context.Context, action string, args map[string]string) error {
	base := map[string]string{"InstanceID": "0"}
	for k, v := range args {
		base[k] = v
	}
	_, err := a.soapClient.ExecuteAction(ctx, a.avTransportURL, soap.ServiceAVTransport, action, base)
	if err != nil {
		return apperrors.NewDeviceError("AVTransport "+action+" failed: "+err.Error(), "")
	}
	return nil
}

func (a *CXNv2Adapter) Play(ctx context.Context) error {
	if a.TransportState().PlayState == model.PlayStatePlay {
		return nil
	}
	return a.avAction(ctx, "Play", map[string]string{"Speed": "1"})
}

func (a *CXNv2Adapter) Pause(ctx context.Context) error {
	if a.TransportState().PlayState == model.PlayStatePause {
		return nil
	}
	return a.avAction(ctx, "Pause", nil)
}

func (a *CXNv2Adapter) TogglePlayback(ctx context.Context) error {
	if a.TransportState().PlayState == model.PlayStatePlay {
		return a.Pause(ctx)
	}
	return a.Play(ctx)
}

func (a *CXNv2Adapter) StopPlayback(ctx context.Context) error {
	if !a.TransportState().HasControl(model.ActionStop) {
		return errUnsupportedAction(model.ActionStop)
	}
	return a.avAction(ctx, "Stop", nil)
}

func (a *CXNv2Adapter) Next(ctx context.Context) error {
	return a.avAction(ctx, "Next", nil)
}

func (a *CXNv2Adapter) Previous(ctx context.Context) error {
	return a.avAction(ctx, "Previous", nil)
}

func (a *CXNv2Adapter) Seek(ctx context.Context, target string) error {
	parsed, err := ParseSeekTarget(target)
	if err != nil {
		return err
	}
	seconds, err := parsed.ResolveSeconds(a.currentlyPlaying.ActiveTrack.DurationSec)
	if err != nil {
		return err
	}
	return a.avAction(ctx, "Seek", map[string]string{"Unit": "REL_TIME", "Target": formatHMS(seconds)})
}

func formatHMS(totalSeconds int) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func (a *CXNv2Adapter) SetShuffle(ctx context.Context, on bool) error {
	return apperrors.NewInputError("CXNv2 does not support shuffle", nil)
}

func (a *CXNv2Adapter) SetRepeat(ctx context.Context, on bool) error {
	return apperrors.NewInputError("CXNv2 does not support repeat", nil)
}

func (a *CXNv2Adapter) ModifyQueue(ctx context.Context, action QueueAction, mediaIds []model.MediaId, playFromId model.MediaId) error {
	if a.lookup == nil {
		return apperrors.NewInputError("no media server available to resolve queue mutation", nil)
	}
	if len(mediaIds) == 0 {
		return apperrors.NewInputError("queue mutation requires at least one media id", nil)
	}

	trackDIDL, trackURI, err := a.lookup.DIDLForTrack(ctx, mediaIds[0])
	if err != nil {
		return err
	}

	switch action {
	case QueueReplace, QueuePlayNow:
		if err := a.avAction(ctx, "SetAVTransportURI", map[string]string{
			"CurrentURI": trackURI, "CurrentURIMetaData": trackDIDL,
		}); err != nil {
			return err
		}
		return a.Play(ctx)
	case QueueAppend, QueuePlayNext:
		return a.avAction(ctx, "SetNextAVTransportURI", map[string]string{
			"NextURI": trackURI, "NextURIMetaData": trackDIDL,
		})
	case QueuePlayFromHere:
		return apperrors.NewInputError("CXNv2 does not support PLAY_FROM_HERE album queueing", nil)
	default:
		return apperrors.NewInputError("unsupported queue action: "+string(action), nil)
	}
}

// ClearQueue stops playback and clears the single-item AVTransport URI.
// CXNv2 has no multi-item queue, so this is the closest equivalent.
func (a *CXNv2Adapter) ClearQueue(ctx context.Context) error {
	return a.avAction(ctx, "SetAVTransportURI", map[string]string{"CurrentURI": "", "CurrentURIMetaData": ""})
}

func (a *CXNv2Adapter) DeleteQueueItem(ctx context.Context, itemId model.QueueItemId) error {
	return apperrors.NewInputError("CXNv2 has no queue item list to delete from", nil)
}

func (a *CXNv2Adapter) MoveQueueItem(ctx context.Context, itemId model.QueueItemId, fromPosition, toPosition int) error {
	return apperrors.NewInputError("CXNv2 has no queue item list to reorder", nil)
}

func (a *CXNv2Adapter) PlayQueueItemId(ctx context.Context, itemId model.QueueItemId) error {
	return apperrors.NewInputError("CXNv2 has no queue item ids", nil)
}

func (a *CXNv2Adapter) PlayQueueItemPosition(ctx context.Context, position int) error {
	return apperrors.NewInputError("CXNv2 has no queue positions", nil)
}

// PlayPresetId is unsupported: CXNv2 has no onboard preset store, unlike
// the smoip dialect's /presets/list.
func (a *CXNv2Adapter) PlayPresetId(ctx context.Context, presetId int) error {
	return apperrors.NewMissingDependencyError("presets")
}

func (a *CXNv2Adapter) emitTransportState(t model.TransportState) {
	a.forEachHandler(func(h EventHandler) { h.OnTransportState(t) })
}
func (a *CXNv2Adapter) emitCurrentlyPlaying(c model.CurrentlyPlaying) {
	a.forEachHandler(func(h EventHandler) { h.OnCurrentlyPlaying(c) })
}

func (a *CXNv2Adapter) forEachHandler(f func(EventHandler)) {
	a.handlersMu.Lock()
	handlers := make([]EventHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.handlersMu.Unlock()

	for _, h := range handlers {
		f(h)
	}
}

var _ Adapter = (*CXNv2Adapter)(nil)
