package amplifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/wsworker"
)

// streamMagicAmpSubscribeFrames are the two state feeds needed to derive
// amplifier behavior from a StreamMagic streamer acting as a preamp or
// control-bus volume source.
var streamMagicAmpSubscribeFrames = []string{
	`{"path": "/zone/state/spec", "params": {"update": 1}}`,
	`{"path": "/zone/state", "params": {"update": 1}}`,
}

type smZoneState struct {
	Power       bool   `json:"power"`
	Mute        bool   `json:"mute"`
	PreAmpMode  bool   `json:"pre_amp_mode"`
	CBus        string `json:"cbus"`
	VolumeStep  int    `json:"volume_step"`
}

// StreamMagicAmplifierAdapter derives amplifier behavior from the same
// streamer a StreamMagicAdapter controls for playback: in pre-amp mode it
// reports {volume, mute, volume_up_down}; in control-bus mode only
// {volume_up_down}; otherwise nothing is controllable and only power is
// reported for display.
type StreamMagicAmplifierAdapter struct {
	name string
	host string

	httpClient *http.Client
	worker     *wsworker.Worker

	mu            sync.Mutex
	zoneState     *smZoneState
	maxVolumeStep int

	handlersMu sync.Mutex
	handlers   []EventHandler
}

// NewStreamMagicAmplifierAdapter builds an amplifier adapter sharing the
// streamer's host; it opens its own WebSocket connection to /smoip so it
// can be started/stopped independently of the streamer adapter.
func NewStreamMagicAmplifierAdapter(name, host string) *StreamMagicAmplifierAdapter {
	a := &StreamMagicAmplifierAdapter{
		name:       name,
		host:       host,
		httpClient: &http.Client{},
	}
	a.worker = wsworker.New("ws://"+host+"/smoip", a)
	return a
}

func (a *StreamMagicAmplifierAdapter) Name() string { return a.name }

func (a *StreamMagicAmplifierAdapter) Subscribe(handler EventHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers = append(a.handlers, handler)
}

func (a *StreamMagicAmplifierAdapter) Start(ctx context.Context) error {
	a.worker.Start(ctx)
	return nil
}

func (a *StreamMagicAmplifierAdapter) Close() {
	a.worker.Stop()
}

func (a *StreamMagicAmplifierAdapter) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	for _, frame := range streamMagicAmpSubscribeFrames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return err
		}
	}
	return nil
}

func (a *StreamMagicAmplifierAdapter) OnDisconnect(err error) {}

func (a *StreamMagicAmplifierAdapter) OnMessage(messageType int, data []byte) {
	var envelope struct {
		Path   string          `json:"path"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}

	switch envelope.Path {
	case "/zone/state":
		var wrapper struct {
			Data smZoneState `json:"data"`
		}
		if json.Unmarshal(envelope.Params, &wrapper) != nil {
			return
		}
		a.mu.Lock()
		state := wrapper.Data
		a.zoneState = &state
		a.mu.Unlock()
		a.emitState()
	case "/zone/state/spec":
		var wrapper struct {
			Data struct {
				VolumeStep struct {
					Maximum int `json:"maximum"`
				} `json:"volume_step"`
			} `json:"data"`
		}
		if json.Unmarshal(envelope.Params, &wrapper) != nil || wrapper.Data.VolumeStep.Maximum == 0 {
			return
		}
		a.mu.Lock()
		a.maxVolumeStep = wrapper.Data.VolumeStep.Maximum
		a.mu.Unlock()
		a.emitState()
	}
}

// State computes the normalized AmplifierState from the last-seen zone
// state, following the original's pre-amp/control-bus/neither branching.
func (a *StreamMagicAmplifierAdapter) State() model.AmplifierState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.computeStateLocked()
}

func (a *StreamMagicAmplifierAdapter) computeStateLocked() model.AmplifierState {
	state := model.AmplifierState{Name: a.name, Power: model.PowerUnknown, Mute: model.PowerUnknown}

	if a.zoneState == nil {
		return state
	}

	state.Power = model.PowerOff
	if a.zoneState.Power {
		state.Power = model.PowerOn
	}

	switch {
	case a.zoneState.PreAmpMode:
		state.SupportedActions = []model.AmplifierAction{
			model.AmplifierActionVolume,
			model.AmplifierActionMute,
			model.AmplifierActionVolumeUpDown,
		}
		state.Mute = model.PowerOff
		if a.zoneState.Mute {
			state.Mute = model.PowerOn
		}
		if a.maxVolumeStep > 0 {
			level := float64(a.zoneState.VolumeStep) / float64(a.maxVolumeStep)
			state.Volume = &level
		}
	case a.zoneState.CBus == "amplifier" || a.zoneState.CBus == "receiver":
		state.SupportedActions = []model.AmplifierAction{model.AmplifierActionVolumeUpDown}
	default:
		state.SupportedActions = nil
	}

	return state
}

func (a *StreamMagicAmplifierAdapter) emitState() {
	state := a.State()
	a.handlersMu.Lock()
	handlers := append([]EventHandler(nil), a.handlers...)
	a.handlersMu.Unlock()
	for _, h := range handlers {
		h.OnState(state)
	}
}

func (a *StreamMagicAmplifierAdapter) sendStateRequest(ctx context.Context, param, value string) error {
	url := fmt.Sprintf("http://%s/smoip/zone/state?%s=%s", a.host, param, value)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return apperrors.NewDeviceError("failed to reach StreamMagic amplifier control endpoint", err.Error())
	}
	defer resp.Body.Close()
	return nil
}

func (a *StreamMagicAmplifierAdapter) hasAction(action model.AmplifierAction) bool {
	for _, act := range a.State().SupportedActions {
		if act == action {
			return true
		}
	}
	return false
}

// SetPower is unsupported: power is controlled via the streamer itself.
func (a *StreamMagicAmplifierAdapter) SetPower(ctx context.Context, on bool) error {
	return apperrors.NewInputError("power is controlled via the streamer, not this amplifier adapter", nil)
}

func (a *StreamMagicAmplifierAdapter) SetVolume(ctx context.Context, level float64) error {
	a.mu.Lock()
	maxStep := a.maxVolumeStep
	a.mu.Unlock()

	if !a.hasAction(model.AmplifierActionVolume) || maxStep == 0 {
		return apperrors.NewInputError("volume is not supported in the current amplifier mode", nil)
	}
	if level < 0 || level > 1 {
		return apperrors.NewInputError("volume must be between 0.0 and 1.0", map[string]any{"level": level})
	}
	step := int(level*float64(maxStep) + 0.5)
	return a.sendStateRequest(ctx, "volume_step", fmt.Sprintf("%d", step))
}

func (a *StreamMagicAmplifierAdapter) AdjustVolume(ctx context.Context, up bool) error {
	if !a.hasAction(model.AmplifierActionVolumeUpDown) {
		return apperrors.NewInputError("volume_up_down is not supported in the current amplifier mode", nil)
	}
	if up {
		return a.sendStateRequest(ctx, "volume_step_change", "1")
	}
	return a.sendStateRequest(ctx, "volume_step_change", "-1")
}

func (a *StreamMagicAmplifierAdapter) SetMute(ctx context.Context, on bool) error {
	if !a.hasAction(model.AmplifierActionMute) {
		return apperrors.NewInputError("mute is not supported in the current amplifier mode", nil)
	}
	if on {
		return a.sendStateRequest(ctx, "mute", "true")
	}
	return a.sendStateRequest(ctx, "mute", "false")
}

// SetSource is unsupported: StreamMagic-as-amplifier exposes no source
// selection of its own.
func (a *StreamMagicAmplifierAdapter) SetSource(ctx context.Context, sourceID string) error {
	return apperrors.NewInputError("source selection is not supported by the StreamMagic amplifier adapter", nil)
}

var _ Adapter = (*StreamMagicAmplifierAdapter)(nil)
