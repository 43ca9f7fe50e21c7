package amplifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

func TestStreamMagicAmplifierPreAmpModeReportsFullActions(t *testing.T) {
	a := NewStreamMagicAmplifierAdapter("CXNv2", "streamer.local")
	handler := &capturingStateHandler{}
	a.Subscribe(handler)

	a.OnMessage(0, []byte(`{"path": "/zone/state/spec", "params": {"data": {"volume_step": {"maximum": 100}}}}`))
	a.OnMessage(0, []byte(`{"path": "/zone/state", "params": {"data": {"power": true, "mute": false, "pre_amp_mode": true, "cbus": "none", "volume_step": 50}}}`))

	state := a.State()
	require.Equal(t, model.PowerOn, state.Power)
	require.Equal(t, model.PowerOff, state.Mute)
	require.ElementsMatch(t, []model.AmplifierAction{
		model.AmplifierActionVolume, model.AmplifierActionMute, model.AmplifierActionVolumeUpDown,
	}, state.SupportedActions)
	require.NotNil(t, state.Volume)
	require.InDelta(t, 0.5, *state.Volume, 0.0001)
}

func TestStreamMagicAmplifierControlBusModeReportsVolumeUpDownOnly(t *testing.T) {
	a := NewStreamMagicAmplifierAdapter("CXNv2", "streamer.local")

	a.OnMessage(0, []byte(`{"path": "/zone/state", "params": {"data": {"power": true, "mute": false, "pre_amp_mode": false, "cbus": "amplifier", "volume_step": 0}}}`))

	state := a.State()
	require.Equal(t, []model.AmplifierAction{model.AmplifierActionVolumeUpDown}, state.SupportedActions)
}

func TestStreamMagicAmplifierNeitherModeReportsNoActions(t *testing.T) {
	a := NewStreamMagicAmplifierAdapter("CXNv2", "streamer.local")

	a.OnMessage(0, []byte(`{"path": "/zone/state", "params": {"data": {"power": true, "mute": false, "pre_amp_mode": false, "cbus": "none", "volume_step": 0}}}`))

	state := a.State()
	require.Equal(t, model.PowerOn, state.Power)
	require.Empty(t, state.SupportedActions)
}

func TestStreamMagicAmplifierSetPowerUnsupported(t *testing.T) {
	a := NewStreamMagicAmplifierAdapter("CXNv2", "streamer.local")
	err := a.SetPower(context.Background(), true)
	require.Error(t, err)
}

func TestStreamMagicAmplifierSetVolumeRejectedOutsidePreAmpMode(t *testing.T) {
	a := NewStreamMagicAmplifierAdapter("CXNv2", "streamer.local")
	a.OnMessage(0, []byte(`{"path": "/zone/state", "params": {"data": {"power": true, "mute": false, "pre_amp_mode": false, "cbus": "amplifier", "volume_step": 0}}}`))

	err := a.SetVolume(context.Background(), 0.5)
	require.Error(t, err)
}
