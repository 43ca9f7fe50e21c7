package amplifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

type capturingStateHandler struct {
	states []model.AmplifierState
}

func (h *capturingStateHandler) OnState(s model.AmplifierState) {
	h.states = append(h.states, s)
}

func TestHegelOnLineUpdatesPowerVolumeMuteSource(t *testing.T) {
	a := NewHegelAdapter("Living Room Hegel", "192.168.1.50:50001")
	handler := &capturingStateHandler{}
	a.Subscribe(handler)

	a.OnLine("-p.1")
	a.OnLine("-v.45")
	a.OnLine("-m.0")
	a.OnLine("-i.3")

	state := a.State()
	require.Equal(t, model.PowerOn, state.Power)
	require.NotNil(t, state.Volume)
	require.InDelta(t, 0.45, *state.Volume, 0.0001)
	require.Equal(t, model.PowerOff, state.Mute)
	require.Equal(t, "3", state.Sources.Active.ID)
	require.Len(t, handler.states, 4)
}

func TestHegelOnLineIgnoresDeviceErrorResponse(t *testing.T) {
	a := NewHegelAdapter("Hegel", "192.168.1.50:50001")
	handler := &capturingStateHandler{}
	a.Subscribe(handler)

	a.OnLine("-e.unsupported")

	require.Empty(t, handler.states)
}

func TestHegelSetVolumeRejectsOutOfRange(t *testing.T) {
	a := NewHegelAdapter("Hegel", "192.168.1.50:50001")
	err := a.SetVolume(context.Background(), 1.5)
	require.Error(t, err)
}

func TestHegelSetSourceRejectsOutOfRange(t *testing.T) {
	a := NewHegelAdapter("Hegel", "192.168.1.50:50001")
	err := a.SetSource(context.Background(), "11")
	require.Error(t, err)
}

func TestHegelPacketFraming(t *testing.T) {
	require.Equal(t, []byte("-p.1\r"), hegelPacket("p", "1"))
	require.Equal(t, []byte("-v.u\r"), hegelPacket("v", "u"))
}
