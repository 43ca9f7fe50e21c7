package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
)

// RegisterSystemRoutes wires /system/*, grounded on
// original_source/vibin/server/routers/system.py.
func RegisterSystemRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodPost, "/system/streamer/power_toggle", api.Handler(deps.systemStreamerPowerToggle))
	router.Method(http.MethodPost, "/system/streamer/source", api.Handler(deps.systemStreamerSource))
	router.Method(http.MethodGet, "/system/streamer/device_display", api.Handler(deps.systemStreamerDeviceDisplay))
	router.Method(http.MethodGet, "/system/statevars", api.Handler(deps.systemStateVars))
}

// systemStreamerPowerToggle toggles power. system.py calls this on
// streamer.power_toggle(), but in this port the streamer adapter has no
// power command (it only reports the streamer's power state), so this
// toggles the amplifier's power instead, based on the amplifier's own
// reported power state.
func (d *Dependencies) systemStreamerPowerToggle(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireAmplifier(); err != nil {
		return err
	}
	on := d.Amplifier.State().Power != model.PowerOn
	if err := d.Amplifier.SetPower(r.Context(), on); err != nil {
		return err
	}
	api.WriteResource(w, d.Hub.SystemState())
	return nil
}

// systemStreamerSource passes through to the amplifier's input
// selector for the same reason as systemStreamerPowerToggle.
func (d *Dependencies) systemStreamerSource(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireAmplifier(); err != nil {
		return err
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		return apperrors.NewInputError("missing source", nil)
	}
	if err := d.Amplifier.SetSource(r.Context(), source); err != nil {
		return err
	}
	api.WriteResource(w, d.Hub.SystemState())
	return nil
}

// systemStreamerDeviceDisplay surfaces the streamer's last-seen raw
// display payload, matching device_display's read of the streamer's
// current front-panel display state.
func (d *Dependencies) systemStreamerDeviceDisplay(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, d.StreamerAdapter.State().Display)
	return nil
}

// systemStateVars is deprecated in the original too; it returns the raw
// UPnP state variables vibin polls, same data as device_display.
func (d *Dependencies) systemStateVars(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, d.Hub.UPnPProperties())
	return nil
}
