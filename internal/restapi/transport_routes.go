package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
)

// RegisterTransportRoutes wires /transport/*, grounded on
// original_source/vibin/server/routers/transport.py.
func RegisterTransportRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodPost, "/transport/play", api.Handler(deps.transportPlay))
	router.Method(http.MethodPost, "/transport/pause", api.Handler(deps.transportPause))
	router.Method(http.MethodPost, "/transport/stop", api.Handler(deps.transportStop))
	router.Method(http.MethodPost, "/transport/toggle_playback", api.Handler(deps.transportTogglePlayback))
	router.Method(http.MethodPost, "/transport/next", api.Handler(deps.transportNext))
	router.Method(http.MethodPost, "/transport/previous", api.Handler(deps.transportPrevious))
	router.Method(http.MethodPost, "/transport/repeat", api.Handler(deps.transportRepeat))
	router.Method(http.MethodPost, "/transport/shuffle", api.Handler(deps.transportShuffle))
	router.Method(http.MethodPost, "/transport/seek", api.Handler(deps.transportSeek))
	router.Method(http.MethodGet, "/transport/position", api.Handler(deps.transportPosition))
	router.Method(http.MethodPost, "/transport/play/{mediaId}", api.Handler(deps.transportPlayMedia))
}

func (d *Dependencies) transportPlay(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.Play(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportPause(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.Pause(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportStop(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.StopPlayback(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportTogglePlayback(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.TogglePlayback(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportNext(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.Next(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportPrevious(w http.ResponseWriter, r *http.Request) error {
	if err := d.StreamerAdapter.Previous(r.Context()); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

// transportRepeat toggles repeat, since the streamer adapter only takes
// an explicit on/off and the REST surface (per transport.py's
// streamer.repeat("toggle")) exposes only a toggle.
func (d *Dependencies) transportRepeat(w http.ResponseWriter, r *http.Request) error {
	current := d.StreamerAdapter.TransportState()
	on := current.Repeat == "off"
	if err := d.StreamerAdapter.SetRepeat(r.Context(), on); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

// transportShuffle toggles shuffle; same rationale as transportRepeat.
func (d *Dependencies) transportShuffle(w http.ResponseWriter, r *http.Request) error {
	current := d.StreamerAdapter.TransportState()
	on := current.Shuffle == "off"
	if err := d.StreamerAdapter.SetShuffle(r.Context(), on); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportSeek(w http.ResponseWriter, r *http.Request) error {
	target := r.URL.Query().Get("target")
	if target == "" {
		return apperrors.NewInputError("missing target", nil)
	}
	if err := d.StreamerAdapter.Seek(r.Context(), target); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func (d *Dependencies) transportPosition(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, map[string]any{"position": d.playheadPositionSeconds()})
	return nil
}

func (d *Dependencies) transportPlayMedia(w http.ResponseWriter, r *http.Request) error {
	mediaId := chi.URLParam(r, "mediaId")
	if err := d.Hub.PlayTrack(r.Context(), mediaId); err != nil {
		return err
	}
	return writeTransportState(d, w)
}

func writeTransportState(d *Dependencies, w http.ResponseWriter) error {
	api.WriteResource(w, d.StreamerAdapter.TransportState())
	return nil
}
