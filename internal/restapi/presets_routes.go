package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
)

// RegisterPresetsRoutes wires /presets/*, grounded on
// original_source/vibin/server/routers/presets.py.
func RegisterPresetsRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodGet, "/presets", api.Handler(deps.presetsList))
	router.Method(http.MethodGet, "/presets/{presetId}", api.Handler(deps.presetByID))
	router.Method(http.MethodPost, "/presets/{presetId}/play", api.Handler(deps.presetPlay))
}

func (d *Dependencies) presetsList(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, map[string]any{"presets": d.StreamerAdapter.Presets()})
	return nil
}

func (d *Dependencies) presetByID(w http.ResponseWriter, r *http.Request) error {
	presetId, err := requireIntParam("presetId", chi.URLParam(r, "presetId"))
	if err != nil {
		return err
	}
	for _, preset := range d.StreamerAdapter.Presets() {
		if preset.ID == presetId {
			api.WriteResource(w, preset)
			return nil
		}
	}
	return apperrors.NewNotFoundResource("preset", chi.URLParam(r, "presetId"))
}

func (d *Dependencies) presetPlay(w http.ResponseWriter, r *http.Request) error {
	presetId, err := requireIntParam("presetId", chi.URLParam(r, "presetId"))
	if err != nil {
		return err
	}
	if err := d.StreamerAdapter.PlayPresetId(r.Context(), presetId); err != nil {
		return err
	}
	api.WriteNoContent(w)
	return nil
}
