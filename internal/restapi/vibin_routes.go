package restapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/apperrors"
)

const (
	settingsKey = "vibin_settings"
	dbKey       = "vibin_db"
)

// RegisterVibinRoutes wires /vibin/*, grounded on
// original_source/vibin/server/routers/vibin.py and base.py's
// settings/db_get/db_set properties.
func RegisterVibinRoutes(router chi.Router, deps *Dependencies) {
	router.Method(http.MethodGet, "/vibin/summary", api.Handler(deps.vibinSummary))
	router.Method(http.MethodGet, "/vibin/status", api.Handler(deps.vibinStatus))
	router.Method(http.MethodPost, "/vibin/clear_media_caches", api.Handler(deps.vibinClearMediaCaches))
	router.Method(http.MethodGet, "/vibin/settings", api.Handler(deps.vibinSettingsGet))
	router.Method(http.MethodPut, "/vibin/settings", api.Handler(deps.vibinSettingsPut))
	router.Method(http.MethodGet, "/vibin/db", api.Handler(deps.vibinDbGet))
	router.Method(http.MethodPut, "/vibin/db", api.Handler(deps.vibinDbPut))
}

func (d *Dependencies) vibinSummary(w http.ResponseWriter, r *http.Request) error {
	streamerState := d.StreamerAdapter.State()
	summary := fmt.Sprintf("Vibin engine, streamer=%s", streamerState.Name)
	api.WriteResource(w, map[string]any{"summary": summary})
	return nil
}

func (d *Dependencies) vibinStatus(w http.ResponseWriter, r *http.Request) error {
	api.WriteResource(w, d.Hub.VibinStatus())
	return nil
}

// vibinClearMediaCaches clears cached album/artist/track listings so a
// rescan of the UPnP media server is reflected immediately, matching
// vibin_clear_media_caches' @requires_media gate.
func (d *Dependencies) vibinClearMediaCaches(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	d.MediaServer.ClearCaches()
	api.WriteNoContent(w)
	return nil
}

func (d *Dependencies) vibinSettingsGet(w http.ResponseWriter, r *http.Request) error {
	value, ok, err := d.Settings.Get(settingsKey)
	if err != nil {
		return err
	}
	if !ok {
		api.WriteResource(w, map[string]any{})
		return nil
	}
	var settings map[string]any
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return apperrors.NewInternal("stored settings are not valid JSON: " + err.Error())
	}
	api.WriteResource(w, settings)
	return nil
}

// vibinSettingsPut replaces the settings blob wholesale, matching
// vibin_update_settings's "settings = settings" semantics — there is no
// per-field patching.
func (d *Dependencies) vibinSettingsPut(w http.ResponseWriter, r *http.Request) error {
	if err := d.requireMediaServer(); err != nil {
		return err
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperrors.NewInputError("failed to read request body", nil)
	}
	var settings map[string]any
	if err := json.Unmarshal(body, &settings); err != nil {
		return apperrors.NewInputError("invalid request body", nil)
	}
	if err := d.Settings.Set(settingsKey, string(body)); err != nil {
		return err
	}
	api.WriteResource(w, settings)
	return nil
}

func (d *Dependencies) vibinDbGet(w http.ResponseWriter, r *http.Request) error {
	value, ok, err := d.Settings.Get(dbKey)
	if err != nil {
		return err
	}
	if !ok {
		api.WriteResource(w, map[string]any{})
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return apperrors.NewInternal("stored db contents are not valid JSON: " + err.Error())
	}
	api.WriteResource(w, data)
	return nil
}

// vibinDbPut validates the payload by round-tripping it through
// encoding/json before persisting, matching db_set's json.dumps()
// validation pass — a payload that can't re-encode is rejected with a
// 400 rather than silently corrupting the stored database.
func (d *Dependencies) vibinDbPut(w http.ResponseWriter, r *http.Request) error {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return apperrors.NewInputError("provided payload is not valid JSON: "+err.Error(), nil)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewInputError("provided payload is not valid JSON: "+err.Error(), nil)
	}
	if err := d.Settings.Set(dbKey, string(encoded)); err != nil {
		return err
	}
	api.WriteResource(w, data)
	return nil
}
