// Package restapi exposes the engine's REST/WebSocket command surface:
// every handler in this package is a thin translation from an HTTP
// request to a Hub/adapter/reconciler/store call and back, per spec.md
// §6's endpoint table. It is the generalized adaptation of the teacher's
// per-domain `routes.go` files (devices, sonos, system, settings) to
// vibin's own domain.
package restapi

import (
	"log"
	"sync"

	"github.com/kshepherd/vibin-go/internal/amplifier"
	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/config"
	"github.com/kshepherd/vibin-go/internal/external"
	"github.com/kshepherd/vibin-go/internal/hub"
	"github.com/kshepherd/vibin-go/internal/mediaserver"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/reconciler"
	"github.com/kshepherd/vibin-go/internal/store"
	"github.com/kshepherd/vibin-go/internal/streamer"
)

// Dependencies holds every collaborator a route file needs. The Hub
// alone isn't enough: several endpoints (raw transport controls, queue
// reordering, playlist CRUD, favorites mutation, external enrichment)
// reach past the Hub's narrower snapshot/command-shortcut surface to the
// concrete adapters, the concrete *reconciler.Reconciler (not just the
// Hub's QueueReconciler interface) and the store repositories directly,
// the same way the teacher's route files hold direct service references
// rather than routing everything through one facade.
type Dependencies struct {
	Cfg config.Config

	Hub             *hub.Hub
	StreamerAdapter streamer.Adapter
	MediaServer     mediaserver.Adapter // nilable
	Amplifier       amplifier.Adapter   // nilable
	Reconciler      *reconciler.Reconciler

	Favorites *store.FavoritesRepository
	Playlists *store.PlaylistsRepository
	Lyrics    *store.LyricsRepository
	Links     *store.LinksRepository
	Settings  *store.SettingsRepository

	Discogs   external.LinksProvider  // nilable
	Genius    *external.GeniusClient  // nilable; also a LyricsProvider
	Waveform  *external.WaveformGenerator

	Logger *log.Logger

	positionMu  sync.RWMutex
	lastPosition map[string]any

	wsClientsMu sync.Mutex
	wsClients   int
}

// NewDependencies wires a Dependencies and subscribes it to the Hub so
// /transport/position can answer from the last Position update without
// polling the streamer directly — the streamer only ever pushes position,
// it has no snapshot getter (matching /zone/play_state being a push-only
// notification in the StreamMagic dialect).
func NewDependencies(deps Dependencies) *Dependencies {
	d := &deps
	d.Hub.Subscribe(func(msg model.UpdateMessage) {
		if msg.Type != model.UpdatePosition {
			return
		}
		raw, ok := msg.Payload.(map[string]any)
		if !ok {
			return
		}
		d.positionMu.Lock()
		d.lastPosition = raw
		d.positionMu.Unlock()
	})
	return d
}

func (d *Dependencies) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

// requireMediaServer mirrors hub.Hub.requireMediaServer for route
// handlers that bypass the Hub and call the adapter directly.
func (d *Dependencies) requireMediaServer() error {
	if d.MediaServer == nil {
		return apperrors.NewMissingDependencyError("media server")
	}
	return nil
}

// requireAmplifier gates the /system amplifier-passthrough endpoints.
func (d *Dependencies) requireAmplifier() error {
	if d.Amplifier == nil {
		return apperrors.NewMissingDependencyError("amplifier")
	}
	return nil
}

// playheadPositionSeconds extracts a whole-seconds position from the
// last raw Position update, defaulting to 0 before any update has
// arrived. The raw payload's key vocabulary is device-dialect-specific
// (StreamMagic's /zone/play_state), so this looks for either spelling
// rather than assuming one.
func (d *Dependencies) playheadPositionSeconds() int {
	d.positionMu.RLock()
	raw := d.lastPosition
	d.positionMu.RUnlock()

	for _, key := range []string{"position", "playheadPosition", "seek_position"} {
		if v, ok := raw[key]; ok {
			switch n := v.(type) {
			case int:
				return n
			case float64:
				return int(n)
			}
		}
	}
	return 0
}
