// Package server assembles the engine's HTTP handler: device discovery,
// adapter construction, the Hub, the reconciler, and every REST/WebSocket
// route, the generalized adaptation of the teacher's own NewHandler
// (internal/server/server.go), which does the same one-shot "discover,
// build every service, wire every route" assembly for a Sonos system.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/kshepherd/vibin-go/internal/amplifier"
	"github.com/kshepherd/vibin-go/internal/api"
	"github.com/kshepherd/vibin-go/internal/config"
	"github.com/kshepherd/vibin-go/internal/db"
	"github.com/kshepherd/vibin-go/internal/discovery"
	"github.com/kshepherd/vibin-go/internal/external"
	"github.com/kshepherd/vibin-go/internal/hub"
	"github.com/kshepherd/vibin-go/internal/mediaserver"
	"github.com/kshepherd/vibin-go/internal/reconciler"
	"github.com/kshepherd/vibin-go/internal/restapi"
	"github.com/kshepherd/vibin-go/internal/store"
	"github.com/kshepherd/vibin-go/internal/streamer"
	"github.com/kshepherd/vibin-go/internal/upnp/events"
	"github.com/kshepherd/vibin-go/internal/upnp/soap"
)

// Options controls server wiring, analogous to the teacher's
// Options{DisableDiscovery bool}.
type Options struct {
	// DisableDiscovery skips SSDP search entirely; only URL-shaped or
	// SMOIP-probeable specifiers will resolve. Intended for tests that
	// point directly at a fake device server.
	DisableDiscovery bool
}

// NewHandler builds the HTTP handler and returns a shutdown function,
// mirroring the teacher's NewHandler(cfg, Options) (http.Handler,
// func(context.Context) error, error) signature.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("SERVER: using database at %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	favoritesRepo := store.NewFavoritesRepository(dbPair)
	playlistsRepo := store.NewPlaylistsRepository(dbPair)
	lyricsRepo := store.NewLyricsRepository(dbPair)
	linksRepo := store.NewLinksRepository(dbPair)
	settingsRepo := store.NewSettingsRepository(dbPair)

	classification, err := discovery.LoadClassificationTable(cfg.DeviceClassificationPath)
	if err != nil {
		return nil, nil, err
	}

	discoveryOpts := discovery.Options{
		SSDPTimeout:  time.Duration(cfg.SSDPDiscoveryTimeoutMs) * time.Millisecond,
		SSDPPasses:   cfg.SSDPDiscoveryPasses,
		PassInterval: time.Duration(cfg.SSDPPassIntervalMs) * time.Millisecond,
		ProbeTimeout: 3 * time.Second,
	}
	if options.DisableDiscovery {
		discoveryOpts.SSDPPasses = 0
	}

	soapClient := soap.NewClient(10 * time.Second)

	discoverCtx, discoverCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer discoverCancel()

	streamerDesc, err := discovery.ResolveStreamer(discoverCtx, cfg.StreamerSpecifier, discoveryOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving streamer: %w", err)
	}
	log.Printf("SERVER: streamer resolved: %s (%s)", streamerDesc.FriendlyName, streamerDesc.ModelName)

	var mediaServerAdapter mediaserver.Adapter
	mediaServerDesc, err := discovery.ResolveMediaServer(discoverCtx, cfg.MediaServerSpecifier, streamerDesc, discoveryOpts, nil)
	if err != nil {
		log.Printf("SERVER: no media server resolved, continuing without one: %v", err)
	} else {
		log.Printf("SERVER: media server resolved: %s (%s)", mediaServerDesc.FriendlyName, mediaServerDesc.ModelName)
		contentDirURL, findErr := serviceControlURL(mediaServerDesc, "ContentDirectory")
		if findErr != nil {
			log.Printf("SERVER: media server has no ContentDirectory service, continuing without one: %v", findErr)
		} else {
			mediaServerAdapter = mediaserver.NewAssetAdapter(mediaServerDesc.FriendlyName, mediaServerDesc.UDN, contentDirURL, soapClient, mediaserver.RootPaths{
				AllAlbums:  cfg.MediaServerAllAlbumsPath,
				NewAlbums:  cfg.MediaServerNewAlbumsPath,
				AllArtists: cfg.MediaServerAllArtistsPath,
			})
		}
	}

	port, _ := strconv.Atoi(cfg.Port)
	eventsManager := events.NewManager(events.ManagerConfig{
		Enabled:             true,
		CallbackPort:        port,
		SubscriptionTimeout: cfg.UPnPSubscriptionTimeoutSec,
		RenewalBuffer:       cfg.UPnPRenewalBufferSec,
		StateCacheTTL:       time.Duration(cfg.UPnPStateCacheTTLSeconds) * time.Second,
		Services: []events.ServiceType{
			events.ServiceAVTransport,
			events.ServiceRenderingControl,
		},
	}, port)

	streamerRole, streamerAdapterName, classified := classification.Classify(streamerDesc)
	_ = streamerRole
	var streamerAdapter streamer.Adapter
	if classified && streamerAdapterName == "cxnv2" {
		avTransportURL, err := serviceControlURL(streamerDesc, "AVTransport")
		if err != nil {
			return nil, nil, fmt.Errorf("streamer has no AVTransport service: %w", err)
		}
		renderingURL, err := serviceControlURL(streamerDesc, "RenderingControl")
		if err != nil {
			return nil, nil, fmt.Errorf("streamer has no RenderingControl service: %w", err)
		}
		streamerAdapter = streamer.NewCXNv2Adapter(streamerDesc.UDN, avTransportURL, renderingURL, soapClient, eventsManager, mediaServerAdapter)
	} else {
		streamerAdapter = streamer.NewStreamMagicAdapter(hostOf(streamerDesc.BaseURL), mediaServerAdapter)
	}

	if err := streamerAdapter.Start(discoverCtx); err != nil {
		return nil, nil, fmt.Errorf("starting streamer adapter: %w", err)
	}

	var ampAdapter amplifier.Adapter
	ampTarget, err := discovery.ResolveAmplifier(discoverCtx, cfg.AmplifierSpecifier, discoveryOpts)
	if err != nil {
		log.Printf("SERVER: amplifier resolution failed, continuing without one: %v", err)
	} else if ampTarget != nil {
		if ampTarget.HegelAddr != "" {
			ampAdapter = amplifier.NewHegelAdapter("amplifier", ampTarget.HegelAddr)
		} else if ampTarget.Device != nil {
			ampAdapter = amplifier.NewStreamMagicAmplifierAdapter(ampTarget.Device.FriendlyName, hostOf(ampTarget.Device.BaseURL))
		}
		if ampAdapter != nil {
			if err := ampAdapter.Start(discoverCtx); err != nil {
				log.Printf("SERVER: amplifier failed to start, continuing without one: %v", err)
				ampAdapter = nil
			}
		}
	}

	if err := eventsManager.Start(); err != nil {
		log.Printf("SERVER: UPnP event manager failed to start: %v", err)
	}

	logger := log.Default()

	queueReconciler := reconciler.New(streamerAdapter, playlistsRepo, logger)
	theHub := hub.New(streamerAdapter, mediaServerAdapter, ampAdapter, queueReconciler, favoritesRepo, logger)
	queueReconciler.Subscribe(theHub)
	if err := queueReconciler.CheckOnStartup(); err != nil {
		log.Printf("SERVER: reconciler startup check failed: %v", err)
	}

	// An administrator-configurable rescan cadence, the same
	// cron-expression control the teacher gives routine schedules:
	// the parser validates the expression up front, and a real
	// cron.Cron instance (not a fixed-interval ticker) drives the
	// periodic media-cache clear + stored-playlist reconciliation.
	var rescanCron *cron.Cron
	if cfg.PlaylistRescanCronSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.PlaylistRescanCronSchedule); err != nil {
			log.Printf("SERVER: invalid rescan schedule %q, periodic rescan disabled: %v", cfg.PlaylistRescanCronSchedule, err)
		} else {
			rescanCron = cron.New()
			if _, err := rescanCron.AddFunc(cfg.PlaylistRescanCronSchedule, func() {
				if mediaServerAdapter != nil {
					mediaServerAdapter.ClearCaches()
				}
				if err := queueReconciler.CheckOnStartup(); err != nil {
					log.Printf("SERVER: periodic rescan check failed: %v", err)
				}
			}); err != nil {
				log.Printf("SERVER: failed to schedule rescan: %v", err)
				rescanCron = nil
			} else {
				rescanCron.Start()
			}
		}
	}

	var discogsClient external.LinksProvider
	if cfg.DiscogsAccessToken != "" {
		discogsClient = external.NewDiscogsClient("vibin-go", cfg.DiscogsAccessToken)
	}
	var geniusClient *external.GeniusClient
	if cfg.GeniusAccessToken != "" {
		geniusClient = external.NewGeniusClient(cfg.GeniusAccessToken)
	}
	var waveformGenerator *external.WaveformGenerator
	if mediaServerAdapter != nil {
		waveformGenerator = external.NewWaveformGenerator(mediaServerAdapter)
	}

	deps := restapi.NewDependencies(restapi.Dependencies{
		Cfg:             cfg,
		Hub:             theHub,
		StreamerAdapter: streamerAdapter,
		MediaServer:     mediaServerAdapter,
		Amplifier:       ampAdapter,
		Reconciler:      queueReconciler,
		Favorites:       favoritesRepo,
		Playlists:       playlistsRepo,
		Lyrics:          lyricsRepo,
		Links:           linksRepo,
		Settings:        settingsRepo,
		Discogs:         discogsClient,
		Genius:          geniusClient,
		Waveform:        waveformGenerator,
		Logger:          logger,
	})

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(api.RequestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(restapi.AuthMiddleware(cfg))

	registerHealthRoutes(router)
	restapi.RegisterTransportRoutes(router, deps)
	restapi.RegisterQueueRoutes(router, deps)
	restapi.RegisterCatalogRoutes(router, deps)
	restapi.RegisterSystemRoutes(router, deps)
	restapi.RegisterFavoritesRoutes(router, deps)
	restapi.RegisterPlaylistsRoutes(router, deps)
	restapi.RegisterPresetsRoutes(router, deps)
	restapi.RegisterVibinRoutes(router, deps)
	restapi.RegisterWebSocketRoutes(router, deps)

	callbackHandler := events.NewCallbackHandler(eventsManager)
	upnpMux := http.NewServeMux()
	upnpMux.Handle("/upnp/notify", callbackHandler)
	upnpMux.Handle("/upnp/notify/avtransport", callbackHandler)
	upnpMux.Handle("/upnp/notify/renderingcontrol", callbackHandler)

	// NOTIFY is not a method chi's router will ever match a registered
	// route against, so /upnp/ traffic is dispatched to a bare ServeMux
	// ahead of the chi router, same as the teacher's handler wrapper.
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/upnp/") {
			upnpMux.ServeHTTP(w, r)
			return
		}
		router.ServeHTTP(w, r)
	})

	shutdown := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if rescanCron != nil {
			<-rescanCron.Stop().Done()
		}
		if err := eventsManager.Stop(ctx); err != nil {
			log.Printf("SERVER: error stopping UPnP event manager: %v", err)
		}
		if ampAdapter != nil {
			ampAdapter.Close()
		}
		if err := streamerAdapter.Close(); err != nil {
			log.Printf("SERVER: error closing streamer adapter: %v", err)
		}
		return dbPair.Close()
	}

	return handler, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "vibin-go",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return nil
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return nil
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return nil
	}))
}

// serviceControlURL finds the control URL for the first service whose
// ServiceType contains typeFragment (e.g. "AVTransport"), resolving it
// against the description's BaseURL if it isn't already absolute.
func serviceControlURL(desc *discovery.DeviceDescription, typeFragment string) (string, error) {
	for _, svc := range desc.Services {
		if strings.Contains(svc.ServiceType, typeFragment) {
			return resolveURL(desc.BaseURL, svc.ControlURL)
		}
	}
	return "", fmt.Errorf("no %s service found on %s", typeFragment, desc.FriendlyName)
}

func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// hostOf strips the scheme from a device description's BaseURL, since
// the smoip dialect's WebSocket/HTTP clients take a bare host[:port].
func hostOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	return parsed.Host
}
