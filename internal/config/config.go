// Package config loads the engine's configuration from the environment,
// applying defaults the way a headless daemon with no config file should.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the engine's runtime configuration.
type Config struct {
	Host string
	Port string

	SQLiteDBPath string

	JWTSecret           string
	JWTAccessExpirySec  int
	AuthDisabled        bool

	// StreamerSpecifier and MediaServerSpecifier pin the engine to a specific
	// device rather than the first one discovery happens to find, expressed
	// as a device description URL, a hostname probed over SMOIP, or a UPnP
	// friendly name. AmplifierSpecifier is
	// optional; an empty string means no amplifier adapter is started.
	StreamerSpecifier     string
	MediaServerSpecifier  string
	AmplifierSpecifier    string

	// Discovery controls.
	SSDPDiscoveryTimeoutMs int
	SSDPDiscoveryPasses    int
	SSDPPassIntervalMs     int
	StaticDeviceIPs        []string
	DeviceClassificationPath string

	// UPnP eventing.
	UPnPSubscriptionTimeoutSec int
	UPnPRenewalBufferSec       int
	UPnPStateCacheTTLSeconds   int

	// Media-server adapter.
	MediaServerMaxConcurrentBrowse int
	MetadataCacheTTLSeconds        int

	// Media-server navigation hints (mediaserver.RootPaths): each a
	// slash-separated path of container titles that the asset adapter
	// follows from the ContentDirectory root container for each catalog
	// view, since there's no standard id for "all albums" etc. across DLNA
	// servers. The default "0" is read as one container title, "0".
	MediaServerAllAlbumsPath  string
	MediaServerNewAlbumsPath  string
	MediaServerAllArtistsPath string

	// Reconciler / rescan.
	PlaylistRescanCronSchedule string

	// Amplifier TCP adapter.
	AmplifierTimeoutMs int

	// External enrichment, each gated on its token being set.
	DiscogsAccessToken string
	GeniusAccessToken  string
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	host := envString("VIBIN_HOST", "0.0.0.0")
	port := envString("VIBIN_PORT", "8080")
	sqlitePath := envString("VIBIN_DB_PATH", "./data/vibin.db")

	jwtSecret := envString("VIBIN_JWT_SECRET", "")
	authDisabled := envBool("VIBIN_AUTH_DISABLED", false)
	if !authDisabled && len(strings.TrimSpace(jwtSecret)) < 32 {
		return Config{}, fmt.Errorf("VIBIN_JWT_SECRET must be at least 32 characters (or set VIBIN_AUTH_DISABLED=true)")
	}
	jwtAccessExpiry := envInt("VIBIN_JWT_ACCESS_TOKEN_EXPIRY", 3600)

	streamerSpec := envString("VIBIN_STREAMER", "")
	mediaServerSpec := envString("VIBIN_MEDIA_SERVER", "")
	amplifierSpec := envString("VIBIN_AMPLIFIER", "")

	ssdpTimeout := envInt("VIBIN_SSDP_DISCOVERY_TIMEOUT_MS", 5000)
	ssdpPasses := envInt("VIBIN_SSDP_DISCOVERY_PASSES", 3)
	ssdpPassInterval := envInt("VIBIN_SSDP_PASS_INTERVAL_MS", 2000)
	staticIPs := envCSV("VIBIN_STATIC_DEVICE_IPS")
	classificationPath := envString("VIBIN_DEVICE_CLASSIFICATION_PATH", "")

	upnpSubscriptionTimeout := envInt("VIBIN_UPNP_SUBSCRIPTION_TIMEOUT_SEC", 1800)
	upnpRenewalBuffer := envInt("VIBIN_UPNP_RENEWAL_BUFFER_SEC", 60)
	if upnpRenewalBuffer < 10 {
		upnpRenewalBuffer = 10
	}
	upnpStateCacheTTL := envInt("VIBIN_UPNP_STATE_CACHE_TTL_SECONDS", 30)

	maxConcurrentBrowse := envInt("VIBIN_MEDIA_SERVER_MAX_CONCURRENT_BROWSE", 2)
	metadataCacheTTL := envInt("VIBIN_METADATA_CACHE_TTL_SECONDS", 5)

	allAlbumsPath := envString("VIBIN_MEDIA_SERVER_ALL_ALBUMS_PATH", "0")
	newAlbumsPath := envString("VIBIN_MEDIA_SERVER_NEW_ALBUMS_PATH", "0")
	allArtistsPath := envString("VIBIN_MEDIA_SERVER_ALL_ARTISTS_PATH", "0")

	rescanSchedule := envString("VIBIN_PLAYLIST_RESCAN_CRON", "*/15 * * * *")

	amplifierTimeout := envInt("VIBIN_AMPLIFIER_TIMEOUT_MS", 3000)

	discogsToken := envString("DISCOGS_ACCESS_TOKEN", "")
	geniusToken := envString("GENIUS_ACCESS_TOKEN", "")

	return Config{
		Host:                            host,
		Port:                            port,
		SQLiteDBPath:                    sqlitePath,
		JWTSecret:                       jwtSecret,
		JWTAccessExpirySec:              jwtAccessExpiry,
		AuthDisabled:                    authDisabled,
		StreamerSpecifier:               streamerSpec,
		MediaServerSpecifier:            mediaServerSpec,
		AmplifierSpecifier:              amplifierSpec,
		SSDPDiscoveryTimeoutMs:          ssdpTimeout,
		SSDPDiscoveryPasses:             ssdpPasses,
		SSDPPassIntervalMs:              ssdpPassInterval,
		StaticDeviceIPs:                 staticIPs,
		DeviceClassificationPath:        classificationPath,
		UPnPSubscriptionTimeoutSec:      upnpSubscriptionTimeout,
		UPnPRenewalBufferSec:            upnpRenewalBuffer,
		UPnPStateCacheTTLSeconds:        upnpStateCacheTTL,
		MediaServerMaxConcurrentBrowse:  maxConcurrentBrowse,
		MetadataCacheTTLSeconds:         metadataCacheTTL,
		MediaServerAllAlbumsPath:        allAlbumsPath,
		MediaServerNewAlbumsPath:        newAlbumsPath,
		MediaServerAllArtistsPath:       allArtistsPath,
		PlaylistRescanCronSchedule:      rescanSchedule,
		AmplifierTimeoutMs:              amplifierTimeout,
		DiscogsAccessToken:              discogsToken,
		GeniusAccessToken:               geniusToken,
	}, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
