package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchDescription GETs and parses the device description document at
// locationURL.
func FetchDescription(ctx context.Context, client *http.Client, locationURL string) (*DeviceDescription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locationURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", locationURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", locationURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseDeviceDescription(locationURL, body)
}

// wellKnownDescriptionPaths are tried against a static IP when it wasn't
// found via SSDP (it may be on a different subnet, or SSDP may be blocked
// by network policy) and no port/path is already known for it.
var wellKnownDescriptionPaths = []string{
	"/description.xml",
	"/DeviceDescription.xml",
	"/dd.xml",
	"/rootDesc.xml",
}

// ProbeStaticIP tries a sequence of well-known device description paths
// against a bare IP, returning the first one that parses successfully.
// Used to recover devices a caller has pinned by IP (config specifier)
// but that SSDP didn't discover, e.g. due to multicast being filtered on
// the network.
func ProbeStaticIP(ctx context.Context, client *http.Client, ip string) (*DeviceDescription, error) {
	var lastErr error
	for _, path := range wellKnownDescriptionPaths {
		locationURL := fmt.Sprintf("http://%s%s", ip, path)
		desc, err := FetchDescription(ctx, client, locationURL)
		if err == nil {
			return desc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("probing %s: %w", ip, lastErr)
}

// NewProbeClient builds the HTTP client used for description fetches and
// static-IP probing, with a bounded per-request timeout so one
// unreachable IP can't stall an entire discovery pass.
func NewProbeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
