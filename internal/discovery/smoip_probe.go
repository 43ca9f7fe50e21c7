package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// smoipUPnPResponse is the subset of a Cambridge Audio
// `smoip/system/upnp` response needed to locate the device's own UPnP
// description document.
type smoipUPnPResponse struct {
	Data struct {
		Device struct {
			Manufacturer  string `json:"manufacturer"`
			DescriptionURL string `json:"description_url"`
		} `json:"device"`
	} `json:"data"`
}

const expectedSMOIPManufacturer = "Cambridge Audio"

// ProbeSMOIP asks host's smoip/system/upnp endpoint for its UPnP
// description URL. Any response that doesn't name the expected
// manufacturer, or any transport failure, is treated as a probe miss
// rather than a hard error — the caller is expected to fall back to SSDP.
func ProbeSMOIP(ctx context.Context, client *http.Client, host string) (string, error) {
	smoipURL := fmt.Sprintf("http://%s/smoip/system/upnp", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, smoipURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("smoip probe of %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("smoip probe of %s: unexpected status %d", host, resp.StatusCode)
	}

	var parsed smoipUPnPResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("smoip probe of %s: decoding response: %w", host, err)
	}

	if parsed.Data.Device.Manufacturer != expectedSMOIPManufacturer {
		return "", fmt.Errorf("smoip probe of %s: unexpected manufacturer %q", host, parsed.Data.Device.Manufacturer)
	}
	if parsed.Data.Device.DescriptionURL == "" {
		return "", fmt.Errorf("smoip probe of %s: response missing description_url", host)
	}

	return parsed.Data.Device.DescriptionURL, nil
}
