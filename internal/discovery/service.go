package discovery

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kshepherd/vibin-go/internal/apperrors"
)

const expectedStreamerVendor = "Cambridge Audio"

// Options bundles the tunables discovery needs from config without taking
// a dependency on the config package itself.
type Options struct {
	SSDPTimeout  time.Duration
	SSDPPasses   int
	PassInterval time.Duration
	ProbeTimeout time.Duration
}

// ResolveStreamer implements the streamer resolution order: empty
// specifier searches SSDP for the first Cambridge Audio MediaRenderer;
// a URL-shaped specifier is loaded directly as a description URL;
// anything else is probed as a SMOIP host, falling back to SSDP
// friendly-name matching.
func ResolveStreamer(ctx context.Context, specifier string, opts Options) (*DeviceDescription, error) {
	client := NewProbeClient(opts.ProbeTimeout)

	if specifier == "" {
		return resolveBySSDPVendorAndType(ctx, client, opts, expectedStreamerVendor, "MediaRenderer", "Could not find streamer on the network")
	}

	if looksLikeURL(specifier) {
		desc, err := FetchDescription(ctx, client, specifier)
		if err != nil {
			return nil, apperrors.NewDeviceError("could not load streamer description from "+specifier, "")
		}
		return desc, nil
	}

	descriptionURL, err := ProbeSMOIP(ctx, client, specifier)
	if err == nil {
		desc, fetchErr := FetchDescription(ctx, client, descriptionURL)
		if fetchErr == nil {
			return desc, nil
		}
		log.Printf("discovery: smoip description fetch for %s failed: %v", specifier, fetchErr)
	} else {
		log.Printf("discovery: smoip probe of %s failed, falling back to SSDP: %v", specifier, err)
	}

	return resolveBySSDPFriendlyName(ctx, client, opts, specifier)
}

// ResolveMediaServer mirrors ResolveStreamer, with an extra path: when no
// specifier is given and the streamer is Cambridge-branded, the streamer
// itself is asked which media server it's using via askStreamer. Absence
// of a media server is not an error — the caller decides whether to
// proceed without one.
func ResolveMediaServer(ctx context.Context, specifier string, streamer *DeviceDescription, opts Options, askStreamer func(ctx context.Context) (string, error)) (*DeviceDescription, error) {
	client := NewProbeClient(opts.ProbeTimeout)

	if specifier == "" {
		if streamer != nil && strings.EqualFold(streamer.Manufacturer, expectedStreamerVendor) && askStreamer != nil {
			asked, err := askStreamer(ctx)
			if err == nil && asked != "" {
				specifier = asked
			} else if err != nil {
				log.Printf("discovery: asking streamer for media server failed: %v", err)
			}
		}
	}

	if specifier == "" {
		return resolveBySSDPVendorAndType(ctx, client, opts, "", "MediaServer", "Could not find media server on the network")
	}

	if looksLikeURL(specifier) {
		desc, err := FetchDescription(ctx, client, specifier)
		if err != nil {
			return nil, apperrors.NewDeviceError("could not load media server description from "+specifier, "")
		}
		return desc, nil
	}

	descriptionURL, err := ProbeSMOIP(ctx, client, specifier)
	if err == nil {
		desc, fetchErr := FetchDescription(ctx, client, descriptionURL)
		if fetchErr == nil {
			return desc, nil
		}
		log.Printf("discovery: smoip description fetch for %s failed: %v", specifier, fetchErr)
	} else {
		log.Printf("discovery: smoip probe of %s failed, falling back to SSDP: %v", specifier, err)
	}

	return resolveBySSDPFriendlyName(ctx, client, opts, specifier)
}

// AmplifierTarget is the result of resolving an amplifier specifier: either
// a raw TCP address (Hegel) or a UPnP/SMOIP device description (Cambridge
// StreamMagic preamp).
type AmplifierTarget struct {
	HegelAddr string
	Device    *DeviceDescription
}

const defaultHegelPort = "50001"

// ResolveAmplifier is supplemental: an empty specifier means no amplifier
// adapter is created. A "host" or "host:port" specifier with no UPnP
// response is treated as a Hegel TCP target; anything that resolves via
// a description URL or the SMOIP probe is treated as a
// StreamMagic-dialect preamp.
func ResolveAmplifier(ctx context.Context, specifier string, opts Options) (*AmplifierTarget, error) {
	if specifier == "" {
		return nil, nil
	}

	client := NewProbeClient(opts.ProbeTimeout)

	if looksLikeURL(specifier) {
		desc, err := FetchDescription(ctx, client, specifier)
		if err != nil {
			return nil, apperrors.NewDeviceError("could not load amplifier description from "+specifier, "")
		}
		return &AmplifierTarget{Device: desc}, nil
	}

	if descriptionURL, err := ProbeSMOIP(ctx, client, specifier); err == nil {
		desc, fetchErr := FetchDescription(ctx, client, descriptionURL)
		if fetchErr == nil {
			return &AmplifierTarget{Device: desc}, nil
		}
	}

	return &AmplifierTarget{HegelAddr: withDefaultPort(specifier, defaultHegelPort)}, nil
}

func resolveBySSDPVendorAndType(ctx context.Context, client *http.Client, opts Options, vendor, deviceTypeFragment, notFoundMessage string) (*DeviceDescription, error) {
	responses, err := Discover(ctx, SearchTargetAll, opts.SSDPPasses, opts.PassInterval, opts.SSDPTimeout)
	if err != nil {
		return nil, apperrors.NewDeviceError("SSDP discovery failed: "+err.Error(), "")
	}

	for _, resp := range responses {
		desc, err := FetchDescription(ctx, client, resp.Location)
		if err != nil {
			continue
		}
		if !strings.Contains(desc.DeviceType, deviceTypeFragment) {
			continue
		}
		if vendor != "" && !strings.EqualFold(desc.Manufacturer, vendor) {
			continue
		}
		return desc, nil
	}

	return nil, apperrors.NewDeviceError(notFoundMessage, "")
}

func resolveBySSDPFriendlyName(ctx context.Context, client *http.Client, opts Options, friendlyName string) (*DeviceDescription, error) {
	responses, err := Discover(ctx, SearchTargetAll, opts.SSDPPasses, opts.PassInterval, opts.SSDPTimeout)
	if err != nil {
		return nil, apperrors.NewDeviceError("SSDP discovery failed: "+err.Error(), "")
	}

	for _, resp := range responses {
		desc, err := FetchDescription(ctx, client, resp.Location)
		if err != nil {
			continue
		}
		if strings.EqualFold(desc.FriendlyName, friendlyName) {
			return desc, nil
		}
	}

	return nil, apperrors.NewNotFound("no device found with friendly name "+friendlyName, map[string]any{
		"friendly_name": friendlyName,
	})
}

func looksLikeURL(specifier string) bool {
	parsed, err := url.Parse(specifier)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func withDefaultPort(hostOrHostPort, defaultPort string) string {
	if strings.Contains(hostOrHostPort, ":") {
		return hostOrHostPort
	}
	return hostOrHostPort + ":" + defaultPort
}
