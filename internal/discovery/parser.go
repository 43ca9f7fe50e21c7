package discovery

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// DeviceDescription is the parsed contents of a UPnP device description
// document (the XML fetched from a SSDP Location URL).
type DeviceDescription struct {
	FriendlyName string
	Manufacturer string
	ModelName    string
	ModelNumber  string
	UDN          string
	DeviceType   string
	Services     []ServiceDescription

	// BaseURL is the scheme+host[:port] the description was fetched from,
	// used to resolve relative controlURL/eventSubURL values.
	BaseURL string
}

// ServiceDescription is one <service> entry from a device description,
// holding the URLs upnp/soap and upnp/events need to control and
// subscribe to it.
type ServiceDescription struct {
	ServiceType string
	ServiceID   string
	ControlURL  string
	EventSubURL string
	SCPDURL     string
}

type deviceDescriptionXML struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		DeviceType   string `xml:"deviceType"`
		FriendlyName string `xml:"friendlyName"`
		Manufacturer string `xml:"manufacturer"`
		ModelName    string `xml:"modelName"`
		ModelNumber  string `xml:"modelNumber"`
		UDN          string `xml:"UDN"`
		ServiceList  struct {
			Services []struct {
				ServiceType string `xml:"serviceType"`
				ServiceID   string `xml:"serviceId"`
				ControlURL  string `xml:"controlURL"`
				EventSubURL string `xml:"eventSubURL"`
				SCPDURL     string `xml:"SCPDURL"`
			} `xml:"service"`
		} `xml:"serviceList"`
	} `xml:"device"`
}

// ParseDeviceDescription parses a UPnP device description document fetched
// from locationURL, resolving each service's control/event URLs against it.
func ParseDeviceDescription(locationURL string, body []byte) (*DeviceDescription, error) {
	var doc deviceDescriptionXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing device description: %w", err)
	}

	base, err := url.Parse(locationURL)
	if err != nil {
		return nil, fmt.Errorf("parsing location URL: %w", err)
	}

	desc := &DeviceDescription{
		FriendlyName: doc.Device.FriendlyName,
		Manufacturer: doc.Device.Manufacturer,
		ModelName:    doc.Device.ModelName,
		ModelNumber:  doc.Device.ModelNumber,
		UDN:          strings.TrimPrefix(doc.Device.UDN, "uuid:"),
		DeviceType:   doc.Device.DeviceType,
		BaseURL:      fmt.Sprintf("%s://%s", base.Scheme, base.Host),
	}

	for _, s := range doc.Device.ServiceList.Services {
		desc.Services = append(desc.Services, ServiceDescription{
			ServiceType: s.ServiceType,
			ServiceID:   s.ServiceID,
			ControlURL:  resolveURL(base, s.ControlURL),
			EventSubURL: resolveURL(base, s.EventSubURL),
			SCPDURL:     resolveURL(base, s.SCPDURL),
		})
	}

	return desc, nil
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// ServiceByType returns the first service whose ServiceType contains the
// given fragment (e.g. "ContentDirectory", "AVTransport", "RenderingControl").
func (d *DeviceDescription) ServiceByType(fragment string) (ServiceDescription, bool) {
	for _, s := range d.Services {
		if strings.Contains(s.ServiceType, fragment) {
			return s, true
		}
	}
	return ServiceDescription{}, false
}
