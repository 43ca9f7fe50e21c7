// Package soap implements a minimal UPnP SOAP control client: building
// action envelopes, posting them to a device's control URL, and surfacing
// device-returned faults as typed errors.
package soap

// ServiceType is the URN a device advertises for a control service, e.g.
// "urn:schemas-upnp-org:service:ContentDirectory:1".
type ServiceType string

const (
	ServiceContentDirectory ServiceType = "urn:schemas-upnp-org:service:ContentDirectory:1"
	ServiceAVTransport      ServiceType = "urn:schemas-upnp-org:service:AVTransport:1"
	ServiceRenderingControl ServiceType = "urn:schemas-upnp-org:service:RenderingControl:1"
	ServiceConnectionManager ServiceType = "urn:schemas-upnp-org:service:ConnectionManager:1"
)
