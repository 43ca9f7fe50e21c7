// Package events implements UPnP GENA eventing: SUBSCRIBE/RENEW/UNSUBSCRIBE
// against a device's event sub-URL, a NOTIFY callback server, and a
// freshness-tracked cache of the state those NOTIFYs describe.
package events

import "time"

// ServiceType identifies which UPnP service a subscription or event
// belongs to.
type ServiceType string

const (
	ServiceAVTransport      ServiceType = "AVTransport"
	ServiceRenderingControl ServiceType = "RenderingControl"
	ServiceContentDirectory ServiceType = "ContentDirectory"
)

// Subscription represents an active UPnP event subscription against one
// service on one device.
type Subscription struct {
	SID          string
	DeviceUDN    string
	EventURL     string
	ServiceType  ServiceType
	CallbackURL  string
	Timeout      int
	SubscribedAt time.Time
	RenewAt      time.Time
	SEQ          int
}

// IsExpiringSoon returns true once the subscription has crossed its
// renewal point.
func (s *Subscription) IsExpiringSoon() bool {
	return time.Now().After(s.RenewAt)
}

// IsExpired returns true if the device would already have dropped this
// subscription.
func (s *Subscription) IsExpired() bool {
	return time.Now().After(s.SubscribedAt.Add(time.Duration(s.Timeout) * time.Second))
}

// DeviceState is the event-sourced playback/catalog state for one device,
// updated from NOTIFYs and read by adapters needing fresher-than-poll data.
type DeviceState struct {
	DeviceUDN string

	TransportState  string
	TransportStatus string
	CurrentTrackURI string
	TrackDuration   string
	RelativeTime    string

	CurrentTrackMetaData string
	AVTransportURI       string
	AVTransportURIMeta   string

	Volume int
	Muted  bool

	// SystemUpdateID is ContentDirectory's monotonic revision counter; a
	// change signals the media server's catalog was rescanned.
	SystemUpdateID string

	UpdatedAt          time.Time
	TransportUpdatedAt time.Time
	VolumeUpdatedAt    time.Time
}

// IsFresh returns true if the state was updated within ttl.
func (s *DeviceState) IsFresh(ttl time.Duration) bool {
	return time.Since(s.UpdatedAt) <= ttl
}

// NotifyEvent is a parsed NOTIFY event body.
type NotifyEvent struct {
	SID         string
	SEQ         int
	ServiceType ServiceType
	Properties  map[string]string
	RawBody     []byte
}

// AVTransportEvent is the decoded AVTransport LastChange payload.
type AVTransportEvent struct {
	TransportState       string
	TransportStatus      string
	CurrentTrackURI      string
	CurrentTrackMetaData string
	TrackDuration        string
	RelTime              string
	AVTransportURI       string
	AVTransportURIMeta   string
}

// RenderingControlEvent is the decoded RenderingControl LastChange payload.
type RenderingControlEvent struct {
	Volume int
	Muted  bool
}

// ManagerConfig configures the event manager.
type ManagerConfig struct {
	Enabled             bool
	CallbackPort        int
	SubscriptionTimeout int
	RenewalBuffer       int
	StateCacheTTL       time.Duration
	Services            []ServiceType
}

// ManagerStats reports subscription and event throughput for diagnostics.
type ManagerStats struct {
	Enabled              bool
	ActiveSubscriptions  int
	TotalDevices         int
	EventsReceived       int64
	EventsProcessed      int64
	SubscriptionFailures int64
	RenewalFailures      int64
	LastEventAt          time.Time
	CacheHits            int64
	CacheMisses          int64
}
