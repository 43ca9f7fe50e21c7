package events

import (
	"sync"
	"time"
)

// StateCache is a thread-safe, freshness-tracked cache of event-sourced
// device state, keyed by device UDN.
type StateCache struct {
	mu     sync.RWMutex
	states map[string]*DeviceState
	ttl    time.Duration

	hits   int64
	misses int64
}

// NewStateCache creates a state cache with the given freshness TTL.
func NewStateCache(ttl time.Duration) *StateCache {
	return &StateCache{
		states: make(map[string]*DeviceState),
		ttl:    ttl,
	}
}

// Get returns a copy of the device state if present and fresh, nil otherwise.
func (c *StateCache) Get(deviceUDN string) *DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[deviceUDN]
	if !ok {
		c.misses++
		return nil
	}
	if !state.IsFresh(c.ttl) {
		c.misses++
		return nil
	}
	c.hits++
	stateCopy := *state
	return &stateCopy
}

func (c *StateCache) getOrCreate(deviceUDN string) *DeviceState {
	state, ok := c.states[deviceUDN]
	if !ok {
		state = &DeviceState{DeviceUDN: deviceUDN}
		c.states[deviceUDN] = state
	}
	return state
}

// UpdateTransport merges an AVTransport event into the cached state.
func (c *StateCache) UpdateTransport(deviceUDN string, event *AVTransportEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.getOrCreate(deviceUDN)
	now := time.Now()
	hasTransportState := false

	if event.TransportState != "" {
		state.TransportState = event.TransportState
		hasTransportState = true
	}
	if event.TransportStatus != "" {
		state.TransportStatus = event.TransportStatus
	}
	if event.CurrentTrackURI != "" {
		state.CurrentTrackURI = event.CurrentTrackURI
	}
	if event.CurrentTrackMetaData != "" {
		state.CurrentTrackMetaData = event.CurrentTrackMetaData
	}
	if event.TrackDuration != "" {
		state.TrackDuration = event.TrackDuration
	}
	if event.RelTime != "" {
		state.RelativeTime = event.RelTime
	}
	if event.AVTransportURI != "" {
		state.AVTransportURI = event.AVTransportURI
	}
	if event.AVTransportURIMeta != "" {
		state.AVTransportURIMeta = event.AVTransportURIMeta
	}

	state.TransportUpdatedAt = now
	if hasTransportState {
		state.UpdatedAt = now
	}
}

// UpdateVolume merges a RenderingControl event into the cached state.
func (c *StateCache) UpdateVolume(deviceUDN string, event *RenderingControlEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.getOrCreate(deviceUDN)
	now := time.Now()
	state.Volume = event.Volume
	state.Muted = event.Muted
	state.VolumeUpdatedAt = now
	state.UpdatedAt = now
}

// UpdateSystemUpdateID records a ContentDirectory SystemUpdateID change.
func (c *StateCache) UpdateSystemUpdateID(deviceUDN, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.getOrCreate(deviceUDN)
	state.SystemUpdateID = value
	state.UpdatedAt = time.Now()
}

// Remove drops a device's cached state entirely.
func (c *StateCache) Remove(deviceUDN string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, deviceUDN)
}

// Stats returns cache hit/miss/size counters for diagnostics.
func (c *StateCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.states)
}

// Prune removes entries that have gone stale.
func (c *StateCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for udn, state := range c.states {
		if !state.IsFresh(c.ttl) {
			delete(c.states, udn)
			pruned++
		}
	}
	return pruned
}
