package events

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// DeviceEventURLs maps each service a device exposes to its GENA event
// sub-URL, as resolved from that device's description XML during discovery.
type DeviceEventURLs map[ServiceType]string

type deviceSubscriptionState struct {
	DeviceUDN     string
	EventURLs     DeviceEventURLs
	Services      map[ServiceType]string // service -> SID
	FailureCount  int
	LastAttemptAt time.Time
}

func (d *deviceSubscriptionState) isFullySubscribed(wanted []ServiceType) bool {
	for _, svc := range wanted {
		if _, ok := d.Services[svc]; !ok {
			if _, exposed := d.EventURLs[svc]; exposed {
				return false
			}
		}
	}
	return true
}

// Manager orchestrates UPnP event subscriptions: initial subscribe,
// periodic renewal, and NOTIFY-driven state cache updates.
type Manager struct {
	config     ManagerConfig
	subClient  *SubscriptionClient
	stateCache *StateCache

	mu            sync.RWMutex
	subscriptions map[string]*Subscription // by SID
	deviceSubs    map[string][]string      // device UDN -> SIDs
	subscribed    map[string]*deviceSubscriptionState

	callbackURL string
	localIP     string
	port        int

	stopCh  chan struct{}
	stopped bool
	stats   ManagerStats

	now func() time.Time
}

// NewManager creates an event subscription manager.
func NewManager(config ManagerConfig, port int) *Manager {
	return &Manager{
		config:        config,
		subClient:     NewSubscriptionClient(10 * time.Second),
		stateCache:    NewStateCache(config.StateCacheTTL),
		subscriptions: make(map[string]*Subscription),
		deviceSubs:    make(map[string][]string),
		subscribed:    make(map[string]*deviceSubscriptionState),
		port:          port,
		stopCh:        make(chan struct{}),
		stats:         ManagerStats{Enabled: config.Enabled},
		now:           time.Now,
	}
}

// Start discovers the local callback IP and begins the renewal loop.
func (m *Manager) Start() error {
	if !m.config.Enabled {
		log.Printf("upnp events: subscriptions disabled")
		return nil
	}

	localIP, err := m.discoverLocalIP()
	if err != nil {
		return fmt.Errorf("discover local IP: %w", err)
	}
	m.localIP = localIP

	port := m.port
	if m.config.CallbackPort > 0 {
		port = m.config.CallbackPort
	}
	m.callbackURL = fmt.Sprintf("http://%s:%d/upnp/notify", m.localIP, port)

	log.Printf("upnp events: manager started, callback url %s", m.callbackURL)
	go m.renewalLoop()
	return nil
}

// Stop unsubscribes from every device and halts the renewal loop.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()

	m.unsubscribeAll(ctx)
	log.Printf("upnp events: manager stopped")
	return nil
}

// SubscribeDevice subscribes to every configured service a device exposes.
// Idempotent: services already subscribed are left untouched, and a device
// in backoff after recent failures is skipped until its backoff elapses.
func (m *Manager) SubscribeDevice(ctx context.Context, deviceUDN string, eventURLs DeviceEventURLs) error {
	if !m.config.Enabled {
		return nil
	}
	if m.IsDeviceFullySubscribed(deviceUDN) {
		return nil
	}
	if !m.shouldAttemptSubscription(deviceUDN) {
		return nil
	}

	m.mu.Lock()
	state := m.subscribed[deviceUDN]
	if state == nil {
		state = &deviceSubscriptionState{
			DeviceUDN: deviceUDN,
			EventURLs: eventURLs,
			Services:  make(map[ServiceType]string),
		}
		m.subscribed[deviceUDN] = state
	}
	state.EventURLs = eventURLs
	state.LastAttemptAt = m.now()
	existing := make(map[ServiceType]string, len(state.Services))
	for k, v := range state.Services {
		existing[k] = v
	}
	m.mu.Unlock()

	failureCount := 0
	successCount := 0

	for _, serviceType := range m.config.Services {
		if _, ok := existing[serviceType]; ok {
			continue
		}
		eventURL, ok := eventURLs[serviceType]
		if !ok {
			continue
		}

		callbackURL := m.buildCallbackURL(serviceType)
		sid, timeout, err := m.subClient.Subscribe(ctx, eventURL, callbackURL, m.config.SubscriptionTimeout)
		if err != nil {
			log.Printf("upnp events: failed to subscribe %s on %s: %v", serviceType, deviceUDN, err)
			m.mu.Lock()
			m.stats.SubscriptionFailures++
			m.mu.Unlock()
			failureCount++
			continue
		}

		renewIn := timeout - m.config.RenewalBuffer
		if renewIn < 60 {
			renewIn = 60
		}

		sub := &Subscription{
			SID:          sid,
			DeviceUDN:    deviceUDN,
			EventURL:     eventURL,
			ServiceType:  serviceType,
			CallbackURL:  callbackURL,
			Timeout:      timeout,
			SubscribedAt: m.now(),
			RenewAt:      m.now().Add(time.Duration(renewIn) * time.Second),
		}
		m.addSubscription(sub)

		m.mu.Lock()
		if m.subscribed[deviceUDN] != nil {
			m.subscribed[deviceUDN].Services[serviceType] = sid
			m.subscribed[deviceUDN].FailureCount = 0
		}
		m.mu.Unlock()

		successCount++
		log.Printf("upnp events: subscribed %s on %s (sid %s, timeout %ds)", serviceType, deviceUDN, sid, timeout)
	}

	if failureCount > 0 && successCount == 0 {
		m.mu.Lock()
		if m.subscribed[deviceUDN] != nil {
			m.subscribed[deviceUDN].FailureCount++
		}
		m.mu.Unlock()
	}

	return nil
}

// UnsubscribeDevice removes all subscriptions held for a device.
func (m *Manager) UnsubscribeDevice(ctx context.Context, deviceUDN string) {
	m.mu.Lock()
	sids := append([]string(nil), m.deviceSubs[deviceUDN]...)
	m.mu.Unlock()

	for _, sid := range sids {
		sub := m.findSubscriptionBySID(sid)
		if sub == nil {
			continue
		}
		if err := m.subClient.Unsubscribe(ctx, sub.EventURL, sid); err != nil {
			log.Printf("upnp events: failed to unsubscribe %s: %v", sid, err)
		}
		m.removeSubscription(sid)
	}
}

// StateCache returns the manager's state cache.
func (m *Manager) StateCache() *StateCache { return m.stateCache }

// Stats returns a snapshot of manager statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.ActiveSubscriptions = len(m.subscriptions)
	stats.TotalDevices = len(m.deviceSubs)
	hits, misses, _ := m.stateCache.Stats()
	stats.CacheHits = hits
	stats.CacheMisses = misses
	return stats
}

func (m *Manager) buildCallbackURL(serviceType ServiceType) string {
	suffix := ""
	switch serviceType {
	case ServiceAVTransport:
		suffix = "/avtransport"
	case ServiceRenderingControl:
		suffix = "/renderingcontrol"
	case ServiceContentDirectory:
		suffix = "/contentdirectory"
	}
	return m.callbackURL + suffix
}

func (m *Manager) addSubscription(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscriptions[sub.SID] = sub
	m.deviceSubs[sub.DeviceUDN] = append(m.deviceSubs[sub.DeviceUDN], sub.SID)
}

func (m *Manager) removeSubscription(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[sid]
	if !ok {
		return
	}
	delete(m.subscriptions, sid)

	if sids, ok := m.deviceSubs[sub.DeviceUDN]; ok {
		for i, s := range sids {
			if s == sid {
				m.deviceSubs[sub.DeviceUDN] = append(sids[:i], sids[i+1:]...)
				break
			}
		}
		if len(m.deviceSubs[sub.DeviceUDN]) == 0 {
			delete(m.deviceSubs, sub.DeviceUDN)
		}
	}

	if state, ok := m.subscribed[sub.DeviceUDN]; ok {
		for svc, storedSID := range state.Services {
			if storedSID == sid {
				delete(state.Services, svc)
				break
			}
		}
	}
}

func (m *Manager) findSubscriptionBySID(sid string) *Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscriptions[sid]
}

func (m *Manager) updateSubscriptionSEQ(sid string, seq int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[sid]; ok {
		sub.SEQ = seq
	}
}

func (m *Manager) renewalLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.renewExpiring()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) renewExpiring() {
	m.mu.RLock()
	var toRenew []*Subscription
	for _, sub := range m.subscriptions {
		if sub.IsExpiringSoon() {
			toRenew = append(toRenew, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range toRenew {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		timeout, err := m.subClient.Renew(ctx, sub.EventURL, sub.SID, m.config.SubscriptionTimeout)
		cancel()

		if err == ErrSubscriptionNotFound {
			log.Printf("upnp events: subscription expired, resubscribing: %s", sub.SID)
			m.mu.RLock()
			state := m.subscribed[sub.DeviceUDN]
			var eventURLs DeviceEventURLs
			if state != nil {
				eventURLs = state.EventURLs
			}
			m.mu.RUnlock()
			m.removeSubscription(sub.SID)
			if eventURLs != nil {
				m.SubscribeDevice(context.Background(), sub.DeviceUDN, eventURLs)
			}
			continue
		}
		if err != nil {
			log.Printf("upnp events: failed to renew %s: %v", sub.SID, err)
			m.mu.Lock()
			m.stats.RenewalFailures++
			m.mu.Unlock()
			continue
		}

		renewIn := timeout - m.config.RenewalBuffer
		if renewIn < 60 {
			renewIn = 60
		}

		m.mu.Lock()
		sub.Timeout = timeout
		sub.RenewAt = m.now().Add(time.Duration(renewIn) * time.Second)
		m.mu.Unlock()

		log.Printf("upnp events: renewed subscription %s (timeout %ds)", sub.SID, timeout)
	}
}

func (m *Manager) unsubscribeAll(ctx context.Context) {
	m.mu.RLock()
	sids := make([]string, 0, len(m.subscriptions))
	for sid := range m.subscriptions {
		sids = append(sids, sid)
	}
	m.mu.RUnlock()

	for _, sid := range sids {
		sub := m.findSubscriptionBySID(sid)
		if sub == nil {
			continue
		}
		m.subClient.Unsubscribe(ctx, sub.EventURL, sid)
		m.removeSubscription(sid)
	}
}

func (m *Manager) discoverLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// IsEnabled reports whether eventing is enabled.
func (m *Manager) IsEnabled() bool { return m.config.Enabled }

// CallbackURL returns the base URL devices should NOTIFY.
func (m *Manager) CallbackURL() string { return m.callbackURL }

// IsDeviceFullySubscribed reports whether a device has active subscriptions
// for every service it exposes among the manager's configured services.
func (m *Manager) IsDeviceFullySubscribed(deviceUDN string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.subscribed[deviceUDN]
	if !ok {
		return false
	}
	return state.isFullySubscribed(m.config.Services)
}

// shouldAttemptSubscription implements exponential backoff (60s, 120s,
// 240s, ... capped at 600s) after repeated subscription failures.
func (m *Manager) shouldAttemptSubscription(deviceUDN string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.subscribed[deviceUDN]
	if !ok || state.FailureCount == 0 {
		return true
	}

	backoffSeconds := 30 * (1 << state.FailureCount)
	if backoffSeconds > 600 {
		backoffSeconds = 600
	}
	return m.now().Sub(state.LastAttemptAt) > time.Duration(backoffSeconds)*time.Second
}
