package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Enabled:             true,
		SubscriptionTimeout: 1800,
		RenewalBuffer:       60,
		StateCacheTTL:       30 * time.Second,
		Services:            []ServiceType{ServiceAVTransport, ServiceRenderingControl},
	}
}

func TestSubscribeDeviceIsIdempotent(t *testing.T) {
	var subscribeCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&subscribeCalls, 1)
		w.Header().Set("SID", "uuid:sub-1")
		w.Header().Set("TIMEOUT", "Second-1800")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(), 8080)
	m.callbackURL = "http://127.0.0.1:8080/upnp/notify"

	eventURLs := DeviceEventURLs{
		ServiceAVTransport:      server.URL + "/AVTransport/Event",
		ServiceRenderingControl: server.URL + "/RenderingControl/Event",
	}

	require.NoError(t, m.SubscribeDevice(context.Background(), "device-1", eventURLs))
	require.True(t, m.IsDeviceFullySubscribed("device-1"))
	require.Equal(t, int32(2), atomic.LoadInt32(&subscribeCalls))

	require.NoError(t, m.SubscribeDevice(context.Background(), "device-1", eventURLs))
	require.Equal(t, int32(2), atomic.LoadInt32(&subscribeCalls), "already-subscribed services must not be resubscribed")
}

func TestRenewExpiringResubscribesOn412(t *testing.T) {
	var subscribeCalls, renewCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "SUBSCRIBE":
			if r.Header.Get("CALLBACK") != "" {
				atomic.AddInt32(&subscribeCalls, 1)
				w.Header().Set("SID", "uuid:sub-2")
				w.Header().Set("TIMEOUT", "Second-1800")
				w.WriteHeader(http.StatusOK)
				return
			}
			atomic.AddInt32(&renewCalls, 1)
			w.WriteHeader(http.StatusPreconditionFailed)
		}
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(), 8080)
	m.callbackURL = "http://127.0.0.1:8080/upnp/notify"

	eventURLs := DeviceEventURLs{ServiceAVTransport: server.URL + "/AVTransport/Event"}
	require.NoError(t, m.SubscribeDevice(context.Background(), "device-1", eventURLs))
	require.Equal(t, int32(1), atomic.LoadInt32(&subscribeCalls))

	m.mu.Lock()
	for _, sub := range m.subscriptions {
		sub.RenewAt = time.Now().Add(-time.Second)
	}
	m.mu.Unlock()

	m.renewExpiring()

	require.Equal(t, int32(1), atomic.LoadInt32(&renewCalls))
	require.Equal(t, int32(2), atomic.LoadInt32(&subscribeCalls), "412 on renewal must trigger a fresh SUBSCRIBE")
}

func TestHandleNotifyUpdatesStateCache(t *testing.T) {
	m := NewManager(testManagerConfig(), 8080)
	m.addSubscription(&Subscription{
		SID:         "uuid:sub-3",
		DeviceUDN:   "device-1",
		ServiceType: ServiceAVTransport,
	})

	body := []byte(`<propertyset xmlns="urn:schemas-upnp-org:event-1-0">
<property><LastChange>&lt;Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/"&gt;&lt;InstanceID val="0"&gt;&lt;TransportState val="PLAYING"/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange></property>
</propertyset>`)

	m.handleNotify("uuid:sub-3", 1, ServiceAVTransport, body)

	state := m.StateCache().Get("device-1")
	require.NotNil(t, state)
	require.Equal(t, "PLAYING", state.TransportState)
}
