package events

import (
	"io"
	"log"
	"net/http"
	"strconv"
)

// CallbackHandler handles UPnP NOTIFY requests from subscribed devices.
type CallbackHandler struct {
	manager *Manager
}

// NewCallbackHandler creates a NOTIFY handler backed by manager.
func NewCallbackHandler(manager *Manager) *CallbackHandler {
	return &CallbackHandler{manager: manager}
}

// ServeHTTP handles a single NOTIFY request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "NOTIFY" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sid := r.Header.Get("SID")
	seq := ParseSEQ(r.Header.Get("SEQ"))
	nt := r.Header.Get("NT")
	nts := r.Header.Get("NTS")

	if sid == "" {
		http.Error(w, "missing SID", http.StatusBadRequest)
		return
	}
	if nt != "upnp:event" {
		http.Error(w, "invalid NT", http.StatusBadRequest)
		return
	}
	if nts != "upnp:propchange" {
		http.Error(w, "invalid NTS", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	serviceType := InferServiceTypeFromPath(r.URL.Path)
	if h.manager != nil {
		h.manager.handleNotify(sid, seq, serviceType, body)
	}

	w.WriteHeader(http.StatusOK)
}

// RegisterCallbackRoutes registers the NOTIFY endpoints on a bare ServeMux,
// bypassing the chi router so its method-matching doesn't reject NOTIFY.
func RegisterCallbackRoutes(mux *http.ServeMux, handler *CallbackHandler) {
	mux.Handle("/upnp/notify", handler)
	mux.Handle("/upnp/notify/avtransport", handler)
	mux.Handle("/upnp/notify/renderingcontrol", handler)
	mux.Handle("/upnp/notify/contentdirectory", handler)
}

func (m *Manager) handleNotify(sid string, seq int, serviceType ServiceType, body []byte) {
	m.mu.Lock()
	m.stats.EventsReceived++
	m.mu.Unlock()

	sub := m.findSubscriptionBySID(sid)
	if sub == nil {
		log.Printf("upnp events: received event for unknown SID: %s", sid)
		return
	}

	if seq > 0 && sub.SEQ > 0 && seq != sub.SEQ+1 {
		log.Printf("upnp events: sequence gap detected: expected %d, got %d", sub.SEQ+1, seq)
	}
	m.updateSubscriptionSEQ(sid, seq)

	event, err := ParseNotifyBody(body, serviceType)
	if err != nil {
		log.Printf("upnp events: failed to parse event body: %v", err)
		return
	}

	m.processEvent(event, sub.DeviceUDN)

	m.mu.Lock()
	m.stats.EventsProcessed++
	m.stats.LastEventAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) processEvent(event *NotifyEvent, deviceUDN string) {
	if m.stateCache == nil {
		return
	}

	switch event.ServiceType {
	case ServiceAVTransport:
		avEvent := &AVTransportEvent{
			TransportState:       event.Properties["TransportState"],
			TransportStatus:      event.Properties["TransportStatus"],
			CurrentTrackURI:      event.Properties["CurrentTrackURI"],
			CurrentTrackMetaData: event.Properties["CurrentTrackMetaData"],
			TrackDuration:        event.Properties["TrackDuration"],
			RelTime:              event.Properties["RelTime"],
			AVTransportURI:       event.Properties["AVTransportURI"],
			AVTransportURIMeta:   event.Properties["AVTransportURIMetaData"],
		}
		m.stateCache.UpdateTransport(deviceUDN, avEvent)

	case ServiceRenderingControl:
		volume := 0
		muted := false
		if v, ok := event.Properties["Volume"]; ok {
			if vol, err := strconv.Atoi(v); err == nil {
				volume = vol
			}
		}
		if v, ok := event.Properties["Mute"]; ok {
			muted = v == "1"
		}
		m.stateCache.UpdateVolume(deviceUDN, &RenderingControlEvent{Volume: volume, Muted: muted})

	case ServiceContentDirectory:
		if v, ok := event.Properties["SystemUpdateID"]; ok {
			m.stateCache.UpdateSystemUpdateID(deviceUDN, v)
		}
	}
}
