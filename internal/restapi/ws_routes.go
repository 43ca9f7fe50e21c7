package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kshepherd/vibin-go/internal/model"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterWebSocketRoutes wires /ws, grounded on
// original_source/vibin/server/routers/websocket_server.py's
// ConnectionManager: each connection gets its own client id and a Hub
// subscription, and every UpdateMessage the Hub fans out is wrapped in
// the {id, client_id, time, type, payload} envelope before being sent.
func RegisterWebSocketRoutes(router chi.Router, deps *Dependencies) {
	router.HandleFunc("/ws", deps.websocketHandler)
}

type wsEnvelope struct {
	ID       string    `json:"id"`
	ClientID string    `json:"client_id"`
	Time     int64     `json:"time"`
	Type     string    `json:"type"`
	Payload  any       `json:"payload"`
}

func (d *Dependencies) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	clientId := uuid.New().String()
	d.Hub.SetWebsocketClients(d.websocketClientDelta(1))

	sendCh := make(chan model.UpdateMessage, 64)
	unsubscribe := d.Hub.Subscribe(func(msg model.UpdateMessage) {
		select {
		case sendCh <- msg:
		default:
			d.logger().Printf("RESTAPI: dropping websocket message for client %s, send buffer full", clientId)
		}
	})
	defer unsubscribe()
	defer d.Hub.SetWebsocketClients(d.websocketClientDelta(-1))

	done := make(chan struct{})
	go d.websocketReadLoop(conn, done)

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sendCh:
			if !ok {
				return
			}
			envelope := wsEnvelope{
				ID:       uuid.New().String(),
				ClientID: clientId,
				Time:     time.Now().UnixMilli(),
				Type:     string(msg.Type),
				Payload:  msg.Payload,
			}
			encoded, err := json.Marshal(envelope)
			if err != nil {
				d.logger().Printf("RESTAPI: failed to encode websocket message: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
				return
			}
		}
	}
}

// websocketReadLoop drains and discards inbound frames purely to detect
// the client closing the connection — the protocol is server-push only,
// matching the original's websocket_endpoint which never reads client
// messages beyond waiting on disconnect.
func (d *Dependencies) websocketReadLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *Dependencies) websocketClientDelta(delta int) int {
	d.wsClientsMu.Lock()
	defer d.wsClientsMu.Unlock()
	d.wsClients += delta
	return d.wsClients
}
