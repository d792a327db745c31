package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"dicto/internal/config"
	"dicto/internal/fsm"
)

// Event is one message on the /v1/events websocket feed.
type Event struct {
	Type     string           `json:"type"` // "state" or "settings"
	State    string           `json:"state,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Settings *config.Settings `json:"settings,omitempty"`
}

// Hub fans controller state changes and settings updates out to websocket
// subscribers. It implements session.Notifier.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// StateChanged broadcasts a session state transition.
func (h *Hub) StateChanged(state fsm.State, reason string) {
	h.broadcast(Event{Type: "state", State: string(state), Reason: reason})
}

// SettingsChanged broadcasts an applied settings update.
func (h *Hub) SettingsChanged(settings config.Settings) {
	h.broadcast(Event{Type: "settings", Settings: &settings})
}

// broadcast queues the event for every subscriber, dropping clients whose
// send buffer is full.
func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	// The server binds to loopback only; origin checks would reject the
	// file:// and app-webview origins the settings UI runs under.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Subscribe upgrades the request and serves the event feed until the client
// disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", "error", err.Error())
		}
		return
	}

	client := &hubClient{conn: conn, send: make(chan Event, 16)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

// writeLoop forwards queued events until the send channel closes.
func (h *Hub) writeLoop(client *hubClient) {
	for event := range client.send {
		if err := client.conn.WriteJSON(event); err != nil {
			break
		}
	}
	_ = client.conn.Close()
}

// readLoop consumes (and discards) client frames to detect disconnects.
func (h *Hub) readLoop(client *hubClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	_ = client.conn.Close()
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		_ = client.conn.Close()
	}
}
