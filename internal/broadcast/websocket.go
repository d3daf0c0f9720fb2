package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// sendQueueSize bounds the per-client outbound buffer. A client that
// cannot drain this many frames is disconnected rather than allowed to
// stall other subscribers.
const sendQueueSize = 256

// Event is the wire frame sent to WebSocket clients for every publish.
type Event struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// WebSocketHandler upgrades clients and mirrors every hub publish to them.
// Client connection lifecycle is independent of agent lifecycle: a client
// disconnecting does not affect any underlying process.
type WebSocketHandler struct {
	hub   *Hub
	isDev bool
}

// NewWebSocketHandler creates a handler bound to hub.
func NewWebSocketHandler(hub *Hub, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, isDev: isDev}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("Client connected", "ip", r.RemoteAddr)

	// Outside development, rely on the library's same-origin check.
	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.OriginPatterns = []string{"*"}
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan []byte, sendQueueSize)
	subID := h.hub.SubscribeAll(func(topic string, payload []byte) {
		frame, err := json.Marshal(Event{Event: topic, Data: string(payload)})
		if err != nil {
			return
		}
		select {
		case send <- frame:
		default:
			// Client is not draining; drop it rather than block publishers.
			slog.Warn("Client send queue full, disconnecting", "ip", r.RemoteAddr)
			cancel()
		}
	})
	defer h.hub.Unsubscribe(subID)

	go h.writeLoop(ctx, ws, send)

	// The inbound direction carries no protocol beyond close detection.
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			break
		}
	}

	slog.Info("Client disconnected", "ip", r.RemoteAddr)
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, send <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-send:
			if err := ws.Write(ctx, websocket.MessageText, frame); err != nil {
				slog.Debug("WebSocket write error", "error", err)
				return
			}
		}
	}
}
