package localapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/protocol"
)

const wsWriteTimeout = 500 * time.Millisecond

// wsClient receives every event, or only the kinds listed in ?kinds=.
type wsClient struct {
	conn  *websocket.Conn
	kinds map[string]struct{}
}

func (c *wsClient) wants(topic string) bool {
	if len(c.kinds) == 0 {
		return true
	}
	_, ok := c.kinds[topic]
	return ok
}

type WSHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{clients: map[*wsClient]struct{}{}}
}

func parseKinds(raw string) map[string]struct{} {
	kinds := map[string]struct{}{}
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds[k] = struct{}{}
		}
	}
	return kinds
}

func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn, kinds: parseKinds(r.URL.Query().Get("kinds"))}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.remove(client)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// The stream is one-way; reads only detect the peer going away.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) snapshot() []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Publish sends payload as an event message with op set to topic. A client
// whose write fails or times out is disconnected.
func (h *WSHub) Publish(topic string, payload any) {
	clients := h.snapshot()
	if len(clients) == 0 {
		return
	}
	msg, err := json.Marshal(protocol.NewEvent(topic, payload))
	if err != nil {
		return
	}
	for _, c := range clients {
		if !c.wants(topic) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			h.remove(c)
			_ = c.conn.CloseNow()
		}
	}
}

func (h *WSHub) CloseAll() {
	for _, c := range h.snapshot() {
		h.remove(c)
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
