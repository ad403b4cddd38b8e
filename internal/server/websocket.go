package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/quillhost/quill/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 50 * time.Second
)

// ReloadMessage tells connected browsers the content changed.
type ReloadMessage struct {
	Type      string    `json:"type"`
	Slug      string    `json:"slug,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// reloadHub tracks live-reload clients and fans out change notifications.
type reloadHub struct {
	allowedHosts []string
	clients      map[*websocket.Conn]struct{}
	mutex        sync.Mutex
	logger       logging.Logger
}

func newReloadHub(allowedHosts []string, logger logging.Logger) *reloadHub {
	return &reloadHub{
		allowedHosts: allowedHosts,
		clients:      make(map[*websocket.Conn]struct{}),
		logger:       logger,
	}
}

func (h *reloadHub) handleWS(w http.ResponseWriter, r *http.Request) {
	if !h.originAllowed(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	h.mutex.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mutex.Unlock()
	h.logger.Debug(r.Context(), "live reload client connected", "total", count)

	// The client never sends application messages; CloseRead keeps the
	// connection serviced until the peer goes away.
	ctx := conn.CloseRead(context.Background())

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drop(conn)
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

// broadcast notifies every connected client. Dead connections are dropped
// as they are discovered.
func (h *reloadHub) broadcast(ctx context.Context, msg ReloadMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, err, "reload message encode failed")
		return
	}

	h.mutex.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mutex.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.drop(conn)
		}
	}
}

func (h *reloadHub) drop(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *reloadHub) closeAll() {
	h.mutex.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mutex.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *reloadHub) clientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.clients)
}

func (h *reloadHub) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	for _, host := range h.allowedHosts {
		if u.Host == host {
			return true
		}
	}

	return false
}
