package api

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/logger"
)

// upgrader validates the Origin header against DUPEARR_CORS_ORIGIN. Unset
// means same-origin only; "*" disables the check.
var upgrader = newUpgrader(os.Getenv("DUPEARR_CORS_ORIGIN"))

func newUpgrader(corsOrigins string) websocket.Upgrader {
	allowed := make(map[string]bool)
	if corsOrigins != "" && corsOrigins != "*" {
		for _, o := range strings.Split(corsOrigins, ",") {
			allowed[strings.TrimSpace(o)] = true
		}
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			switch {
			case corsOrigins == "*":
				return true
			case corsOrigins == "":
				origin := r.Header.Get("Origin")
				// No Origin header means a same-origin request.
				return origin == "" || strings.Contains(origin, r.Host)
			default:
				return allowed[r.Header.Get("Origin")]
			}
		},
	}
}

// WebSocketHub fans run-lifecycle events and live log entries out to every
// connected client. All writes to a connection happen under mu so frames
// from the broadcast loop and the ping loop never interleave.
type WebSocketHub struct {
	mu         sync.Mutex
	conns      map[*websocket.Conn]bool
	broadcast  chan interface{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewWebSocketHub subscribes the hub to every run-lifecycle event type and to
// the logger's entry stream, then starts the hub loop.
func NewWebSocketHub(bus *eventbus.EventBus) *WebSocketHub {
	h := &WebSocketHub{
		conns:      make(map[*websocket.Conn]bool),
		broadcast:  make(chan interface{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}

	for _, t := range []domain.EventType{
		domain.RunStarted, domain.RunCompleted, domain.RunFailed,
		domain.GroupsFound, domain.CatalogFetched, domain.CatalogDegraded,
		domain.PlanWritten,
	} {
		bus.Subscribe(t, func(e domain.Event) {
			h.broadcast <- map[string]interface{}{"type": "event", "data": e}
		})
	}

	logCh := logger.Subscribe()
	go func() {
		for entry := range logCh {
			h.broadcast <- map[string]interface{}{"type": "log", "data": entry}
		}
	}()

	go h.loop()
	return h
}

func (h *WebSocketHub) loop() {
	for {
		select {
		case ws := <-h.register:
			h.mu.Lock()
			h.conns[ws] = true
			logger.Debugf("WebSocket client connected (total: %d)", len(h.conns))
			h.mu.Unlock()

		case ws := <-h.unregister:
			h.mu.Lock()
			if h.conns[ws] {
				delete(h.conns, ws)
				if err := ws.Close(); err != nil {
					logger.Debugf("WebSocket close error: %v", err)
				}
				logger.Debugf("WebSocket client disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for ws := range h.conns {
				if err := ws.WriteJSON(msg); err != nil {
					logger.Errorf("WebSocket write error: %v", err)
					_ = ws.Close()
					delete(h.conns, ws)
				}
			}
			h.mu.Unlock()
		}
	}
}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// HandleConnection upgrades the request and keeps the connection alive with a
// ping/pong loop until the peer goes away.
func (h *WebSocketHub) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}
	h.register <- ws
	defer func() { h.unregister <- ws }()

	h.mu.Lock()
	if err := ws.WriteJSON(gin.H{"type": "ping", "timestamp": time.Now()}); err != nil {
		logger.Debugf("Failed to send initial ping: %v", err)
	}
	h.mu.Unlock()

	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			h.mu.Lock()
			if !h.conns[ws] {
				h.mu.Unlock()
				return
			}
			err := ws.WriteMessage(websocket.PingMessage, nil)
			h.mu.Unlock()
			if err != nil {
				logger.Errorf("WebSocket ping error: %v", err)
				h.unregister <- ws
				return
			}
		}
	}()

	// Reads only service the pong handler; the peer never sends data frames.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
