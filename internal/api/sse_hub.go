package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"goelicit/internal"
)

// Event types streamed while a battery is planned
const (
	EventRound   = "round"
	EventBattery = "battery"
	EventFailed  = "failed"
)

// keepAliveInterval is how often an idle stream receives a ping
var keepAliveInterval = 30 * time.Second

// DesignEvent is one planning update for SSE streaming
type DesignEvent struct {
	SessionID   string    `json:"session_id"`
	EventType   string    `json:"event_type"`
	BatteryID   string    `json:"battery_id,omitempty"`
	Round       int       `json:"round,omitempty"`
	Total       int       `json:"total,omitempty"`
	Progress    float64   `json:"progress"`
	Determinant float64   `json:"determinant,omitempty"`
	LogDetGain  float64   `json:"log_det_gain,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SSEHub fans planning events out to the clients watching a session
type SSEHub struct {
	clients   map[string]map[chan DesignEvent]bool
	clientsMu sync.RWMutex
	broadcast chan DesignEvent
	done      chan struct{}
	closeOnce sync.Once
	logger    *internal.Logger
}

// NewSSEHub creates a hub and starts its dispatch loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	hub := &SSEHub{
		clients:   make(map[string]map[chan DesignEvent]bool),
		broadcast: make(chan DesignEvent, 100),
		done:      make(chan struct{}),
		logger:    internal.OrDefault(logger).Named("sse"),
	}

	go hub.run()
	return hub
}

func (h *SSEHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.SessionID] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("client channel full for session %s, skipping %s event",
						event.SessionID, event.EventType)
				}
			}
			h.clientsMu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the dispatch loop; pending events are dropped
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Subscribe registers a client for sessionID. The returned cancel func must be
// called once the client goes away.
func (h *SSEHub) Subscribe(sessionID string) (<-chan DesignEvent, func()) {
	ch := make(chan DesignEvent, 16)

	h.clientsMu.Lock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[chan DesignEvent]bool)
	}
	h.clients[sessionID][ch] = true
	h.logger.Debug("client registered for session %s (total clients: %d)", sessionID, len(h.clients[sessionID]))
	h.clientsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			clients := h.clients[sessionID]
			delete(clients, ch)
			if len(clients) == 0 {
				delete(h.clients, sessionID)
			}
			h.logger.Debug("client unregistered from session %s (remaining clients: %d)", sessionID, len(clients))
		})
	}
}

// Broadcast queues an event for every client of its session
func (h *SSEHub) Broadcast(event DesignEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event", event.EventType)
	}
}

// HandleSSE streams the events of ?session_id= until the client disconnects
func (h *SSEHub) HandleSSE(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id parameter required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, cancel := h.Subscribe(sessionID)
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(payload))
			// a finished battery ends the stream
			return event.EventType == EventRound
		case <-time.After(keepAliveInterval):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// ActiveSessions returns sessions with connected clients
func (h *SSEHub) ActiveSessions() []string {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	sessions := make([]string, 0, len(h.clients))
	for sessionID := range h.clients {
		sessions = append(sessions, sessionID)
	}
	return sessions
}

// ClientCount returns the number of connected clients for a session
func (h *SSEHub) ClientCount(sessionID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[sessionID])
}
