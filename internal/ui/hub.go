// Package ui pushes console snapshots to presentation clients and relays the
// prompts and navigations the console needs a user for.
package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eternisai/push-bridge/internal/console"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
	writeWait    = 10 * time.Second

	role = "ui"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Source yields the live session.
type Source interface {
	Current() *console.Console
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans state out to every connected presentation client. It implements
// console.Navigator.
type Hub struct {
	logger  *logger.Logger
	changes chan struct{}

	mu      sync.RWMutex
	source  Source
	clients map[*client]bool
	pending map[string]chan bool
}

var _ console.Navigator = (*Hub)(nil)

// NewHub creates a hub. Call Run to start broadcasting.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		logger:  logger.WithComponent("ui_hub"),
		changes: make(chan struct{}, 1),
		clients: make(map[*client]bool),
		pending: make(map[string]chan bool),
	}
}

// Notify schedules a broadcast. It never blocks; bursts coalesce into one
// snapshot.
func (h *Hub) Notify() {
	select {
	case h.changes <- struct{}{}:
	default:
	}
}

// Run broadcasts a snapshot of source's session after every Notify until ctx
// is done.
func (h *Hub) Run(ctx context.Context, source Source) {
	h.mu.Lock()
	h.source = source
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.changes:
			if msg, ok := h.stateMessage(); ok {
				h.broadcast(msg)
			}
		}
	}
}

func (h *Hub) stateMessage() (Message, bool) {
	h.mu.RLock()
	source := h.source
	h.mu.RUnlock()

	if source == nil {
		return Message{}, false
	}
	c := source.Current()
	if c == nil {
		return Message{}, false
	}
	s := c.Snapshot()
	return Message{Type: MessageTypeState, SessionID: s.SessionID, State: &s}, true
}

// ClientCount returns the number of connected presentation clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectedPeers.WithLabelValues(role).Inc()
	h.logger.Debug("connection registered", slog.Int("connections", n))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()

	metrics.ConnectedPeers.WithLabelValues(role).Dec()
	h.logger.Debug("connection unregistered")
}

// broadcast sends msg to every client and reports how many received it.
func (h *Hub) broadcast(msg Message) int {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return 0
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message",
			slog.String("message_type", msg.Type),
			slog.String("error", err.Error()))
		return 0
	}

	sent := 0
	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.logger.Warn("failed to send message",
				slog.String("message_type", msg.Type),
				slog.String("error", err.Error()))
			c.conn.Close()
			h.unregister(c)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}

// Confirm asks every connected client and returns the first answer.
func (h *Hub) Confirm(ctx context.Context, prompt string) (bool, error) {
	id := uuid.NewString()
	answer := make(chan bool, 1)

	h.mu.Lock()
	h.pending[id] = answer
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	if h.broadcast(Message{Type: MessageTypeConfirm, ID: id, Prompt: prompt}) == 0 {
		return false, ErrNoViewer
	}

	select {
	case ok := <-answer:
		h.broadcast(Message{Type: MessageTypeConfirmClosed, ID: id})
		return ok, nil
	case <-ctx.Done():
		h.broadcast(Message{Type: MessageTypeConfirmClosed, ID: id})
		return false, ctx.Err()
	}
}

// Resolve answers a pending confirmation.
func (h *Hub) Resolve(id string, accepted bool) error {
	h.mu.Lock()
	answer, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()

	if !ok {
		return ErrUnknownConfirmation
	}
	answer <- accepted
	return nil
}

// Navigate tells every client to follow target.
func (h *Hub) Navigate(ctx context.Context, target string) error {
	if h.broadcast(Message{Type: MessageTypeNavigate, URL: target}) == 0 {
		return ErrNoViewer
	}
	return nil
}

// ServeHTTP upgrades a presentation client and serves it until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.register(c)
	defer h.unregister(c)

	hello := Message{Type: MessageTypeConnected}
	if msg, ok := h.stateMessage(); ok {
		hello.SessionID = msg.SessionID
		hello.State = msg.State
	}
	payload, _ := json.Marshal(hello)
	if err := c.write(payload); err != nil {
		log.Error("failed to send connected message", slog.String("error", err.Error()))
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(c, done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info("connection closed by client")
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("dropping malformed message", slog.String("error", err.Error()))
			continue
		}
		if msg.Type != MessageTypeConfirmResponse || msg.Accepted == nil {
			continue
		}
		if err := h.Resolve(msg.ID, *msg.Accepted); err != nil {
			log.Debug("confirmation already answered", slog.String("id", msg.ID))
		}
	}
}

func (h *Hub) keepAlive(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				h.logger.Debug("failed to send ping", slog.String("error", err.Error()))
				c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
