package wsrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Peers are local processes (webview host, browser shell).
	},
}

// Endpoint accepts at most one peer for a role. A new connection replaces the
// previous one. Signal listeners are registered on the endpoint and survive
// reconnects.
type Endpoint struct {
	role   string
	logger *logger.Logger

	mu        sync.RWMutex
	peer      *Peer
	listeners map[string]map[uint64]func(json.RawMessage)
	nextID    uint64
	onConnect []func(*Peer)
	onReady   []func(*Peer)
}

// NewEndpoint creates an endpoint for role ("native", "web").
func NewEndpoint(role string, logger *logger.Logger) *Endpoint {
	return &Endpoint{
		role:      role,
		logger:    logger,
		listeners: make(map[string]map[uint64]func(json.RawMessage)),
	}
}

// Role returns the endpoint's role name.
func (e *Endpoint) Role() string {
	return e.role
}

// Connected reports whether a peer is attached.
func (e *Endpoint) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.peer != nil
}

// Call invokes name on the attached peer.
func (e *Endpoint) Call(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	e.mu.RLock()
	p := e.peer
	e.mu.RUnlock()

	if p == nil {
		return nil, ErrNoPeer
	}
	return p.Call(ctx, name, args...)
}

// Send writes a frame to the attached peer.
func (e *Endpoint) Send(frame Frame) error {
	e.mu.RLock()
	p := e.peer
	e.mu.RUnlock()

	if p == nil {
		return ErrNoPeer
	}
	return p.Send(frame)
}

// Listen registers fn for signals called name. Listeners run on the peer's
// read goroutine and must not block on calls to the same endpoint.
func (e *Endpoint) Listen(name string, fn func(json.RawMessage)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	if e.listeners[name] == nil {
		e.listeners[name] = make(map[uint64]func(json.RawMessage))
	}
	e.listeners[name][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if set, ok := e.listeners[name]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(e.listeners, name)
			}
		}
	}
}

// ListenerCount returns how many listeners are registered for name.
func (e *Endpoint) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// OnConnect registers fn to run for each new peer before it becomes
// reachable through Call, so frames fn sends are the first the peer sees.
func (e *Endpoint) OnConnect(fn func(*Peer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onConnect = append(e.onConnect, fn)
}

// OnReady registers fn to run on its own goroutine once a new peer is
// reachable through Call.
func (e *Endpoint) OnReady(fn func(*Peer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReady = append(e.onReady, fn)
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := e.logger.WithContext(r.Context()).WithComponent("wsrpc")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed",
			slog.String("role", e.role),
			slog.String("error", err.Error()))
		return
	}

	if err := e.Serve(context.WithoutCancel(r.Context()), conn); err != nil {
		log.Debug("peer connection ended",
			slog.String("role", e.role),
			slog.String("error", err.Error()))
	}
}

// Serve attaches conn as the endpoint's peer and blocks until it ends.
func (e *Endpoint) Serve(ctx context.Context, conn *websocket.Conn) error {
	p := newPeer(conn, e.role, e.logger, e.dispatchSignal)
	log := e.logger.WithComponent("wsrpc")

	e.mu.RLock()
	hooks := make([]func(*Peer), len(e.onConnect))
	copy(hooks, e.onConnect)
	e.mu.RUnlock()

	for _, hook := range hooks {
		hook(p)
	}

	e.mu.Lock()
	previous := e.peer
	e.peer = p
	ready := make([]func(*Peer), len(e.onReady))
	copy(ready, e.onReady)
	e.mu.Unlock()

	if previous != nil {
		log.Info("replacing connected peer",
			slog.String("role", e.role),
			slog.String("previous_peer_id", previous.ID()))
		previous.Close()
	}

	metrics.ConnectedPeers.WithLabelValues(e.role).Set(1)
	log.Info("peer connected",
		slog.String("role", e.role),
		slog.String("peer_id", p.ID()))

	for _, hook := range ready {
		go hook(p)
	}

	err := p.run(ctx)

	e.mu.Lock()
	if e.peer == p {
		e.peer = nil
		metrics.ConnectedPeers.WithLabelValues(e.role).Set(0)
	}
	e.mu.Unlock()

	log.Info("peer disconnected",
		slog.String("role", e.role),
		slog.String("peer_id", p.ID()))
	return err
}

func (e *Endpoint) dispatchSignal(name string, payload json.RawMessage) {
	e.mu.RLock()
	fns := make([]func(json.RawMessage), 0, len(e.listeners[name]))
	for _, fn := range e.listeners[name] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	if len(fns) == 0 {
		e.logger.WithComponent("wsrpc").Debug("signal without listeners",
			slog.String("role", e.role),
			slog.String("signal", name))
		return
	}

	for _, fn := range fns {
		fn(payload)
	}
}
