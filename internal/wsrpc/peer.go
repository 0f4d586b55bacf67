package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1 << 20
)

// Peer is one connected remote. Calls are correlated to results by id.
type Peer struct {
	id     string
	role   string
	conn   *websocket.Conn
	logger *logger.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Frame
	closed  bool

	done     chan struct{}
	onSignal func(name string, payload json.RawMessage)
}

func newPeer(conn *websocket.Conn, role string, log *logger.Logger, onSignal func(string, json.RawMessage)) *Peer {
	return &Peer{
		id:       uuid.NewString(),
		role:     role,
		conn:     conn,
		logger:   log,
		pending:  make(map[string]chan Frame),
		done:     make(chan struct{}),
		onSignal: onSignal,
	}
}

// ID identifies the connection in logs.
func (p *Peer) ID() string {
	return p.id
}

// Done is closed once the connection has ended.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Send writes a frame without waiting for any answer.
func (p *Peer) Send(frame Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteJSON(frame)
}

// Call invokes name on the peer and waits for its result.
func (p *Peer) Call(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan Frame, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPeerClosed
	}
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if args == nil {
		args = []any{}
	}
	if err := p.Send(Frame{Type: FrameCall, ID: id, Name: name, Args: args}); err != nil {
		return nil, fmt.Errorf("failed to send %s call: %w", name, err)
	}

	select {
	case f := <-ch:
		if f.Error != "" {
			return nil, &RemoteError{Name: name, Message: f.Error}
		}
		return f.Result, nil
	case <-p.done:
		return nil, ErrPeerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the connection. Run returns shortly after.
func (p *Peer) Close() {
	p.writeMu.Lock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"),
		time.Now().Add(writeWait))
	p.writeMu.Unlock()
	p.conn.Close()
}

// run reads frames until the connection fails or ctx ends.
func (p *Peer) run(ctx context.Context) error {
	log := p.logger.WithComponent("wsrpc").With(
		slog.String("role", p.role),
		slog.String("peer_id", p.id))

	defer func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go p.keepAlive(ctx, stop, log)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, context.Canceled) {
				log.Info("connection closed by peer")
				return nil
			}
			return err
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}
		p.dispatch(f, log)
	}
}

func (p *Peer) keepAlive(ctx context.Context, stop <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.writeMu.Lock()
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			p.writeMu.Unlock()
			if err != nil {
				log.Debug("failed to send ping", slog.String("error", err.Error()))
				p.conn.Close()
				return
			}
		case <-ctx.Done():
			p.conn.Close()
			return
		case <-stop:
			return
		}
	}
}

func (p *Peer) dispatch(f Frame, log *slog.Logger) {
	switch f.Type {
	case FrameResult:
		p.mu.Lock()
		ch, ok := p.pending[f.ID]
		p.mu.Unlock()
		if !ok {
			log.Debug("result for unknown call", slog.String("call_id", f.ID))
			return
		}
		select {
		case ch <- f:
		default:
		}
	case FrameSignal:
		if p.onSignal != nil {
			p.onSignal(f.Name, f.Payload)
		}
	case FrameCall:
		_ = p.Send(Frame{Type: FrameResult, ID: f.ID, Error: "calls are not accepted on this endpoint"})
	default:
		log.Debug("ignoring frame", slog.String("type", f.Type))
	}
}
