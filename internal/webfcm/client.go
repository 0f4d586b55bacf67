package webfcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/wsrpc"
)

// Names used on the web client's socket.
const (
	callRequestToken        = "requestToken"
	callOpenWindow          = "openWindow"
	signalForegroundMessage = string(notifications.SignalForegroundMessage)
)

type tokenReply struct {
	Supported  *bool  `json:"supported,omitempty"`
	Permission string `json:"permission,omitempty"`
	Token      string `json:"token,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client is a Provider backed by the browser shell attached to a wsrpc
// endpoint.
type Client struct {
	endpoint     *wsrpc.Endpoint
	vapidKey     string
	workerConfig map[string]string
	logger       *logger.Logger

	mu            sync.Mutex
	workerEnabled bool
}

// NewClient wires the client to endpoint. The worker config is sent as the
// first frame of every connection once ConfigureWorker has been called.
func NewClient(endpoint *wsrpc.Endpoint, vapidKey string, workerConfig map[string]string, logger *logger.Logger) *Client {
	c := &Client{
		endpoint:     endpoint,
		vapidKey:     vapidKey,
		workerConfig: maps.Clone(workerConfig),
		logger:       logger.WithComponent("webfcm"),
	}
	endpoint.OnConnect(c.handoff)
	return c
}

// WorkerConfig returns the Firebase config handed to the worker.
func (c *Client) WorkerConfig() map[string]string {
	cfg := maps.Clone(c.workerConfig)
	if cfg == nil {
		cfg = map[string]string{}
	}
	return cfg
}

func (c *Client) configFrame() wsrpc.Frame {
	return wsrpc.Frame{Type: ConfigMessageType, Config: c.WorkerConfig()}
}

func (c *Client) handoff(p *wsrpc.Peer) {
	c.mu.Lock()
	enabled := c.workerEnabled
	c.mu.Unlock()

	if !enabled {
		return
	}
	if err := p.Send(c.configFrame()); err != nil {
		c.logger.Warn("failed to hand config to worker",
			slog.String("peer_id", p.ID()),
			slog.String("error", err.Error()))
		return
	}
	c.logger.Debug("worker config handed off", slog.String("peer_id", p.ID()))
}

// ConfigureWorker enables the handoff and sends it to the connected client,
// if any. Later connections receive it on connect.
func (c *Client) ConfigureWorker(ctx context.Context) error {
	c.mu.Lock()
	c.workerEnabled = true
	c.mu.Unlock()

	if err := c.endpoint.Send(c.configFrame()); err != nil && !errors.Is(err, wsrpc.ErrNoPeer) {
		return fmt.Errorf("failed to send worker config: %w", err)
	}
	return nil
}

// DisableWorker stops handing the config to new connections.
func (c *Client) DisableWorker() {
	c.mu.Lock()
	c.workerEnabled = false
	c.mu.Unlock()
}

// WorkerEnabled reports whether connections receive the config handoff.
func (c *Client) WorkerEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workerEnabled
}

// RequestToken implements Provider.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	if !c.endpoint.Connected() {
		return "", ErrUnsupported
	}
	if c.vapidKey == "" {
		return "", ErrMissingVAPIDKey
	}

	raw, err := c.endpoint.Call(ctx, callRequestToken, map[string]string{"vapidKey": c.vapidKey})
	if err != nil {
		if errors.Is(err, wsrpc.ErrNoPeer) {
			return "", ErrUnsupported
		}
		return "", fmt.Errorf("token request failed: %w", err)
	}

	var reply tokenReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("failed to decode token reply: %w", err)
	}

	switch {
	case reply.Supported != nil && !*reply.Supported:
		return "", ErrUnsupported
	case reply.Permission != "" && reply.Permission != "granted":
		return "", ErrPermissionDenied
	case reply.Error != "":
		return "", errors.New(reply.Error)
	case reply.Token == "":
		return "", errors.New("web client returned an empty token")
	}
	return reply.Token, nil
}

// OnForegroundMessage implements Provider.
func (c *Client) OnForegroundMessage(handler func(notifications.ForegroundMessage)) (notifications.Subscription, error) {
	if c.endpoint == nil {
		return nil, ErrUnsupported
	}

	cancel := c.endpoint.Listen(signalForegroundMessage, func(payload json.RawMessage) {
		var msg notifications.ForegroundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Warn("dropping malformed foreground message", slog.String("error", err.Error()))
			return
		}
		handler(msg)
	})
	return notifications.NewSubscription(cancel), nil
}

// OpenURL opens url in a new browser tab.
func (c *Client) OpenURL(ctx context.Context, url string) error {
	if _, err := c.endpoint.Call(ctx, callOpenWindow, url, "_blank"); err != nil {
		if errors.Is(err, wsrpc.ErrNoPeer) {
			return ErrUnsupported
		}
		return err
	}
	return nil
}
