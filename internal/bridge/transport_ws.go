package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/wsrpc"
)

// WSCaller carries handler calls to the host attached at a wsrpc endpoint.
type WSCaller struct {
	endpoint *wsrpc.Endpoint
}

// NewWSCaller wraps endpoint.
func NewWSCaller(endpoint *wsrpc.Endpoint) *WSCaller {
	return &WSCaller{endpoint: endpoint}
}

// Connected reports whether a host is attached.
func (c *WSCaller) Connected() bool {
	return c.endpoint.Connected()
}

// CallHandler implements Caller.
func (c *WSCaller) CallHandler(ctx context.Context, name string, args ...any) (Response, error) {
	raw, err := c.endpoint.Call(ctx, name, args...)
	if err != nil {
		if errors.Is(err, wsrpc.ErrNoPeer) {
			return Response{}, ErrBridgeAbsent
		}
		return Response{}, err
	}
	return ParseResponse(raw)
}

// SignalSource delivers native signals until the subscription is disposed.
type SignalSource interface {
	Subscribe(handler func(notifications.Signal)) (notifications.Subscription, error)
}

// WSSignals listens for the host's signals on a wsrpc endpoint.
type WSSignals struct {
	endpoint *wsrpc.Endpoint
	logger   *logger.Logger
}

// NewWSSignals wraps endpoint.
func NewWSSignals(endpoint *wsrpc.Endpoint, logger *logger.Logger) *WSSignals {
	return &WSSignals{endpoint: endpoint, logger: logger.WithComponent("bridge-signals")}
}

// Subscribe registers handler for all four signal kinds.
func (s *WSSignals) Subscribe(handler func(notifications.Signal)) (notifications.Subscription, error) {
	subs := make([]notifications.Subscription, 0, len(notifications.SignalKinds))
	for _, kind := range notifications.SignalKinds {
		kind := kind
		cancel := s.endpoint.Listen(string(kind), func(payload json.RawMessage) {
			deliver(s.logger, kind, payload, handler)
		})
		subs = append(subs, notifications.NewSubscription(cancel))
	}
	return notifications.Subscriptions(subs...), nil
}

// deliver decodes one signal and hands it to handler. Malformed payloads are
// logged and dropped.
func deliver(log *logger.Logger, kind notifications.SignalKind, payload json.RawMessage, handler func(notifications.Signal)) {
	sig, err := notifications.DecodeSignal(kind, payload)
	if err != nil {
		log.Warn("dropping malformed signal",
			slog.String("signal", string(kind)),
			slog.String("error", err.Error()))
		return
	}
	metrics.SignalsReceived.WithLabelValues(string(kind)).Inc()
	handler(sig)
}
