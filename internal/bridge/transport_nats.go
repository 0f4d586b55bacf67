package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/nats-io/nats.go"
)

// NATS subjects. Calls go to bridge.call.<handler> as request/reply with the
// JSON-encoded argument array as body; signals arrive on bridge.signal.<kind>.
const (
	natsCallSubjectPrefix   = "bridge.call."
	natsSignalSubjectPrefix = "bridge.signal."
	natsSignalWildcard      = natsSignalSubjectPrefix + "*"
)

// NATSCaller carries handler calls over NATS request/reply.
type NATSCaller struct {
	nc *nats.Conn
}

// NewNATSCaller wraps nc.
func NewNATSCaller(nc *nats.Conn) *NATSCaller {
	return &NATSCaller{nc: nc}
}

// Connected reports whether the NATS connection is up.
func (c *NATSCaller) Connected() bool {
	return c.nc.IsConnected()
}

// CallHandler implements Caller.
func (c *NATSCaller) CallHandler(ctx context.Context, name string, args ...any) (Response, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal %s arguments: %w", name, err)
	}

	msg, err := c.nc.RequestWithContext(ctx, natsCallSubjectPrefix+name, data)
	if err != nil {
		// Nobody serves the subject: no host is attached.
		if errors.Is(err, nats.ErrNoResponders) {
			return Response{}, ErrBridgeAbsent
		}
		return Response{}, fmt.Errorf("%s request failed: %w", name, err)
	}

	return ParseResponse(msg.Data)
}

// NATSSignals receives host signals published on NATS.
type NATSSignals struct {
	nc     *nats.Conn
	logger *logger.Logger
}

// NewNATSSignals wraps nc.
func NewNATSSignals(nc *nats.Conn, logger *logger.Logger) *NATSSignals {
	return &NATSSignals{nc: nc, logger: logger.WithComponent("bridge-signals")}
}

// Subscribe listens on bridge.signal.* and dispatches by subject suffix.
func (s *NATSSignals) Subscribe(handler func(notifications.Signal)) (notifications.Subscription, error) {
	sub, err := s.nc.Subscribe(natsSignalWildcard, func(msg *nats.Msg) {
		kind := notifications.SignalKind(strings.TrimPrefix(msg.Subject, natsSignalSubjectPrefix))
		deliver(s.logger, kind, msg.Data, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", natsSignalWildcard, err)
	}

	s.logger.Info("listening for native signals", slog.String("subject", natsSignalWildcard))

	return notifications.NewSubscription(func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("failed to unsubscribe", slog.String("error", err.Error()))
		}
	}), nil
}
