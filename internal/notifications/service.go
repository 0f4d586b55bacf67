package notifications

import (
	"context"
	"errors"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/eternisai/push-bridge/internal/logger"
)

// ErrPushDisabled is returned when server-side pushes are turned off.
var ErrPushDisabled = errors.New("push notifications are disabled")

// MessageSender is the subset of *messaging.Client the sender needs.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
}

// Sender delivers test pushes to a single registration token via Firebase Cloud Messaging.
type Sender struct {
	client    MessageSender
	logger    *logger.Logger
	enabled   bool
	dryRun    bool
	projectID string
	credJSON  string
}

// SenderOptions configures a Sender.
type SenderOptions struct {
	Enabled   bool
	DryRun    bool
	ProjectID string

	// CredJSON enables a debug curl in the logs when a send fails.
	CredJSON string
}

// NewSender creates a new push sender. A nil client yields a disabled sender.
func NewSender(client MessageSender, logger *logger.Logger, opts SenderOptions) *Sender {
	return &Sender{
		client:    client,
		logger:    logger,
		enabled:   opts.Enabled && client != nil,
		dryRun:    opts.DryRun,
		projectID: opts.ProjectID,
		credJSON:  opts.CredJSON,
	}
}

// Enabled reports whether the sender can deliver.
func (s *Sender) Enabled() bool {
	return s.enabled
}

// Send pushes notification to token and reports the outcome.
func (s *Sender) Send(ctx context.Context, token string, notification CompletionNotification) (SendResult, error) {
	log := s.logger.WithContext(ctx).WithComponent("push-sender")

	if !s.enabled {
		log.Debug("push notifications disabled, skipping",
			slog.String("title", notification.Title))
		return SendResult{}, ErrPushDisabled
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data:  notification.Data,
		Token: token,
	}

	log.Info("📡 sending test push via FCM",
		slog.String("token_prefix", tokenPrefix(token)),
		slog.Bool("dry_run", s.dryRun),
		slog.Int("data_fields", len(notification.Data)))

	var (
		response string
		err      error
	)
	if s.dryRun {
		response, err = s.client.SendDryRun(ctx, message)
	} else {
		response, err = s.client.Send(ctx, message)
	}

	if err != nil {
		log.Error("❌ test push failed",
			slog.String("token_prefix", tokenPrefix(token)),
			slog.String("error", err.Error()))
		if s.credJSON != "" {
			log.Debug("replay failed request",
				slog.String("curl", GenerateDebugCurl(ctx, s.credJSON, s.projectID, message)))
		}
		return SendResult{Token: tokenPrefix(token), Success: false, Error: err.Error()}, err
	}

	log.Info("✅ test push sent", slog.String("response", response))
	return SendResult{Token: tokenPrefix(token), Success: true, Response: response}, nil
}

func tokenPrefix(token string) string {
	return token[:min(10, len(token))] + "..."
}
