// Package webfcm talks to the browser-side messaging client: token requests,
// foreground messages and the background worker's config handoff.
package webfcm

import (
	"context"
	"errors"

	"github.com/eternisai/push-bridge/internal/notifications"
)

var (
	ErrUnsupported      = errors.New("firebase messaging is not supported in this browser")
	ErrPermissionDenied = errors.New("notification permission not granted")
	ErrMissingVAPIDKey  = errors.New("missing FIREBASE_VAPID_KEY")
)

// Provider is the web messaging SDK as the console sees it.
type Provider interface {
	// RequestToken prompts for permission and returns a registration token.
	RequestToken(ctx context.Context) (string, error)
	// OnForegroundMessage delivers messages received while the page is focused.
	OnForegroundMessage(handler func(notifications.ForegroundMessage)) (notifications.Subscription, error)
}

// WorkerConfigurer is implemented by providers that hand the Firebase config
// to a background delivery worker.
type WorkerConfigurer interface {
	ConfigureWorker(ctx context.Context) error
}

// ConfigMessageType is the frame type the background worker listens for.
const ConfigMessageType = "SET_FIREBASE_CONFIG"
