// Package tokens persists registration tokens submitted from the console.
package tokens

import (
	"context"
	"errors"
	"fmt"
)

// Platforms a token can be registered for.
const (
	PlatformNative = "native"
	PlatformWeb    = "web"
)

// ErrNoStore is returned when token submission is not configured.
var ErrNoStore = errors.New("token store not configured")

// Registration is one token submission. Upserts are keyed by Token.
type Registration struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Validate rejects empty tokens and unknown platforms.
func (r Registration) Validate() error {
	if r.Token == "" {
		return errors.New("token is required")
	}
	if r.Platform != PlatformNative && r.Platform != PlatformWeb {
		return fmt.Errorf("unknown platform %q", r.Platform)
	}
	return nil
}

// Receipt describes what the backend answered. Stores without a response
// body leave it empty.
type Receipt struct {
	Status string `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Store upserts registrations.
type Store interface {
	Upsert(ctx context.Context, reg Registration) (Receipt, error)
}
