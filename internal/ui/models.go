package ui

import (
	"errors"

	"github.com/eternisai/push-bridge/internal/console"
)

// Message is a frame on a presentation client's socket.
type Message struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	State     *console.State `json:"state,omitempty"`
	ID        string         `json:"id,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	URL       string         `json:"url,omitempty"`
	Accepted  *bool          `json:"accepted,omitempty"`
}

// Message types
const (
	MessageTypeConnected       = "connected"
	MessageTypeState           = "state"
	MessageTypeConfirm         = "confirm"
	MessageTypeConfirmResponse = "confirm_response"
	MessageTypeConfirmClosed   = "confirm_closed"
	MessageTypeNavigate        = "navigate"
)

var (
	// ErrNoViewer means no presentation client is connected to ask or to
	// navigate.
	ErrNoViewer = errors.New("no presentation client connected")

	ErrUnknownConfirmation = errors.New("unknown or already answered confirmation")
)
