// Package wsrpc carries named calls and fire-and-forget signals between the
// console and a single remote peer over a WebSocket.
package wsrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame types.
const (
	FrameCall   = "call"
	FrameResult = "result"
	FrameSignal = "signal"
)

// Frame is the single JSON envelope exchanged on the socket. Frames whose type
// is not one of the above are plain messages (for example SET_FIREBASE_CONFIG).
type Frame struct {
	Type    string            `json:"type"`
	ID      string            `json:"id,omitempty"`
	Name    string            `json:"name,omitempty"`
	Args    []any             `json:"args,omitempty"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Payload json.RawMessage   `json:"payload,omitempty"`
	Config  map[string]string `json:"config,omitempty"`
}

var (
	ErrNoPeer     = errors.New("no peer connected")
	ErrPeerClosed = errors.New("peer connection closed")
)

// RemoteError is a call the peer answered with an error instead of a result.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed on peer: %s", e.Name, e.Message)
}
