package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source tags where a notification (and the toast it produces) came from.
type Source string

const (
	SourceWebFCM     Source = "web_fcm"
	SourceNative     Source = "native"
	SourceNativePush Source = "native_push"
	SourceTest       Source = "test"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceWebFCM, SourceNative, SourceNativePush, SourceTest:
		return true
	}
	return false
}

// placeholder is the title/body used when the upstream payload omits them.
type placeholder struct {
	title string
	body  string
}

var placeholders = map[Source]placeholder{
	SourceWebFCM:     {"Notification", "Received via Web FCM"},
	SourceNative:     {"Native App", "Event from native app"},
	SourceNativePush: {"Native Notification", "Received from native app"},
	SourceTest:       {"Test Notification", "This is a simulated notification"},
}

// Event is a notification normalized from any adapter.
type Event struct {
	Source       Source     `json:"source"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Data         Data       `json:"data,omitempty"`
	SentTime     *Timestamp `json:"sentTime,omitempty"`
	ReceivedTime *Timestamp `json:"receivedTime,omitempty"`
	MessageID    string     `json:"messageId,omitempty"`
}

// Normalized returns a copy with title and body filled from the source's
// placeholders when absent. Unknown sources use the test placeholders.
func (e Event) Normalized() Event {
	p, ok := placeholders[e.Source]
	if !ok {
		p = placeholders[SourceTest]
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = p.title
	}
	if strings.TrimSpace(e.Body) == "" {
		e.Body = p.body
	}
	return e
}

// Latency is ReceivedTime - SentTime. ok is false unless both are present.
func (e Event) Latency() (d time.Duration, ok bool) {
	if e.SentTime == nil || e.ReceivedTime == nil || e.SentTime.IsZero() || e.ReceivedTime.IsZero() {
		return 0, false
	}
	return e.ReceivedTime.Time.Sub(e.SentTime.Time), true
}

// DeepLink returns the deep_link data field, if any.
func (e Event) DeepLink() string {
	return e.Data["deep_link"]
}

// decodeData reads a payload's data field. An object becomes Data. Any other
// truthy value is returned as text; falsy values read as absent.
func decodeData(raw json.RawMessage) (Data, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ""
	}
	switch string(raw) {
	case "null", "false", "0", `""`:
		return nil, ""
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err == nil {
		return d, ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nil, s
	}
	return nil, string(raw)
}

// Data is a string-keyed payload map. Non-string JSON values are kept in their
// JSON encoding so native payloads with numbers or nested objects still decode.
type Data map[string]string

// UnmarshalJSON accepts any JSON object.
func (d *Data) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("data must be a JSON object: %w", err)
	}

	out := make(Data, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	*d = out
	return nil
}

// Timestamp accepts either a date string or a number of Unix milliseconds,
// the two shapes native hosts send. A value that cannot be read as a time
// decodes as absent rather than failing the enclosing payload.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// Zone-less layouts are read in local time.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
)

// ParseTimestamp reads s as Unix milliseconds or one of the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON decodes a string or millisecond number. Anything else leaves
// t zero.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if parsed, ok := ParseTimestamp(s); ok {
			t.Time = parsed
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var ms float64
		if err := json.Unmarshal(b, &ms); err == nil {
			t.Time = time.UnixMilli(int64(ms)).UTC()
		}
	}
	return nil
}

// MarshalJSON encodes as an RFC 3339 string with millisecond precision.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

// CompletionNotification is the payload of a server-side test push.
type CompletionNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendResult represents the result of sending a notification to a device.
type SendResult struct {
	Token    string `json:"token"`
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
