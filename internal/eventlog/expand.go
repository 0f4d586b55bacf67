package eventlog

import (
	"encoding/json"
	"strings"
)

// View is the presentation form of a record. When the message holds a JSON
// object, Structured is true and Keys/Pretty describe it.
type View struct {
	Record

	Structured bool   `json:"structured"`
	Keys       int    `json:"keys,omitempty"`
	Pretty     string `json:"pretty,omitempty"`
}

// Expand tries to read message as a JSON object. It never fails: anything that
// is not an object comes back as plain text (Structured=false).
func Expand(rec Record) View {
	v := View{Record: rec}

	trimmed := strings.TrimSpace(rec.Message)
	if !strings.HasPrefix(trimmed, "{") {
		return v
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return v
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return v
	}

	v.Structured = true
	v.Keys = len(parsed)
	v.Pretty = string(pretty)
	return v
}

// Views expands every record, preserving order.
func Views(records []Record) []View {
	out := make([]View, len(records))
	for i, rec := range records {
		out[i] = Expand(rec)
	}
	return out
}
