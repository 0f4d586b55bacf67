package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizedFillsPlaceholders(t *testing.T) {
	for _, src := range []Source{SourceWebFCM, SourceNative, SourceNativePush, SourceTest, Source("bogus")} {
		t.Run(string(src), func(t *testing.T) {
			e := Event{Source: src}.Normalized()

			assert.Equal(t, src, e.Source)
			assert.NotEmpty(t, e.Title)
			assert.NotEmpty(t, e.Body)
		})
	}
}

func TestNormalizedKeepsProvidedFields(t *testing.T) {
	e := Event{Source: SourceNativePush, Title: "Hi", Body: "There"}.Normalized()

	assert.Equal(t, "Hi", e.Title)
	assert.Equal(t, "There", e.Body)
}

func TestNormalizedNativePushPlaceholders(t *testing.T) {
	e := Event{Source: SourceNativePush}.Normalized()

	assert.Equal(t, "Native Notification", e.Title)
	assert.Equal(t, "Received from native app", e.Body)
}

func TestLatency(t *testing.T) {
	sent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	e := Event{
		SentTime:     NewTimestamp(sent),
		ReceivedTime: NewTimestamp(sent.Add(1200 * time.Millisecond)),
	}
	d, ok := e.Latency()
	require.True(t, ok)
	assert.Equal(t, 1200*time.Millisecond, d)

	_, ok = Event{SentTime: NewTimestamp(sent)}.Latency()
	assert.False(t, ok)

	_, ok = Event{SentTime: &Timestamp{}, ReceivedTime: NewTimestamp(sent)}.Latency()
	assert.False(t, ok)
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339 millis", `"2024-01-01T00:00:01.200Z"`, time.Date(2024, 1, 1, 0, 0, 1, 200e6, time.UTC)},
		{"unix millis number", `1704067200000`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"unix millis string", `"1704067200000"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	local := []struct {
		name string
		in   string
		want time.Time
	}{
		{"iso without zone", `"2024-01-01T00:00:01.200"`, time.Date(2024, 1, 1, 0, 0, 1, 200e6, time.Local)},
		{"iso micros without zone", `"2024-01-01T00:00:01.200123"`, time.Date(2024, 1, 1, 0, 0, 1, 200123e3, time.Local)},
		{"space separated", `"2024-01-01 00:00:01"`, time.Date(2024, 1, 1, 0, 0, 1, 0, time.Local)},
		{"space separated with zone", `"2024-01-01 00:00:01Z"`, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)},
	}
	for _, tt := range local {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	for _, in := range []string{`"yesterday"`, `""`, `true`, `{"seconds":1}`, `[1]`} {
		t.Run("unreadable "+in, func(t *testing.T) {
			ts := Timestamp{Time: time.Now()}
			require.NoError(t, json.Unmarshal([]byte(in), &ts))
			assert.True(t, ts.IsZero())
		})
	}
}

func TestTimestampMarshal(t *testing.T) {
	b, err := json.Marshal(NewTimestamp(time.Date(2024, 1, 1, 0, 0, 1, 200e6, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-01T00:00:01.200Z"`, string(b))
}

func TestDataAcceptsNonStringValues(t *testing.T) {
	var d Data
	require.NoError(t, json.Unmarshal([]byte(`{"type":"test","count":3,"nested":{"a":true}}`), &d))

	assert.Equal(t, "test", d["type"])
	assert.Equal(t, "3", d["count"])
	assert.JSONEq(t, `{"a":true}`, d["nested"])

	assert.Error(t, json.Unmarshal([]byte(`["not","an","object"]`), &d))
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "/test-page", Event{Data: Data{"deep_link": "/test-page"}}.DeepLink())
	assert.Empty(t, Event{}.DeepLink())
}
