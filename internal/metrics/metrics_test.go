package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	EventsIngested.WithLabelValues("native_push").Inc()
	BridgeCalls.WithLabelValues("getAppInfo", OutcomeSuccess).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `push_bridge_events_ingested_total{source="native_push"}`)
	assert.Contains(t, string(body), `push_bridge_bridge_calls_total{handler="getAppInfo",outcome="success"}`)
}
