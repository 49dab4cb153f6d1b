package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

func originRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws/telemetry", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestNewUpgrader_OriginChecks(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header allowed", nil, "", true},
		{"default localhost 3000", nil, "http://localhost:3000", true},
		{"default localhost 5173", nil, "http://localhost:5173", true},
		{"unknown origin rejected by defaults", nil, "http://evil.example.com", false},
		{"wildcard admits anything", []string{"*"}, "http://anything.example.com", true},
		{"exact match", []string{"http://dash.example.com"}, "http://dash.example.com", true},
		{"case insensitive match", []string{"http://Dash.Example.com"}, "http://dash.example.com", true},
		{"non-listed origin rejected", []string{"http://dash.example.com"}, "http://other.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpgrader(tt.allowed)
			assert.Equal(t, tt.want, up.CheckOrigin(originRequest(tt.origin)))
		})
	}
}

func TestTelemetryStream_DeliversFrames(t *testing.T) {
	srv := newTestServer(t, true)
	ts := httptest.NewServer(srv.buildHandler())
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws/telemetry?interval_ms=10"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var prev int = -1
	for i := 0; i < 3; i++ {
		var frame telemetryFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Greater(t, frame.SampleIndex, prev)
		prev = frame.SampleIndex
		require.NotNil(t, frame.Prediction)
		assert.Contains(t, []string{"Normal", "Failure Likely"}, frame.Prediction.Prediction)
	}
}

func TestTelemetryStream_UntrainedOmitsPrediction(t *testing.T) {
	srv := newTestServer(t, false)
	ts := httptest.NewServer(srv.buildHandler())
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws/telemetry?interval_ms=10"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame telemetryFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Nil(t, frame.Prediction)
	assert.True(t, frame.Reading.Voltage > 0 || frame.Reading.PowerOutput >= 0)
}

func TestQueryInt_Bounds(t *testing.T) {
	mk := func(raw string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/ws/telemetry?"+raw, nil)
	}

	assert.Equal(t, 1, queryInt(mk(""), "days", 1, 1, 30))
	assert.Equal(t, 7, queryInt(mk("days=7"), "days", 1, 1, 30))
	assert.Equal(t, 30, queryInt(mk("days=500"), "days", 1, 1, 30))
	assert.Equal(t, 1, queryInt(mk("days=0"), "days", 1, 1, 30))
	assert.Equal(t, 1, queryInt(mk("days=abc"), "days", 1, 1, 30))
	assert.Equal(t, 10, queryInt(mk("interval_ms=3"), "interval_ms", 1000, 10, 60000))
}

func TestTimeSeriesFrameShape(t *testing.T) {
	series := telemetry.GenerateTimeSeries(1, 42, time.Now())
	require.Len(t, series, telemetry.ReadingsPerDay)
}
