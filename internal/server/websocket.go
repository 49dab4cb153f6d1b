package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/solarsentinel/sentinel-ai/internal/metrics"
	"github.com/solarsentinel/sentinel-ai/internal/model"
	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

// defaultWSOrigins are the development origins accepted when no
// explicit allow list is configured.
var defaultWSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// newUpgrader builds a WebSocket upgrader whose origin check honors
// the configured allow list: "*" admits any origin, comparisons are
// case-insensitive, and requests without an Origin header
// (non-browser clients) are allowed.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = defaultWSOrigins
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// telemetryFrame is one message on the live stream: a simulated
// reading and, when the model is trained, its prediction.
type telemetryFrame struct {
	Timestamp   time.Time         `json:"timestamp"`
	Reading     telemetry.Reading `json:"reading"`
	Prediction  *model.Prediction `json:"prediction,omitempty"`
	SampleIndex int               `json:"sample_index"`
}

// handleTelemetryStream serves GET /ws/telemetry. Streams the time-series
// simulator through the detector, one frame per tick. Query params:
// days (simulated span, default 1, max 30) and interval_ms (frame
// pacing, default 1000, min 10).
func (s *Server) handleTelemetryStream(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 1, 1, 30)
	intervalMS := queryInt(r, "interval_ms", 1000, 10, 60000)

	upgrader := newUpgrader(s.cfg.Server.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	// Reader goroutine: the client never sends payloads, but reading
	// is how close frames surface.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	series := telemetry.GenerateTimeSeries(days, time.Now().UnixNano(), time.Now())
	ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
	defer ticker.Stop()

	for i, sample := range series {
		select {
		case <-s.ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
		}

		frame := telemetryFrame{
			Timestamp:   sample.Timestamp,
			Reading:     sample.Reading,
			SampleIndex: i,
		}
		if s.detector.Trained() {
			p, err := s.detector.Predict(sample.Voltage, sample.Temperature, sample.PowerOutput)
			if err == nil {
				frame.Prediction = &p
			}
		}

		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
