package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarsentinel/sentinel-ai/internal/config"
	"github.com/solarsentinel/sentinel-ai/internal/model"
	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewManager("").Load()
	require.NoError(t, err)
	return cfg
}

// newTestServer builds a Server without starting the listener.
func newTestServer(t *testing.T, trained bool) *Server {
	t.Helper()

	detector := model.NewDetector(model.DefaultHyperparameters())
	if trained {
		_, err := detector.Train(telemetry.Generate(1000, 42))
		require.NoError(t, err)
	}

	srv, err := New(testConfig(t), zap.NewNop(), detector, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.cancel() })
	return srv
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHandleHealth_Trained(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handleHealth, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.ModelTrained)
	assert.Equal(t, model.Version, resp.ModelVersion)
	assert.Equal(t, 1000, resp.TrainingSamples)
}

func TestHandleHealth_Untrained(t *testing.T) {
	srv := newTestServer(t, false)

	rr := doJSON(t, srv.handleHealth, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.ModelTrained)
	assert.Zero(t, resp.TrainingSamples)
}

// ---------------------------------------------------------------------------
// Predict
// ---------------------------------------------------------------------------

func TestHandlePredict_Normal(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": 12.0, "temperature": 28.0, "power_output": 200.0}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.Prediction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, model.PredictionNormal, resp.Prediction)
	assert.Greater(t, resp.Confidence, 0.5)
	assert.LessOrEqual(t, resp.Confidence, 1.0)
	assert.Equal(t, model.Version, resp.ModelVersion)
}

func TestHandlePredict_FailureLikely(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": 9.2, "temperature": 46.0, "power_output": 95.0}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.Prediction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, model.PredictionFailureLikely, resp.Prediction)
	assert.Negative(t, resp.AnomalyScore)
}

func TestHandlePredict_MissingField(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": 12.0, "power_output": 200.0}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, msgMissingFields, resp.Error)
}

func TestHandlePredict_EmptyBody(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlePredict_NonNumericField(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": "twelve", "temperature": 28.0, "power_output": 200.0}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, msgInvalidBody, resp.Error)
}

func TestHandlePredict_Untrained(t *testing.T) {
	srv := newTestServer(t, false)

	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": 12.0, "temperature": 28.0, "power_output": 200.0}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, msgNotTrained, resp.Error)
}

func TestHandlePredict_OutOfRangeStillScored(t *testing.T) {
	srv := newTestServer(t, true)

	// Outside every expected physical range, still answered with 200.
	rr := doJSON(t, srv.handlePredict, http.MethodPost, "/predict",
		`{"voltage": 7.0, "temperature": 60.0, "power_output": 350.0}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlePredict_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handlePredict, http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// ---------------------------------------------------------------------------
// Retrain
// ---------------------------------------------------------------------------

func retrainBody(t *testing.T, readings []telemetry.Reading) string {
	t.Helper()
	blob, err := json.Marshal(map[string]interface{}{"training_data": readings})
	require.NoError(t, err)
	return string(blob)
}

func TestHandleRetrain_TooFewSamples(t *testing.T) {
	srv := newTestServer(t, true)

	for _, n := range []int{0, 1, 50, 99} {
		rr := doJSON(t, srv.handleRetrain, http.MethodPost, "/retrain",
			retrainBody(t, telemetry.Generate(n, 42)))
		require.Equal(t, http.StatusBadRequest, rr.Code, "n=%d", n)

		var resp errorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, msgTooFewSamples, resp.Error)
	}
}

func TestHandleRetrain_Success(t *testing.T) {
	srv := newTestServer(t, false)

	rr := doJSON(t, srv.handleRetrain, http.MethodPost, "/retrain",
		retrainBody(t, telemetry.Generate(150, 42)))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp retrainResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 150, resp.TrainingSamples)

	assert.True(t, srv.detector.Trained())
	assert.Equal(t, 150, srv.detector.TrainingSamples())
}

func TestHandleRetrain_MissingTrainingData(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handleRetrain, http.MethodPost, "/retrain", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ---------------------------------------------------------------------------
// Model info
// ---------------------------------------------------------------------------

func TestHandleModelInfo(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doJSON(t, srv.handleModelInfo, http.MethodGet, "/model/info", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var info model.Info
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&info))
	assert.Equal(t, "Isolation Forest", info.ModelType)
	assert.True(t, info.IsTrained)
	assert.Equal(t, 1000, info.TrainingSamples)
	assert.Equal(t, 0.1, info.Hyperparameters.Contamination)
	assert.NotEmpty(t, info.Limitations)
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestBuildHandler_Routes(t *testing.T) {
	srv := newTestServer(t, true)
	ts := httptest.NewServer(srv.buildHandler())
	defer ts.Close()

	resp, err := http.Get(fmt.Sprintf("%s/health", ts.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	metricsResp, err := http.Get(fmt.Sprintf("%s/metrics", ts.URL))
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestBuildHandler_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, true)
	ts := httptest.NewServer(srv.buildHandler())
	defer ts.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, ts.URL+"/predict", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
