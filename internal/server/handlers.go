package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/solarsentinel/sentinel-ai/internal/metrics"
	"github.com/solarsentinel/sentinel-ai/internal/model"
	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

// Client-facing error messages are fixed per error class; raw error
// details stay in the server log.
const (
	msgMissingFields   = "missing required fields: voltage, temperature, power_output"
	msgInvalidBody     = "invalid JSON body"
	msgNotTrained      = "model not trained"
	msgTooFewSamples   = "need at least 100 training samples"
	msgInternal        = "internal error"
	msgNotInitialized  = "model not initialized"
	minTrainingSamples = 100
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// healthResponse reports model readiness.
type healthResponse struct {
	Status          string `json:"status"`
	ModelTrained    bool   `json:"model_trained"`
	ModelVersion    string `json:"model_version"`
	TrainingSamples int    `json:"training_samples"`
}

// handleHealth serves GET /health. Never errors.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	trained := s.detector.Trained()
	status := "ok"
	if !trained {
		status = "error"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:          status,
		ModelTrained:    trained,
		ModelVersion:    model.Version,
		TrainingSamples: s.detector.TrainingSamples(),
	})
}

// predictRequest uses pointers so absent fields are distinguishable
// from zero values.
type predictRequest struct {
	Voltage     *float64 `json:"voltage"`
	Temperature *float64 `json:"temperature"`
	PowerOutput *float64 `json:"power_output"`
}

// handlePredict serves POST /predict. Validates the payload, warns on (but
// does not reject) values outside expected physical ranges, and
// delegates to the detector.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Voltage == nil || req.Temperature == nil || req.PowerOutput == nil {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	reading := telemetry.Reading{
		Voltage:     *req.Voltage,
		Temperature: *req.Temperature,
		PowerOutput: *req.PowerOutput,
	}
	s.warnOutOfRange(reading)

	if !s.detector.Trained() {
		writeError(w, http.StatusInternalServerError, msgNotTrained)
		return
	}

	start := time.Now()
	prediction, err := s.detector.Predict(reading.Voltage, reading.Temperature, reading.PowerOutput)
	if err != nil {
		if errors.Is(err, model.ErrNotTrained) {
			writeError(w, http.StatusInternalServerError, msgNotTrained)
			return
		}
		s.log.Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	metrics.PredictionsTotal.WithLabelValues(prediction.Prediction).Inc()

	s.log.Info("prediction",
		zap.String("prediction", prediction.Prediction),
		zap.Float64("confidence", prediction.Confidence),
		zap.Float64("anomaly_score", prediction.AnomalyScore),
	)

	writeJSON(w, http.StatusOK, prediction)
}

// warnOutOfRange logs readings outside expected physical ranges. They
// are still scored; field sensors drift and the detector should see
// what they produce.
func (s *Server) warnOutOfRange(reading telemetry.Reading) {
	voltageOK, temperatureOK, powerOK := reading.InRange()
	if !voltageOK {
		s.log.Warn("voltage out of expected range", zap.Float64("voltage", reading.Voltage))
		metrics.OutOfRangeReadings.WithLabelValues("voltage").Inc()
	}
	if !temperatureOK {
		s.log.Warn("temperature out of expected range", zap.Float64("temperature", reading.Temperature))
		metrics.OutOfRangeReadings.WithLabelValues("temperature").Inc()
	}
	if !powerOK {
		s.log.Warn("power output out of expected range", zap.Float64("power_output", reading.PowerOutput))
		metrics.OutOfRangeReadings.WithLabelValues("power_output").Inc()
	}
}

type retrainRequest struct {
	TrainingData []telemetry.Reading `json:"training_data"`
}

type retrainResponse struct {
	Status          string `json:"status"`
	TrainingSamples int    `json:"training_samples"`
	Message         string `json:"message"`
}

// handleRetrain serves POST /retrain. Requires at least 100 samples. A
// failed training run leaves the previously trained model serving.
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if len(req.TrainingData) < minTrainingSamples {
		writeError(w, http.StatusBadRequest, msgTooFewSamples)
		return
	}

	start := time.Now()
	validation, err := s.detector.Train(req.TrainingData)
	if err != nil {
		metrics.TrainingsTotal.WithLabelValues("error").Inc()
		s.log.Error("retraining failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	metrics.TrainingsTotal.WithLabelValues("success").Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	metrics.TrainingSamples.Set(float64(len(req.TrainingData)))

	s.log.Info("model retrained",
		zap.Int("samples", len(req.TrainingData)),
		zap.Float64("precision", validation.Precision),
		zap.Float64("recall", validation.Recall),
		zap.Float64("f1", validation.F1Score),
	)

	if s.store != nil {
		if err := s.detector.Save(r.Context(), s.store); err != nil {
			// The new model still serves; only persistence failed.
			s.log.Error("snapshot save failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, retrainResponse{
		Status:          "success",
		TrainingSamples: len(req.TrainingData),
		Message:         "Model retrained successfully",
	})
}

// handleModelInfo serves GET /model/info.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.detector == nil {
		writeError(w, http.StatusInternalServerError, msgNotInitialized)
		return
	}

	writeJSON(w, http.StatusOK, s.detector.Info())
}
