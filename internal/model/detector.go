package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/solarsentinel/sentinel-ai/internal/ml"
	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

// Version identifies the deployed model family.
const Version = "v1.0-isolation-forest"

// ErrNotTrained is returned by operations that need a fitted model.
var ErrNotTrained = errors.New("model not trained")

// Hyperparameters are the fixed detector settings. Chosen to match the
// values the model was tuned with: contamination 0.1 (expect 10%
// anomalies), 100 trees, 256 samples per tree.
type Hyperparameters struct {
	Contamination float64 `json:"contamination"`
	NumTrees      int     `json:"n_estimators"`
	SampleSize    int     `json:"max_samples"`
	Seed          int64   `json:"-"`
}

// DefaultHyperparameters returns the standard detector configuration.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Contamination: 0.1,
		NumTrees:      100,
		SampleSize:    256,
		Seed:          42,
	}
}

// maxDepth caps isolation trees at ceil(log2(sampleSize)), the height
// at which a sub-sample is fully isolated on average.
func (h Hyperparameters) maxDepth() int {
	return int(math.Ceil(math.Log2(float64(h.SampleSize))))
}

// Prediction is the outcome of scoring a single reading.
type Prediction struct {
	Prediction   string  `json:"prediction"` // "Normal" | "Failure Likely"
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
	AnomalyScore float64 `json:"anomaly_score"`
}

const (
	PredictionNormal        = "Normal"
	PredictionFailureLikely = "Failure Likely"
)

// Info is the model metadata returned by the info endpoint.
type Info struct {
	ModelType         string            `json:"model_type"`
	IsTrained         bool              `json:"is_trained"`
	TrainingSamples   int               `json:"training_samples"`
	Hyperparameters   Hyperparameters   `json:"hyperparameters"`
	ValidationMetrics ValidationMetrics `json:"validation_metrics"`
	Version           string            `json:"version"`
	Limitations       []string          `json:"limitations"`
}

// limitations is the static list of documented model caveats.
var limitations = []string{
	"Trained on synthetic data only",
	"Real-world validation pending",
	"May not capture all failure modes",
	"Edge cases (theft, vandalism) not included",
}

// Detector wraps an isolation forest with score-threshold calibration,
// heuristic validation and confidence mapping. A single Detector is
// shared process-wide; Train takes the write lock, Predict and Info
// read locks, so retraining never races in-flight predictions.
type Detector struct {
	mu     sync.RWMutex
	params Hyperparameters

	forest          *ml.Forest
	offset          float64
	trained         bool
	trainingSamples int
	metrics         ValidationMetrics
}

// NewDetector creates an untrained detector.
func NewDetector(params Hyperparameters) *Detector {
	return &Detector{params: params}
}

// splitSeed fixes the 80/20 validation split, independent of the
// forest's sampling RNG.
const splitSeed = 42

// Train fits the detector on the given readings: an 80/20 split with a
// fixed seed, forest fitted on the 80%, score threshold set at the
// contamination quantile of the training scores, and the 20% holdout
// labeled by a heuristic rule to compute proxy validation metrics.
// The heuristic truth (voltage < 10 OR temperature > 40 OR power <
// 100) is a self-referential sanity check, not real validation; it is
// kept as documented behavior. A failed Train leaves any previously
// trained state intact.
func (d *Detector) Train(readings []telemetry.Reading) (ValidationMetrics, error) {
	if len(readings) == 0 {
		return ValidationMetrics{}, errors.New("no training data")
	}

	features := make([][]float64, len(readings))
	for i, r := range readings {
		features[i] = r.Features()
	}

	trainSet, testSet := split(features, 0.2, splitSeed)

	forest := ml.NewForest(d.params.NumTrees, d.params.SampleSize, d.params.maxDepth(), d.params.Seed)
	if err := forest.Fit(trainSet); err != nil {
		return ValidationMetrics{}, fmt.Errorf("fit failed: %w", err)
	}

	// Calibrate the decision threshold the way sklearn does for
	// contamination: the raw score of x is -s(x) - offset, where
	// offset is the contamination quantile of -s over the training
	// set. Raw < 0 marks an anomaly.
	negated := make([]float64, len(forest.TrainScores()))
	for i, s := range forest.TrainScores() {
		negated[i] = -s
	}
	offset := quantile(negated, d.params.Contamination)

	metrics, err := validate(forest, offset, testSet)
	if err != nil {
		return ValidationMetrics{}, fmt.Errorf("validation failed: %w", err)
	}

	d.mu.Lock()
	d.forest = forest
	d.offset = offset
	d.trained = true
	d.trainingSamples = len(readings)
	d.metrics = metrics
	d.mu.Unlock()

	return metrics, nil
}

// Predict scores a single reading. Deterministic for a fixed trained
// model and input. Returns ErrNotTrained before the first Train.
func (d *Detector) Predict(voltage, temperature, powerOutput float64) (Prediction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return Prediction{}, ErrNotTrained
	}

	s, err := d.forest.Score([]float64{voltage, temperature, powerOutput})
	if err != nil {
		return Prediction{}, fmt.Errorf("score failed: %w", err)
	}
	raw := -s - d.offset

	label := PredictionNormal
	if raw < 0 {
		label = PredictionFailureLikely
	}

	return Prediction{
		Prediction:   label,
		Confidence:   Confidence(raw),
		ModelVersion: Version,
		AnomalyScore: raw,
	}, nil
}

// Confidence maps a raw anomaly score to [0, 1]. Strongly positive
// (confidently normal) and strongly negative (confidently anomalous)
// scores both approach 1; a score of zero maps to 0.5.
func Confidence(score float64) float64 {
	normalized := 1 / (1 + math.Exp(-score*10))
	confidence := normalized
	if score < 0 {
		confidence = 1 - normalized
	}
	return math.Max(0, math.Min(1, confidence))
}

// Trained reports whether the detector has been fitted.
func (d *Detector) Trained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trained
}

// TrainingSamples returns the size of the last training set.
func (d *Detector) TrainingSamples() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trainingSamples
}

// Info returns the current model metadata. Never fails.
func (d *Detector) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Info{
		ModelType:         "Isolation Forest",
		IsTrained:         d.trained,
		TrainingSamples:   d.trainingSamples,
		Hyperparameters:   d.params,
		ValidationMetrics: d.metrics,
		Version:           "v1.0",
		Limitations:       limitations,
	}
}

// split shuffles row indices with a fixed seed and carves off
// testFraction of the rows as the holdout set.
func split(rows [][]float64, testFraction float64, seed int64) (train, test [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(len(rows))

	testSize := int(float64(len(rows)) * testFraction)
	test = make([][]float64, 0, testSize)
	train = make([][]float64, 0, len(rows)-testSize)
	for i, j := range idx {
		if i < testSize {
			test = append(test, rows[j])
		} else {
			train = append(train, rows[j])
		}
	}
	return train, test
}

// quantile returns the q-quantile of values with linear interpolation.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
