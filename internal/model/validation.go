package model

import (
	"github.com/solarsentinel/sentinel-ai/internal/ml"
)

// ValidationMetrics summarizes detector agreement with the heuristic
// proxy labels on the 20% holdout split.
type ValidationMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	// ConfusionMatrix is [[TN, FP], [FN, TP]] with anomaly as the
	// positive class.
	ConfusionMatrix [2][2]int `json:"confusion_matrix"`
	TestSamples     int       `json:"test_samples"`
}

// heuristicAnomaly is the proxy ground-truth rule: a holdout sample
// counts as a true anomaly when voltage < 10 OR temperature > 40 OR
// power < 100. Columns follow the fixed feature order.
func heuristicAnomaly(features []float64) bool {
	return features[0] < 10 || features[1] > 40 || features[2] < 100
}

// validate scores the holdout set and computes precision, recall, F1
// and the confusion matrix against the heuristic labels. Divisions by
// zero yield 0, matching the zero_division behavior the metrics were
// originally reported with.
func validate(forest *ml.Forest, offset float64, holdout [][]float64) (ValidationMetrics, error) {
	m := ValidationMetrics{TestSamples: len(holdout)}

	for _, row := range holdout {
		s, err := forest.Score(row)
		if err != nil {
			return ValidationMetrics{}, err
		}
		predicted := -s-offset < 0
		actual := heuristicAnomaly(row)

		switch {
		case actual && predicted:
			m.ConfusionMatrix[1][1]++ // TP
		case actual && !predicted:
			m.ConfusionMatrix[1][0]++ // FN
		case !actual && predicted:
			m.ConfusionMatrix[0][1]++ // FP
		default:
			m.ConfusionMatrix[0][0]++ // TN
		}
	}

	tp := float64(m.ConfusionMatrix[1][1])
	fp := float64(m.ConfusionMatrix[0][1])
	fn := float64(m.ConfusionMatrix[1][0])

	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	return m, nil
}
