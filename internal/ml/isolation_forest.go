package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Isolation Forest outlier detection.
//
// Anomalies are isolated in fewer random splits than dense normal
// points, so short average path lengths across an ensemble of random
// trees indicate outliers. Scores follow Liu et al.:
//
//	s(x, n) = 2^(-E(h(x)) / c(n))
//
// where E(h(x)) is the average path length of x over all trees and
// c(n) is the average path length of an unsuccessful BST search over
// n points. s is in (0, 1); higher means more anomalous.

// node is a single split (or leaf) in an isolation tree.
type node struct {
	splitFeature int
	splitValue   float64
	left         *node
	right        *node
	size         int
	leaf         bool
}

// Forest is an ensemble of isolation trees.
type Forest struct {
	trees       []*node
	numTrees    int
	sampleSize  int
	maxDepth    int
	numFeatures int
	trainScores []float64
	rng         *rand.Rand
}

// ErrNotFitted is returned when scoring is attempted before Fit.
var ErrNotFitted = errors.New("forest not fitted")

// ErrNoData is returned when Fit is called with an empty dataset.
var ErrNoData = errors.New("no training data")

// NewForest creates an isolation forest. sampleSize caps the per-tree
// sub-sample; maxDepth caps tree height. The seed makes training
// reproducible.
func NewForest(numTrees, sampleSize, maxDepth int, seed int64) *Forest {
	return &Forest{
		trees:      make([]*node, 0, numTrees),
		numTrees:   numTrees,
		sampleSize: sampleSize,
		maxDepth:   maxDepth,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Fit trains the forest on the given feature vectors. All vectors must
// have the same dimensionality. Fit replaces any previous trees and
// records the training-sample scores for threshold calibration.
func (f *Forest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return ErrNoData
	}
	width := len(data[0])
	if width == 0 {
		return errors.New("empty feature vector")
	}
	for i, row := range data {
		if len(row) != width {
			return errors.New("inconsistent feature vector widths")
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite feature value in row %d", i)
			}
		}
	}

	f.numFeatures = width
	f.trees = f.trees[:0]
	for i := 0; i < f.numTrees; i++ {
		sample := f.sampleData(data)
		f.trees = append(f.trees, f.buildTree(sample, 0))
	}

	f.trainScores = make([]float64, len(data))
	for i, row := range data {
		f.trainScores[i], _ = f.Score(row)
	}
	return nil
}

// Fitted reports whether the forest has been trained.
func (f *Forest) Fitted() bool { return len(f.trees) > 0 }

// SampleSize returns the effective per-tree sub-sample size.
func (f *Forest) SampleSize() int { return f.sampleSize }

// TrainScores returns the anomaly scores of the training set recorded
// during Fit. Callers derive contamination thresholds from these.
func (f *Forest) TrainScores() []float64 { return f.trainScores }

// Score computes the anomaly score of a single point. Deterministic
// for a fitted forest.
func (f *Forest) Score(point []float64) (float64, error) {
	if !f.Fitted() {
		return 0, ErrNotFitted
	}
	if len(point) != f.numFeatures {
		return 0, errors.New("feature vector width mismatch")
	}

	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, point, 0)
	}
	avg := total / float64(len(f.trees))

	c := averagePathLength(f.sampleSize)
	return math.Pow(2, -avg/c), nil
}

// sampleData draws a sub-sample of up to sampleSize rows via
// Fisher-Yates shuffle.
func (f *Forest) sampleData(data [][]float64) [][]float64 {
	size := f.sampleSize
	if size > len(data) {
		size = len(data)
	}
	shuffled := make([][]float64, len(data))
	copy(shuffled, data)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

func (f *Forest) buildTree(data [][]float64, depth int) *node {
	if len(data) <= 1 || depth >= f.maxDepth || allIdentical(data) {
		return &node{size: len(data), leaf: true}
	}

	splitFeature := f.rng.Intn(f.numFeatures)
	minVal, maxVal := featureRange(data, splitFeature)
	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	left, right := partition(data, splitFeature, splitValue)
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(data), leaf: true}
	}

	return &node{
		splitFeature: splitFeature,
		splitValue:   splitValue,
		left:         f.buildTree(left, depth+1),
		right:        f.buildTree(right, depth+1),
		size:         len(data),
	}
}

// partition splits rows on a feature: values below splitValue go
// left, the rest go right (matching the routing in pathLength).
func partition(data [][]float64, feature int, splitValue float64) ([][]float64, [][]float64) {
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return left, right
}

func pathLength(tree *node, point []float64, depth int) float64 {
	if tree.leaf {
		// Estimate the remaining depth for points sharing the leaf.
		return float64(depth) + averagePathLength(tree.size)
	}
	if point[tree.splitFeature] < tree.splitValue {
		return pathLength(tree.left, point, depth+1)
	}
	return pathLength(tree.right, point, depth+1)
}

// averagePathLength is c(n) = 2H(n-1) - 2(n-1)/n, the expected path
// length of an unsuccessful BST search over n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	return 2*harmonic(n-1) - 2*float64(n-1)/float64(n)
}

// harmonic approximates H(n) as ln(n) plus the Euler-Mascheroni
// constant.
func harmonic(n int) float64 {
	return math.Log(float64(n)) + 0.5772156649
}

func allIdentical(data [][]float64) bool {
	if len(data) <= 1 {
		return true
	}
	first := data[0]
	for i := 1; i < len(data); i++ {
		for j := range first {
			if math.Abs(data[i][j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(data [][]float64, feature int) (float64, float64) {
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	return minVal, maxVal
}
