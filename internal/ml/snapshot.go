package ml

import "errors"

// Whole-forest serialization. Snapshots use exported fields so the
// fitted ensemble survives a JSON round trip; tree pointers are
// flattened into nested structs.

// NodeSnapshot is the serializable form of a single tree node.
type NodeSnapshot struct {
	SplitFeature int           `json:"f"`
	SplitValue   float64       `json:"v"`
	Left         *NodeSnapshot `json:"l,omitempty"`
	Right        *NodeSnapshot `json:"r,omitempty"`
	Size         int           `json:"n"`
	Leaf         bool          `json:"leaf,omitempty"`
}

// ForestSnapshot is the serializable form of a fitted forest.
type ForestSnapshot struct {
	Trees       []*NodeSnapshot `json:"trees"`
	NumTrees    int             `json:"num_trees"`
	SampleSize  int             `json:"sample_size"`
	MaxDepth    int             `json:"max_depth"`
	NumFeatures int             `json:"num_features"`
	TrainScores []float64       `json:"train_scores"`
}

// Snapshot captures the fitted state of the forest.
func (f *Forest) Snapshot() (*ForestSnapshot, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	snap := &ForestSnapshot{
		Trees:       make([]*NodeSnapshot, len(f.trees)),
		NumTrees:    f.numTrees,
		SampleSize:  f.sampleSize,
		MaxDepth:    f.maxDepth,
		NumFeatures: f.numFeatures,
		TrainScores: append([]float64(nil), f.trainScores...),
	}
	for i, tree := range f.trees {
		snap.Trees[i] = snapshotNode(tree)
	}
	return snap, nil
}

// Restore rebuilds a fitted forest from a snapshot. The restored
// forest scores identically to the one the snapshot was taken from;
// the snapshot is not verified beyond basic shape checks.
func Restore(snap *ForestSnapshot) (*Forest, error) {
	if snap == nil || len(snap.Trees) == 0 {
		return nil, errors.New("empty forest snapshot")
	}
	f := NewForest(snap.NumTrees, snap.SampleSize, snap.MaxDepth, 0)
	f.numFeatures = snap.NumFeatures
	f.trainScores = append([]float64(nil), snap.TrainScores...)
	f.trees = make([]*node, len(snap.Trees))
	for i, tree := range snap.Trees {
		f.trees[i] = restoreNode(tree)
	}
	return f, nil
}

func snapshotNode(n *node) *NodeSnapshot {
	if n == nil {
		return nil
	}
	return &NodeSnapshot{
		SplitFeature: n.splitFeature,
		SplitValue:   n.splitValue,
		Left:         snapshotNode(n.left),
		Right:        snapshotNode(n.right),
		Size:         n.size,
		Leaf:         n.leaf,
	}
}

func restoreNode(s *NodeSnapshot) *node {
	if s == nil {
		return nil
	}
	return &node{
		splitFeature: s.SplitFeature,
		splitValue:   s.SplitValue,
		left:         restoreNode(s.Left),
		right:        restoreNode(s.Right),
		size:         s.Size,
		leaf:         s.Leaf,
	}
}
