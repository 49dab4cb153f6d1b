package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solarsentinel/sentinel-ai/internal/ml"
	"github.com/solarsentinel/sentinel-ai/internal/store"
)

// snapshot is the serialized form of a trained detector.
type snapshot struct {
	Forest          *ml.ForestSnapshot `json:"forest"`
	Offset          float64            `json:"offset"`
	TrainingSamples int                `json:"training_samples"`
	Metrics         ValidationMetrics  `json:"validation_metrics"`
	Hyperparameters Hyperparameters    `json:"hyperparameters"`
}

// Save serializes the fitted detector into the snapshot store. Fails
// with ErrNotTrained before the first Train.
func (d *Detector) Save(ctx context.Context, st *store.Store) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return fmt.Errorf("cannot save: %w", ErrNotTrained)
	}

	forestSnap, err := d.forest.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot forest: %w", err)
	}

	blob, err := json.Marshal(snapshot{
		Forest:          forestSnap,
		Offset:          d.offset,
		TrainingSamples: d.trainingSamples,
		Metrics:         d.metrics,
		Hyperparameters: d.params,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	metricsJSON, err := json.Marshal(d.metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	if _, err := st.Put(ctx, store.Snapshot{
		Version:         Version,
		TrainingSamples: d.trainingSamples,
		Metrics:         string(metricsJSON),
		Blob:            blob,
	}); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load restores the detector from the latest stored snapshot. Returns
// store.ErrNoSnapshot when the store is empty. The snapshot is not
// verified beyond deserializing.
func (d *Detector) Load(ctx context.Context, st *store.Store) error {
	latest, err := st.Latest(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if latest == nil {
		return store.ErrNoSnapshot
	}

	var snap snapshot
	if err := json.Unmarshal(latest.Blob, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	forest, err := ml.Restore(snap.Forest)
	if err != nil {
		return fmt.Errorf("restore forest: %w", err)
	}

	d.mu.Lock()
	d.forest = forest
	d.offset = snap.Offset
	d.trainingSamples = snap.TrainingSamples
	d.metrics = snap.Metrics
	d.trained = true
	d.mu.Unlock()

	return nil
}
