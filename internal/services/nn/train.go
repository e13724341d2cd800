package nn

import (
	"context"
	"fmt"

	"PriceCast/internal/domain"
)

// DefaultBatchSize matches the usual Keras fit default.
const DefaultBatchSize = 32

// FitConfig controls a training loop.
type FitConfig struct {
	Epochs    int
	BatchSize int
	Rng       *Rand // shuffles examples every epoch when set
	OnEpoch   func(epoch int, loss float64)
}

// Fit trains the network for cfg.Epochs passes over xs/ys and returns the mean
// loss of every epoch. It stops early with ctx.Err() if ctx is cancelled.
func (n *Network) Fit(ctx context.Context, xs [][]float64, ys []float64, opt Optimizer, cfg FitConfig) ([]float64, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("no training examples: %w", domain.ErrInsufficientData)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%d inputs but %d targets: %w", len(xs), len(ys), domain.ErrShape)
	}
	if cfg.Epochs < 1 {
		return nil, fmt.Errorf("epochs must be >= 1, got %d", cfg.Epochs)
	}
	batch := cfg.BatchSize
	if batch < 1 {
		batch = DefaultBatchSize
	}

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	bx := make([][]float64, 0, batch)
	by := make([]float64, 0, batch)
	losses := make([]float64, 0, cfg.Epochs)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return losses, err
		}
		if cfg.Rng != nil {
			cfg.Rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var sum float64
		for start := 0; start < len(order); start += batch {
			end := min(start+batch, len(order))
			bx, by = bx[:0], by[:0]
			for _, idx := range order[start:end] {
				bx = append(bx, xs[idx])
				by = append(by, ys[idx])
			}
			loss, err := n.TrainBatch(bx, by, opt)
			if err != nil {
				return losses, err
			}
			sum += loss * float64(end-start)
		}
		mean := sum / float64(len(xs))
		losses = append(losses, mean)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(epoch, mean)
		}
	}
	return losses, nil
}
