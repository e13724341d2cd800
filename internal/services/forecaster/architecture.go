package forecaster

import (
	"fmt"
	"strings"

	"PriceCast/internal/services/nn"
)

// Architecture supplies the layer stack of a model variant for a window length.
type Architecture interface {
	Name() string
	Layers(windowSize int) ([]nn.LayerSpec, error)
}

// NewArchitecture returns the variant registered under name ("cnn" or "rnn").
func NewArchitecture(name string) (Architecture, error) {
	switch strings.ToLower(name) {
	case "cnn", "":
		return CNN{}, nil
	case "rnn", "lstm":
		return RNN{}, nil
	}
	return nil, fmt.Errorf("unknown model architecture %q", name)
}

// CNN is two ReLU convolutions, each followed by stride-1 average pooling, and a
// linear read-out.
type CNN struct{}

// MinCNNWindow is the shortest window the CNN stack can consume.
const MinCNNWindow = 5

func (CNN) Name() string { return "cnn" }

func (CNN) Layers(windowSize int) ([]nn.LayerSpec, error) {
	if windowSize < MinCNNWindow {
		return nil, fmt.Errorf("cnn needs a window of at least %d, got %d", MinCNNWindow, windowSize)
	}
	return []nn.LayerSpec{
		nn.Conv1DSpec(128, 2, nn.ReLU),
		nn.AvgPool1DSpec(2, 1),
		nn.Conv1DSpec(64, 2, nn.ReLU),
		nn.AvgPool1DSpec(2, 1),
		nn.FlattenSpec(),
		nn.DenseSpec(1, nn.Linear),
	}, nil
}

// RNN projects the window to 64 features, views them as 16 steps of 4 and runs
// four stacked LSTM(16) layers before a linear read-out.
type RNN struct{}

const (
	rnnProjection = 64
	rnnSteps      = 16
	rnnUnits      = 16
	rnnDepth      = 4
)

func (RNN) Name() string { return "rnn" }

func (RNN) Layers(windowSize int) ([]nn.LayerSpec, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("rnn needs a positive window, got %d", windowSize)
	}
	specs := []nn.LayerSpec{
		nn.FlattenSpec(),
		nn.DenseSpec(rnnProjection, nn.Linear),
		nn.ReshapeSpec(rnnSteps, rnnProjection/rnnSteps),
	}
	for i := 0; i < rnnDepth; i++ {
		specs = append(specs, nn.LSTMSpec(rnnUnits, i < rnnDepth-1))
	}
	return append(specs, nn.DenseSpec(1, nn.Linear)), nil
}
