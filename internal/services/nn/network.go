package nn

import (
	"fmt"
	"strings"

	"PriceCast/internal/domain"
)

// Network is a sequential stack of layers mapping one input window to an output
// activation. Predict is safe for concurrent use while no training is running.
type Network struct {
	input  Shape
	layers []Layer
	shapes []Shape
}

// NewNetwork builds and initialises the layers described by specs for input.
func NewNetwork(input Shape, specs []LayerSpec, rng *Rand) (*Network, error) {
	if !input.valid() {
		return nil, fmt.Errorf("invalid input shape %s: %w", input, domain.ErrShape)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("network needs at least one layer")
	}
	n := &Network{input: input}
	cur := input
	for i, spec := range specs {
		layer, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		out, err := layer.Init(cur, rng)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w: %w", i, spec.Type, domain.ErrShape, err)
		}
		n.layers = append(n.layers, layer)
		n.shapes = append(n.shapes, out)
		cur = out
	}
	return n, nil
}

func (n *Network) InputShape() Shape { return n.input }

func (n *Network) OutputShape() Shape { return n.shapes[len(n.shapes)-1] }

// Specs returns the layer descriptions the network was built from.
func (n *Network) Specs() []LayerSpec {
	out := make([]LayerSpec, len(n.layers))
	for i, l := range n.layers {
		out[i] = l.Spec()
	}
	return out
}

// Params returns every trainable tensor in layer order.
func (n *Network) Params() []*Param {
	var ps []*Param
	for _, l := range n.layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

// ParamCount is the total number of trainable scalars.
func (n *Network) ParamCount() int {
	total := 0
	for _, p := range n.Params() {
		total += len(p.Value)
	}
	return total
}

// Predict runs a forward pass for one example.
func (n *Network) Predict(x []float64) ([]float64, error) {
	if len(x) != n.input.Size() {
		return nil, fmt.Errorf("input has %d values, network expects %d: %w", len(x), n.input.Size(), domain.ErrShape)
	}
	y, _ := n.forward(x)
	return y, nil
}

func (n *Network) forward(x []float64) ([]float64, []Tape) {
	tapes := make([]Tape, len(n.layers))
	for i, l := range n.layers {
		x, tapes[i] = l.Forward(x)
	}
	return x, tapes
}

func (n *Network) backward(tapes []Tape, grad []float64) {
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].Backward(tapes[i], grad)
	}
}

func (n *Network) zeroGrad() {
	for _, p := range n.Params() {
		clear(p.Grad)
	}
}

// TrainBatch performs one optimiser step on a mini-batch of scalar-target examples
// and returns the batch mean squared error before the step.
func (n *Network) TrainBatch(xs [][]float64, ys []float64, opt Optimizer) (float64, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0, fmt.Errorf("batch has %d inputs and %d targets: %w", len(xs), len(ys), domain.ErrShape)
	}
	if n.OutputShape().Size() != 1 {
		return 0, fmt.Errorf("network output %s is not scalar: %w", n.OutputShape(), domain.ErrShape)
	}
	n.zeroGrad()
	var loss float64
	scale := 1 / float64(len(xs))
	for i, x := range xs {
		if len(x) != n.input.Size() {
			return 0, fmt.Errorf("example %d has %d values, network expects %d: %w", i, len(x), n.input.Size(), domain.ErrShape)
		}
		y, tapes := n.forward(x)
		diff := y[0] - ys[i]
		loss += diff * diff * scale
		n.backward(tapes, []float64{MSEGrad(y[0], ys[i], len(xs))})
	}
	opt.Step(n.Params())
	return loss, nil
}

// LayerSummary describes one layer for logging.
type LayerSummary struct {
	Type   string
	Output Shape
	Params int
}

// Summary lists output shape and parameter count per layer.
func (n *Network) Summary() []LayerSummary {
	out := make([]LayerSummary, len(n.layers))
	for i, l := range n.layers {
		count := 0
		for _, p := range l.Params() {
			count += len(p.Value)
		}
		out[i] = LayerSummary{Type: l.Spec().Type, Output: n.shapes[i], Params: count}
	}
	return out
}

// SummaryTable renders Summary as a fixed-width table.
func (n *Network) SummaryTable() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-12s %-12s %10s\n", "#", "layer", "output", "params")
	for i, s := range n.Summary() {
		fmt.Fprintf(&b, "%-4d %-12s %-12s %10d\n", i, s.Type, s.Output, s.Params)
	}
	fmt.Fprintf(&b, "total params: %d", n.ParamCount())
	return b.String()
}
