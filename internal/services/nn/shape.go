// Package nn is a small sequential neural network toolkit for univariate series
// regression: 1-D convolutions, pooling, dense and LSTM layers, trained with Adam on
// mean squared error.
//
// Activations are row-major float64 slices of shape [Steps][Channels].
package nn

import "fmt"

// Shape is the per-example shape of an activation.
type Shape struct {
	Steps    int `json:"steps"`
	Channels int `json:"channels"`
}

// Size is the number of scalars in one example.
func (s Shape) Size() int { return s.Steps * s.Channels }

func (s Shape) String() string { return fmt.Sprintf("[%d,%d]", s.Steps, s.Channels) }

func (s Shape) valid() bool { return s.Steps > 0 && s.Channels > 0 }

// Param is a trainable tensor with its gradient accumulator.
type Param struct {
	Name  string
	Dims  []int
	Value []float64
	Grad  []float64
}

func newParam(name string, dims ...int) *Param {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &Param{Name: name, Dims: dims, Value: make([]float64, n), Grad: make([]float64, n)}
}

// Tape is the forward-pass state a layer needs to compute its backward pass.
type Tape interface{}

// Layer is one stage of a sequential network.
//
// Forward must not mutate the layer; everything Backward needs is returned in the
// tape. Backward accumulates parameter gradients and returns the gradient with
// respect to the layer input.
type Layer interface {
	Init(in Shape, rng *Rand) (Shape, error)
	Forward(x []float64) ([]float64, Tape)
	Backward(t Tape, grad []float64) []float64
	Params() []*Param
	Spec() LayerSpec
}
