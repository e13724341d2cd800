package nn

import (
	"fmt"
	"math"
)

// Activation is an element-wise nonlinearity.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Tanh    Activation = "tanh"
	Sigmoid Activation = "sigmoid"
)

func (a Activation) validate() error {
	switch a {
	case Linear, ReLU, Tanh, Sigmoid:
		return nil
	}
	return fmt.Errorf("unknown activation %q", string(a))
}

func (a Activation) apply(v []float64) {
	switch a {
	case ReLU:
		for i, x := range v {
			if x < 0 {
				v[i] = 0
			}
		}
	case Tanh:
		for i, x := range v {
			v[i] = math.Tanh(x)
		}
	case Sigmoid:
		for i, x := range v {
			v[i] = sigmoid(x)
		}
	}
}

// backprop multiplies grad in place by the derivative, expressed through the
// activation output y.
func (a Activation) backprop(y, grad []float64) {
	switch a {
	case ReLU:
		for i := range grad {
			if y[i] <= 0 {
				grad[i] = 0
			}
		}
	case Tanh:
		for i := range grad {
			grad[i] *= 1 - y[i]*y[i]
		}
	case Sigmoid:
		for i := range grad {
			grad[i] *= y[i] * (1 - y[i])
		}
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
