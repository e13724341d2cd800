package nn

import "fmt"

// Flatten collapses [Steps][Channels] into a single step.
type Flatten struct{}

func (Flatten) Init(in Shape, _ *Rand) (Shape, error) {
	return Shape{Steps: 1, Channels: in.Size()}, nil
}

func (Flatten) Forward(x []float64) ([]float64, Tape) { return x, nil }

func (Flatten) Backward(_ Tape, grad []float64) []float64 { return grad }

func (Flatten) Params() []*Param { return nil }

func (Flatten) Spec() LayerSpec { return FlattenSpec() }

// Reshape reinterprets the activation with a new shape of the same size.
type Reshape struct {
	Target Shape
}

func (l *Reshape) Init(in Shape, _ *Rand) (Shape, error) {
	if in.Size() != l.Target.Size() {
		return Shape{}, fmt.Errorf("cannot reshape %s into %s", in, l.Target)
	}
	return l.Target, nil
}

func (l *Reshape) Forward(x []float64) ([]float64, Tape) { return x, nil }

func (l *Reshape) Backward(_ Tape, grad []float64) []float64 { return grad }

func (l *Reshape) Params() []*Param { return nil }

func (l *Reshape) Spec() LayerSpec { return ReshapeSpec(l.Target.Steps, l.Target.Channels) }
