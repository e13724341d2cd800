package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Conv1D is a valid-padding, stride-1 temporal convolution.
// Kernel weights are laid out [Kernel][InChannels][Filters].
type Conv1D struct {
	Filters int
	Kernel  int
	Act     Activation

	in, out Shape
	w, b    *Param
}

type convTape struct {
	x, y []float64
}

func (l *Conv1D) Init(in Shape, rng *Rand) (Shape, error) {
	if in.Steps < l.Kernel {
		return Shape{}, fmt.Errorf("conv1d kernel %d longer than input %s", l.Kernel, in)
	}
	l.in = in
	l.out = Shape{Steps: in.Steps - l.Kernel + 1, Channels: l.Filters}
	l.w = newParam("kernel", l.Kernel, in.Channels, l.Filters)
	l.b = newParam("bias", l.Filters)
	varianceScaling(l.w.Value, l.Kernel*in.Channels, rng)
	return l.out, nil
}

func (l *Conv1D) row(k, c int) (int, int) {
	off := (k*l.in.Channels + c) * l.Filters
	return off, off + l.Filters
}

func (l *Conv1D) Forward(x []float64) ([]float64, Tape) {
	C, F := l.in.Channels, l.Filters
	y := make([]float64, l.out.Size())
	for t := 0; t < l.out.Steps; t++ {
		dst := y[t*F : (t+1)*F]
		copy(dst, l.b.Value)
		for k := 0; k < l.Kernel; k++ {
			for c := 0; c < C; c++ {
				lo, hi := l.row(k, c)
				floats.AddScaled(dst, x[(t+k)*C+c], l.w.Value[lo:hi])
			}
		}
	}
	l.Act.apply(y)
	return y, &convTape{x: x, y: y}
}

func (l *Conv1D) Backward(tp Tape, grad []float64) []float64 {
	tape := tp.(*convTape)
	C, F := l.in.Channels, l.Filters
	dz := append([]float64(nil), grad...)
	l.Act.backprop(tape.y, dz)

	dx := make([]float64, l.in.Size())
	for t := 0; t < l.out.Steps; t++ {
		g := dz[t*F : (t+1)*F]
		floats.Add(l.b.Grad, g)
		for k := 0; k < l.Kernel; k++ {
			for c := 0; c < C; c++ {
				lo, hi := l.row(k, c)
				xi := (t+k)*C + c
				floats.AddScaled(l.w.Grad[lo:hi], tape.x[xi], g)
				dx[xi] += floats.Dot(l.w.Value[lo:hi], g)
			}
		}
	}
	return dx
}

func (l *Conv1D) Params() []*Param { return []*Param{l.w, l.b} }

func (l *Conv1D) Spec() LayerSpec { return Conv1DSpec(l.Filters, l.Kernel, l.Act) }

// AvgPool1D averages Pool consecutive steps per channel, moving Stride steps at a time.
type AvgPool1D struct {
	Pool   int
	Stride int

	in, out Shape
}

func (l *AvgPool1D) Init(in Shape, _ *Rand) (Shape, error) {
	if in.Steps < l.Pool {
		return Shape{}, fmt.Errorf("avgpool1d pool %d longer than input %s", l.Pool, in)
	}
	l.in = in
	l.out = Shape{Steps: (in.Steps-l.Pool)/l.Stride + 1, Channels: in.Channels}
	return l.out, nil
}

func (l *AvgPool1D) Forward(x []float64) ([]float64, Tape) {
	C := l.in.Channels
	inv := 1 / float64(l.Pool)
	y := make([]float64, l.out.Size())
	for t := 0; t < l.out.Steps; t++ {
		dst := y[t*C : (t+1)*C]
		for p := 0; p < l.Pool; p++ {
			s := t*l.Stride + p
			floats.AddScaled(dst, inv, x[s*C:(s+1)*C])
		}
	}
	return y, nil
}

func (l *AvgPool1D) Backward(_ Tape, grad []float64) []float64 {
	C := l.in.Channels
	inv := 1 / float64(l.Pool)
	dx := make([]float64, l.in.Size())
	for t := 0; t < l.out.Steps; t++ {
		g := grad[t*C : (t+1)*C]
		for p := 0; p < l.Pool; p++ {
			s := t*l.Stride + p
			floats.AddScaled(dx[s*C:(s+1)*C], inv, g)
		}
	}
	return dx
}

func (l *AvgPool1D) Params() []*Param { return nil }

func (l *AvgPool1D) Spec() LayerSpec { return AvgPool1DSpec(l.Pool, l.Stride) }
