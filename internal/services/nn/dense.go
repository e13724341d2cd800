package nn

import "gonum.org/v1/gonum/floats"

// Dense is a fully connected layer applied independently to every step.
// Weights are laid out [InChannels][Units].
type Dense struct {
	Units int
	Act   Activation

	in, out Shape
	w, b    *Param
}

type denseTape struct {
	x, y []float64
}

func (l *Dense) Init(in Shape, rng *Rand) (Shape, error) {
	l.in = in
	l.out = Shape{Steps: in.Steps, Channels: l.Units}
	l.w = newParam("kernel", in.Channels, l.Units)
	l.b = newParam("bias", l.Units)
	varianceScaling(l.w.Value, in.Channels, rng)
	return l.out, nil
}

func (l *Dense) Forward(x []float64) ([]float64, Tape) {
	C, U := l.in.Channels, l.Units
	y := make([]float64, l.out.Size())
	for t := 0; t < l.in.Steps; t++ {
		dst := y[t*U : (t+1)*U]
		copy(dst, l.b.Value)
		for c := 0; c < C; c++ {
			floats.AddScaled(dst, x[t*C+c], l.w.Value[c*U:(c+1)*U])
		}
	}
	l.Act.apply(y)
	return y, &denseTape{x: x, y: y}
}

func (l *Dense) Backward(tp Tape, grad []float64) []float64 {
	tape := tp.(*denseTape)
	C, U := l.in.Channels, l.Units
	dz := append([]float64(nil), grad...)
	l.Act.backprop(tape.y, dz)

	dx := make([]float64, l.in.Size())
	for t := 0; t < l.in.Steps; t++ {
		g := dz[t*U : (t+1)*U]
		floats.Add(l.b.Grad, g)
		for c := 0; c < C; c++ {
			w := l.w.Value[c*U : (c+1)*U]
			floats.AddScaled(l.w.Grad[c*U:(c+1)*U], tape.x[t*C+c], g)
			dx[t*C+c] = floats.Dot(w, g)
		}
	}
	return dx
}

func (l *Dense) Params() []*Param { return []*Param{l.w, l.b} }

func (l *Dense) Spec() LayerSpec { return DenseSpec(l.Units, l.Act) }
