package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LSTM is a long short-term memory layer with gates ordered input, forget,
// cell, output. Kernel is [InChannels][4*Units], recurrent kernel [Units][4*Units].
type LSTM struct {
	Units           int
	ReturnSequences bool

	in, out   Shape
	wx, wh, b *Param
}

type lstmTape struct {
	x []float64
	// per step, each of length 4*Units: activated gates i, f, g, o
	gates [][]float64
	// h[t+1], c[t+1] are the states after step t; h[0], c[0] are zero
	h, c [][]float64
	tc   [][]float64
}

func (l *LSTM) Init(in Shape, rng *Rand) (Shape, error) {
	H := l.Units
	l.in = in
	if l.ReturnSequences {
		l.out = Shape{Steps: in.Steps, Channels: H}
	} else {
		l.out = Shape{Steps: 1, Channels: H}
	}
	l.wx = newParam("kernel", in.Channels, 4*H)
	l.wh = newParam("recurrent_kernel", H, 4*H)
	l.b = newParam("bias", 4*H)
	glorotUniform(l.wx.Value, in.Channels, 4*H, rng)
	glorotUniform(l.wh.Value, H, 4*H, rng)
	for j := H; j < 2*H; j++ {
		l.b.Value[j] = 1
	}
	return l.out, nil
}

func (l *LSTM) Forward(x []float64) ([]float64, Tape) {
	T, C, H := l.in.Steps, l.in.Channels, l.Units
	tape := &lstmTape{
		x:     x,
		gates: make([][]float64, T),
		h:     make([][]float64, T+1),
		c:     make([][]float64, T+1),
		tc:    make([][]float64, T),
	}
	tape.h[0] = make([]float64, H)
	tape.c[0] = make([]float64, H)

	for t := 0; t < T; t++ {
		z := append([]float64(nil), l.b.Value...)
		for ch := 0; ch < C; ch++ {
			floats.AddScaled(z, x[t*C+ch], l.wx.Value[ch*4*H:(ch+1)*4*H])
		}
		hPrev := tape.h[t]
		for j := 0; j < H; j++ {
			floats.AddScaled(z, hPrev[j], l.wh.Value[j*4*H:(j+1)*4*H])
		}
		for j := 0; j < H; j++ {
			z[j] = sigmoid(z[j])
			z[H+j] = sigmoid(z[H+j])
			z[2*H+j] = math.Tanh(z[2*H+j])
			z[3*H+j] = sigmoid(z[3*H+j])
		}
		c := make([]float64, H)
		h := make([]float64, H)
		tc := make([]float64, H)
		cPrev := tape.c[t]
		for j := 0; j < H; j++ {
			c[j] = z[H+j]*cPrev[j] + z[j]*z[2*H+j]
			tc[j] = math.Tanh(c[j])
			h[j] = z[3*H+j] * tc[j]
		}
		tape.gates[t], tape.c[t+1], tape.h[t+1], tape.tc[t] = z, c, h, tc
	}

	if !l.ReturnSequences {
		return append([]float64(nil), tape.h[T]...), tape
	}
	y := make([]float64, 0, T*H)
	for t := 1; t <= T; t++ {
		y = append(y, tape.h[t]...)
	}
	return y, tape
}

// Backward runs backpropagation through time over the whole input sequence.
func (l *LSTM) Backward(tp Tape, grad []float64) []float64 {
	tape := tp.(*lstmTape)
	T, C, H := l.in.Steps, l.in.Channels, l.Units

	dx := make([]float64, l.in.Size())
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)
	dh := make([]float64, H)

	for t := T - 1; t >= 0; t-- {
		copy(dh, dhNext)
		if l.ReturnSequences {
			floats.Add(dh, grad[t*H:(t+1)*H])
		} else if t == T-1 {
			floats.Add(dh, grad)
		}

		g := tape.gates[t]
		cPrev := tape.c[t]
		for j := 0; j < H; j++ {
			i, f, cc, o := g[j], g[H+j], g[2*H+j], g[3*H+j]
			tc := tape.tc[t][j]
			dc := dh[j]*o*(1-tc*tc) + dcNext[j]
			dz[j] = dc * cc * i * (1 - i)
			dz[H+j] = dc * cPrev[j] * f * (1 - f)
			dz[2*H+j] = dc * i * (1 - cc*cc)
			dz[3*H+j] = dh[j] * tc * o * (1 - o)
			dcNext[j] = dc * f
		}

		floats.Add(l.b.Grad, dz)
		for ch := 0; ch < C; ch++ {
			row := ch * 4 * H
			floats.AddScaled(l.wx.Grad[row:row+4*H], tape.x[t*C+ch], dz)
			dx[t*C+ch] = floats.Dot(l.wx.Value[row:row+4*H], dz)
		}
		hPrev := tape.h[t]
		for j := 0; j < H; j++ {
			row := j * 4 * H
			floats.AddScaled(l.wh.Grad[row:row+4*H], hPrev[j], dz)
			dhNext[j] = floats.Dot(l.wh.Value[row:row+4*H], dz)
		}
	}
	return dx
}

func (l *LSTM) Params() []*Param { return []*Param{l.wx, l.wh, l.b} }

func (l *LSTM) Spec() LayerSpec { return LSTMSpec(l.Units, l.ReturnSequences) }
