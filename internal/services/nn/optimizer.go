package nn

import "math"

// Optimizer applies accumulated gradients to parameters.
type Optimizer interface {
	Step(params []*Param)
}

// Adam defaults.
const (
	DefaultLearningRate = 0.001
	DefaultBeta1        = 0.9
	DefaultBeta2        = 0.999
	DefaultEpsilon      = 1e-7
)

// Adam is the Adam optimiser with bias-corrected step size.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	t int
	m map[*Param][]float64
	v map[*Param][]float64
}

// NewAdam returns Adam with default moments; lr <= 0 selects the default rate.
func NewAdam(lr float64) *Adam {
	if lr <= 0 {
		lr = DefaultLearningRate
	}
	return &Adam{
		LR:      lr,
		Beta1:   DefaultBeta1,
		Beta2:   DefaultBeta2,
		Epsilon: DefaultEpsilon,
		m:       make(map[*Param][]float64),
		v:       make(map[*Param][]float64),
	}
}

func (a *Adam) Step(params []*Param) {
	a.t++
	lrT := a.LR * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))
	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(p.Value))
			a.v[p] = v
		}
		for i, g := range p.Grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			p.Value[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// MSE is the mean squared error between predictions and targets.
func MSE(pred, target []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	var s float64
	for i := range pred {
		d := pred[i] - target[i]
		s += d * d
	}
	return s / float64(len(pred))
}

// MSEGrad is d(MSE)/d(pred) for one example of a batch of size n.
func MSEGrad(pred, target float64, n int) float64 {
	return 2 * (pred - target) / float64(n)
}
