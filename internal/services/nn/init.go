package nn

import (
	"math"
	"math/rand/v2"
)

// Rand is the random source used for initialisation and shuffling.
type Rand = rand.Rand

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// varianceScaling fills w from a normal truncated at two standard deviations,
// with stddev sqrt(1/fanIn).
func varianceScaling(w []float64, fanIn int, rng *Rand) {
	std := math.Sqrt(1 / float64(fanIn))
	for i := range w {
		v := rng.NormFloat64()
		for math.Abs(v) > 2 {
			v = rng.NormFloat64()
		}
		w[i] = v * std
	}
}

// glorotUniform fills w from U(-l, l) with l = sqrt(6/(fanIn+fanOut)).
func glorotUniform(w []float64, fanIn, fanOut int, rng *Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}
