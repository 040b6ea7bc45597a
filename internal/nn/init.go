package nn

import (
	"math/rand"
)

// Initializer produces initial parameter values from a single seeded source,
// so that two models built with the same configuration and seed start with
// identical weights. Construction order of modules determines which draws go
// where; it must stay deterministic.
//
// The scheme follows the usual language-model recipe: linear and embedding
// weights draw from N(0, std²), biases and norm shifts start at zero, norm
// gains start at one.
type Initializer struct {
	std float64
	rng *rand.Rand
}

// NewInitializer creates an Initializer with the given standard deviation
// and seed.
func NewInitializer(std float64, seed int64) *Initializer {
	return &Initializer{
		std: std,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// LinearWeight draws out*in values from N(0, std²).
func (in *Initializer) LinearWeight(outFeatures, inFeatures int) []float32 {
	return in.normal(outFeatures * inFeatures)
}

// EmbeddingWeight draws num*dim values from N(0, std²).
func (in *Initializer) EmbeddingWeight(num, dim int) []float32 {
	return in.normal(num * dim)
}

// Bias returns n zeros.
func (in *Initializer) Bias(n int) []float32 {
	return make([]float32, n)
}

// NormGain returns n ones.
func (in *Initializer) NormGain(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = 1
	}
	return data
}

// NormShift returns n zeros.
func (in *Initializer) NormShift(n int) []float32 {
	return make([]float32, n)
}

func (in *Initializer) normal(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(in.rng.NormFloat64() * in.std)
	}
	return data
}
