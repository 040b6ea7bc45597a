package nn

import (
	"fmt"
	"math/rand"

	"github.com/ember-ml/ember/internal/tensor"
)

// Dropout randomly zeroes elements with probability p during training, and
// scales the survivors by 1/(1-p) so activations keep their expectation
// (inverted dropout). In evaluation mode it is the identity.
//
// The mask enters the graph as a constant factor, so gradients are masked
// and scaled the same way as activations.
type Dropout[B tensor.Backend] struct {
	p       float32
	rng     *rand.Rand
	backend B
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand, backend B) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: probability must be in [0, 1), got %v", p))
	}
	return &Dropout[B]{
		p:       p,
		rng:     rng,
		backend: backend,
	}
}

// Forward applies dropout when training is true, otherwise returns the input
// unchanged.
func (d *Dropout[B]) Forward(x *tensor.Tensor[float32, B], training bool) *tensor.Tensor[float32, B] {
	if !training || d.p == 0 {
		return x
	}

	scale := 1 / (1 - d.p)
	mask := make([]float32, x.NumElements())
	for i := range mask {
		if d.rng.Float32() >= d.p {
			mask[i] = scale
		}
	}
	maskTensor := tensor.MustFromSlice(mask, x.Shape(), d.backend)
	return x.Mul(maskTensor)
}
