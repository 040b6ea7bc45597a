package nn

import (
	"github.com/ember-ml/ember/internal/tensor"
)

// FFN is the position-wise feed-forward block of a decoder layer:
//
//	y = ReLU(x @ W1.T + b1) @ W2.T + b2
//
// expanding to the intermediate state dimension and projecting back.
type FFN[B tensor.Backend] struct {
	expand  *Linear[B]
	project *Linear[B]
}

// NewFFN creates an FFN mapping dim -> stateDim -> dim.
func NewFFN[B tensor.Backend](dim, stateDim int, init *Initializer, backend B) *FFN[B] {
	return &FFN[B]{
		expand:  NewLinear(dim, stateDim, true, init, backend),
		project: NewLinear(stateDim, dim, true, init, backend),
	}
}

// Forward applies the block to a 2D input [n, dim].
func (f *FFN[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return f.project.Forward(f.expand.Forward(input).ReLU())
}

// Parameters returns the parameters of both projections.
func (f *FFN[B]) Parameters() []*Parameter[B] {
	return append(f.expand.Parameters(), f.project.Parameters()...)
}
