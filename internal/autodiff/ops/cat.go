package ops

import "github.com/ember-ml/ember/internal/tensor"

// CatOp represents concatenation along a dimension.
//
// Backward pass slices the output gradient back into per-input pieces with
// Narrow.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a new CatOp. dim must be the resolved (non-negative)
// dimension used in the forward pass.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{
		inputs: inputs,
		output: output,
		dim:    dim,
	}
}

// Backward splits the output gradient into one slice per input.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	start := 0
	for i, in := range op.inputs {
		length := in.Shape()[op.dim]
		grads[i] = backend.Narrow(outputGrad, op.dim, start, length)
		start += length
	}
	return grads
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the concatenated tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}
