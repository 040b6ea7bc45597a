package ops

import "github.com/ember-ml/ember/internal/tensor"

// SoftmaxOp represents softmax along a dimension: output = softmax(x, dim).
//
// Backward pass uses the closed form
//
//	dx = out * (grad - sum(grad * out, dim))
//
// which avoids materializing the Jacobian.
type SoftmaxOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	dim    int
}

// NewSoftmaxOp creates a new SoftmaxOp. dim must be the resolved
// (non-negative) dimension used in the forward pass.
func NewSoftmaxOp(x, output *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
	}
}

// Backward computes the softmax input gradient.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	out := op.output

	inner := backend.SumDim(backend.Mul(outputGrad, out), op.dim, true)
	gradX := backend.Mul(out, backend.Sub(outputGrad, inner))

	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensor [x].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the softmax probabilities.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}
