package ops

import "github.com/ember-ml/ember/internal/tensor"

// RsqrtOp represents the inverse square root: output = 1/sqrt(x).
//
// Backward pass: d(x^-1/2)/dx = -1/2 * x^-3/2 = -1/2 * output^3.
type RsqrtOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
}

// NewRsqrtOp creates a new RsqrtOp.
func NewRsqrtOp(x, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the rsqrt input gradient from the cached output.
func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	out := op.output
	cubed := backend.Mul(backend.Mul(out, out), out)
	grad := backend.MulScalar(backend.Mul(outputGrad, cubed), -0.5)
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *RsqrtOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the tensor 1/sqrt(x).
func (op *RsqrtOp) Output() *tensor.RawTensor {
	return op.output
}
