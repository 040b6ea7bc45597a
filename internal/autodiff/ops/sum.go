package ops

import "github.com/ember-ml/ember/internal/tensor"

// SumOp represents a full reduction to a scalar: output = sum(x).
//
// Backward pass broadcasts the scalar gradient to every input position.
type SumOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward fills the input gradient with the scalar output gradient.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.inputs[0])
	g := outputGrad.AsFloat32()[0]
	data := grad.AsFloat32()
	for i := range data {
		data[i] = g
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
