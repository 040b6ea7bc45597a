package ops

import "github.com/ember-ml/ember/internal/tensor"

// TransposeOp represents a dimension permutation: output = transpose(x, axes).
//
// Backward pass applies the inverse permutation to the output gradient.
type TransposeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a new TransposeOp. axes must be the resolved
// permutation used in the forward pass.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		axes:   axes,
	}
}

// Backward applies the inverse permutation to the output gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the input tensor [x].
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the permuted tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
